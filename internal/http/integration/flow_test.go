package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/usergate/internal/auth"
	"github.com/geocoder89/usergate/internal/config"
	"github.com/geocoder89/usergate/internal/db"
	"github.com/geocoder89/usergate/internal/domain/user"
	apphttp "github.com/geocoder89/usergate/internal/http"
	"github.com/geocoder89/usergate/internal/http/handlers"
	"github.com/geocoder89/usergate/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func testConfig() config.Config {
	return config.Config{
		Env:               "test",
		Store:             config.StoreMemory,
		JWTSecret:         "test-secret-key",
		SessionTTLMinutes: 60,
		AdminEmail:        "root@example.com",
		AdminPassword:     "root-pass",
		AdminName:         "Root",
		MaxBodyBytes:      1 << 20,
	}
}

type app struct {
	router *gin.Engine
	users  *memory.UsersRepo
}

func setupApp(t *testing.T) app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo := memory.NewUsersRepo()
	if err := db.EnsureAdminUser(context.Background(), repo, cfg); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	sessions := auth.NewSessions(auth.NewManager(cfg.JWTSecret, cfg.SessionTTL()), memory.NewRevokedTokens(), logger)

	router := apphttp.NewRouter(logger, apphttp.Deps{
		Cfg:      cfg,
		Users:    repo,
		Sessions: sessions,
		Checks:   map[string]handlers.Pinger{"users": repo},
	})

	return app{router: router, users: repo}
}

func (a app) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	contentType := ""
	if body != "" {
		contentType = "application/json"
	}
	return a.send(t, method, path, contentType, body, cookie)
}

func (a app) send(t *testing.T, method, path, contentType, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a app) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()

	w := a.do(t, http.MethodPost, "/login", `{"email":"`+email+`","password":"`+password+`"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: got %d, body=%s", email, w.Code, w.Body.String())
	}

	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}

	t.Fatalf("login %s: no session cookie", email)
	return nil
}

func TestFlow_AdminCreatesAdminWhoCanListUsers(t *testing.T) {
	a := setupApp(t)
	root := a.login(t, "root@example.com", "root-pass")

	w := a.do(t, http.MethodPost, "/users", `{"name":"A","email":"a@x.com","password":"p1","role":"admin"}`, root)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d, body=%s", w.Code, w.Body.String())
	}

	asA := a.login(t, "a@x.com", "p1")

	w = a.do(t, http.MethodGet, "/users", "", asA)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d, body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "password") {
		t.Fatalf("list leaks password: %s", w.Body.String())
	}

	var list []user.User
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	found := false
	for _, u := range list {
		if u.Email == "a@x.com" {
			found = true
			if u.Role != user.RoleAdmin {
				t.Fatalf("A has role %q, want admin", u.Role)
			}
		}
	}
	if !found {
		t.Fatalf("A missing from list: %+v", list)
	}
}

func TestFlow_NonAdminCannotCreate(t *testing.T) {
	a := setupApp(t)

	form := url.Values{"name": {"Joe"}, "email": {"joe@x.com"}, "password": {"joe-pass"}}
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("register: got %d, body=%s", w.Code, w.Body.String())
	}

	joe := a.login(t, "joe@x.com", "joe-pass")

	w = a.do(t, http.MethodPost, "/users", `{"name":"B","email":"b@x.com","password":"p2"}`, joe)
	if w.Code != http.StatusForbidden {
		t.Fatalf("create as user: got %d, want 403", w.Code)
	}

	if _, err := a.users.GetByEmail(context.Background(), "b@x.com"); err == nil {
		t.Fatalf("record was created despite 403")
	}
}

func TestFlow_AnonymousUsersRequests(t *testing.T) {
	a := setupApp(t)

	w := a.do(t, http.MethodGet, "/users", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("page request: got %d to %q, want 303 to /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestFlow_EmptyPasswordUpdateKeepsHash(t *testing.T) {
	a := setupApp(t)
	root := a.login(t, "root@example.com", "root-pass")

	w := a.do(t, http.MethodPost, "/users", `{"name":"C","email":"c@x.com","password":"c-pass"}`, root)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d", w.Code)
	}

	var created user.User
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	before, err := a.users.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	w = a.do(t, http.MethodPut, "/users/"+created.ID, `{"name":"C2","password":"","createdAt":"2001-01-01T00:00:00Z"}`, root)
	if w.Code != http.StatusOK {
		t.Fatalf("update: got %d, body=%s", w.Code, w.Body.String())
	}

	after, err := a.users.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	if after.PasswordHash != before.PasswordHash {
		t.Fatalf("empty password changed the stored hash")
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Fatalf("createdAt changed from %v to %v", before.CreatedAt, after.CreatedAt)
	}
	if after.Name != "C2" {
		t.Fatalf("name not updated: %q", after.Name)
	}

	// old password still works
	a.login(t, "c@x.com", "c-pass")
}

func TestFlow_DeleteTwice(t *testing.T) {
	a := setupApp(t)
	root := a.login(t, "root@example.com", "root-pass")

	w := a.do(t, http.MethodPost, "/users", `{"name":"D","email":"d@x.com","password":"d-pass"}`, root)
	var created user.User
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if w := a.do(t, http.MethodDelete, "/users/"+created.ID, "", root); w.Code != http.StatusOK {
		t.Fatalf("first delete: got %d", w.Code)
	}
	if w := a.do(t, http.MethodDelete, "/users/"+created.ID, "", root); w.Code != http.StatusNotFound {
		t.Fatalf("second delete: got %d, want 404", w.Code)
	}
	if w := a.do(t, http.MethodDelete, "/users/does-not-exist", "", root); w.Code != http.StatusNotFound {
		t.Fatalf("unknown id: got %d, want 404", w.Code)
	}
}

func TestFlow_DuplicateRegistration(t *testing.T) {
	a := setupApp(t)

	body := `{"name":"E","email":"e@x.com","password":"e-pass"}`

	if w := a.do(t, http.MethodPost, "/register", body, nil); w.Code != http.StatusOK {
		t.Fatalf("first register: got %d, body=%s", w.Code, w.Body.String())
	}

	w := a.do(t, http.MethodPost, "/register", body, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("second register: got %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "email_taken") {
		t.Fatalf("expected email_taken, got %s", w.Body.String())
	}
}

func TestFlow_LogoutRevokesToken(t *testing.T) {
	a := setupApp(t)
	root := a.login(t, "root@example.com", "root-pass")

	if w := a.do(t, http.MethodGet, "/session", "", root); w.Code != http.StatusOK {
		t.Fatalf("session before logout: got %d", w.Code)
	}

	if w := a.do(t, http.MethodPost, "/logout", "", root); w.Code != http.StatusNoContent {
		t.Fatalf("logout: got %d", w.Code)
	}

	// replaying the old cookie must no longer work
	if w := a.do(t, http.MethodGet, "/session", "", root); w.Code != http.StatusUnauthorized {
		t.Fatalf("session after logout: got %d, want 401", w.Code)
	}
}

func TestFlow_HealthAndDocs(t *testing.T) {
	a := setupApp(t)

	for _, path := range []string{"/healthz", "/readyz", "/docs", "/docs/openapi.yaml"} {
		if w := a.do(t, http.MethodGet, path, "", nil); w.Code != http.StatusOK {
			t.Fatalf("%s: got %d", path, w.Code)
		}
	}
}

func TestFlow_SessionExpiresAtIsInFuture(t *testing.T) {
	a := setupApp(t)
	root := a.login(t, "root@example.com", "root-pass")

	w := a.do(t, http.MethodGet, "/session", "", root)

	var resp struct {
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiresAt %v is not in the future", resp.ExpiresAt)
	}
}

type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		RequestID string `json:"requestId"`
		Details   struct {
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()

	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error body: %v (%s)", err, w.Body.String())
	}
	return body
}

func (a app) registerUser(t *testing.T, name, email, password string) *http.Cookie {
	t.Helper()

	body := `{"name":"` + name + `","email":"` + email + `","password":"` + password + `"}`
	if w := a.do(t, http.MethodPost, "/register", body, nil); w.Code != http.StatusOK {
		t.Fatalf("register %s: got %d, body=%s", email, w.Code, w.Body.String())
	}
	return a.login(t, email, password)
}

func TestFlow_NonAdminGetsForbiddenWhateverTheBody(t *testing.T) {
	a := setupApp(t)
	joe := a.registerUser(t, "Joe", "joe@x.com", "joe-pass")

	cases := []struct {
		name        string
		contentType string
		body        string
	}{
		{"malformed json", "application/json", `{"name":`},
		{"form body", "application/x-www-form-urlencoded", "name=B&email=b%40x.com&password=p2"},
		{"no content type", "", `{"name":"B","email":"b@x.com","password":"p2"}`},
		{"invalid fields", "application/json", `{"name":"","email":"nope"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := a.send(t, http.MethodPost, "/users", tc.contentType, tc.body, joe)
			if w.Code != http.StatusForbidden {
				t.Fatalf("got %d, want 403, body=%s", w.Code, w.Body.String())
			}
			if got := decodeError(t, w).Error.Code; got != "forbidden" {
				t.Fatalf("code = %q, want forbidden", got)
			}
		})
	}

	if w := a.send(t, http.MethodPut, "/users/whatever", "text/plain", "x", joe); w.Code != http.StatusForbidden {
		t.Fatalf("update as user: got %d, want 403", w.Code)
	}

	if _, err := a.users.GetByEmail(context.Background(), "b@x.com"); err == nil {
		t.Fatalf("record was created despite 403")
	}
}

func TestFlow_AdminStillNeedsJSON(t *testing.T) {
	a := setupApp(t)
	root := a.login(t, "root@example.com", "root-pass")

	w := a.send(t, http.MethodPost, "/users", "application/x-www-form-urlencoded", "name=B", root)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d, want 415", w.Code)
	}

	body := decodeError(t, w)
	if body.Error.Code != "unsupported_media_type" {
		t.Fatalf("code = %q", body.Error.Code)
	}
	if body.Error.RequestID == "" || body.Error.RequestID != w.Header().Get("X-Request-Id") {
		t.Fatalf("requestId %q does not match header %q", body.Error.RequestID, w.Header().Get("X-Request-Id"))
	}

	w = a.send(t, http.MethodPost, "/users", "application/json; charset=utf-8", `{"name":"B","email":"b@x.com","password":"p2"}`, root)
	if w.Code != http.StatusCreated {
		t.Fatalf("json with charset: got %d, body=%s", w.Code, w.Body.String())
	}
}

func TestFlow_UnauthenticatedErrorCarriesRequestID(t *testing.T) {
	a := setupApp(t)

	w := a.do(t, http.MethodGet, "/session", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got %d, want 401", w.Code)
	}
	if id := decodeError(t, w).Error.RequestID; id == "" {
		t.Fatalf("401 body has no requestId: %s", w.Body.String())
	}
}

func TestFlow_PasswordOverByteLimit(t *testing.T) {
	a := setupApp(t)
	root := a.login(t, "root@example.com", "root-pass")

	// 72 characters, 144 bytes
	long := strings.Repeat("é", 72)

	requests := []struct {
		name   string
		method string
		path   string
		body   string
		cookie *http.Cookie
	}{
		{"register", http.MethodPost, "/register", `{"name":"L","email":"l@x.com","password":"` + long + `"}`, nil},
		{"create", http.MethodPost, "/users", `{"name":"L","email":"l@x.com","password":"` + long + `"}`, root},
	}

	for _, tc := range requests {
		t.Run(tc.name, func(t *testing.T) {
			w := a.do(t, tc.method, tc.path, tc.body, tc.cookie)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("got %d, want 400, body=%s", w.Code, w.Body.String())
			}

			body := decodeError(t, w)
			if body.Error.Code != "invalid_request" {
				t.Fatalf("code = %q", body.Error.Code)
			}
			fields := body.Error.Details.Fields
			if len(fields) != 1 || fields[0].Field != "password" || fields[0].Rule != "max_bytes" {
				t.Fatalf("fields = %+v", fields)
			}
		})
	}

	if _, err := a.users.GetByEmail(context.Background(), "l@x.com"); err == nil {
		t.Fatalf("user was stored with an oversized password")
	}
}

func TestFlow_BlankNameIsRejected(t *testing.T) {
	a := setupApp(t)

	w := a.do(t, http.MethodPost, "/register", `{"name":"   ","email":"blank@x.com","password":"p"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400, body=%s", w.Code, w.Body.String())
	}

	fields := decodeError(t, w).Error.Details.Fields
	if len(fields) != 1 || fields[0].Field != "name" {
		t.Fatalf("fields = %+v", fields)
	}

	if _, err := a.users.GetByEmail(context.Background(), "blank@x.com"); err == nil {
		t.Fatalf("user with blank name was stored")
	}
}

func TestFlow_LoginBodyHasNoToken(t *testing.T) {
	a := setupApp(t)

	w := a.do(t, http.MethodPost, "/login", `{"email":"root@example.com","password":"root-pass"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: got %d", w.Code)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatalf("no session cookie")
	}
	if strings.Contains(w.Body.String(), cookie.Value) || strings.Contains(w.Body.String(), "accessToken") {
		t.Fatalf("login body exposes the session token: %s", w.Body.String())
	}
}
