package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

type Manager struct {
	secret     []byte
	sessionTTL time.Duration
}

func NewManager(secret string, sessionTTL time.Duration) *Manager {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}

	return &Manager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
	}
}

// Issue signs a session token for id. The role claim is copied from the identity as is.
func (m *Manager) Issue(id Identity) (token string, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	expiresAt = now.Add(m.sessionTTL)

	// identities built outside NewIdentity may still arrive without a role
	id = NewIdentity(id.ID, id.Email, id.Name, string(id.Role))

	claims := Claims{
		UserID: id.ID,
		Email:  id.Email,
		Name:   id.Name,
		Role:   string(id.Role),
		JTI:    uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   id.ID,
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	token, err = t.SignedString(m.secret)

	return
}

func (m *Manager) ParseAndValidate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256

		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// Parse never fails loudly: a bad, expired or malformed token just means no session.
func (m *Manager) Parse(tokenStr string) (*Session, bool) {
	if tokenStr == "" {
		return nil, false
	}

	claims, err := m.ParseAndValidate(tokenStr)

	if err != nil || claims.UserID == "" {
		return nil, false
	}

	s := &Session{
		Identity: NewIdentity(claims.UserID, claims.Email, claims.Name, claims.Role),
		TokenID:  claims.JTI,
	}

	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Unix()
	}

	return s, true
}
