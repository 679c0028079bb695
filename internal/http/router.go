package http

import (
	"log/slog"
	nethttp "net/http"

	"github.com/geocoder89/usergate/internal/auth"
	"github.com/geocoder89/usergate/internal/config"
	"github.com/geocoder89/usergate/internal/http/handlers"
	"github.com/geocoder89/usergate/internal/http/middlewares"
	"github.com/geocoder89/usergate/internal/notifications"
	"github.com/geocoder89/usergate/internal/observability"
	"github.com/geocoder89/usergate/internal/users"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "usergate"

// Deps is everything the router needs that main builds from config.
type Deps struct {
	Cfg      config.Config
	Users    users.Store
	Sessions *auth.Sessions
	Notifier notifications.Notifier

	// Prom and Metrics are optional; /metrics is only mounted when Metrics is set.
	Prom    *observability.Prom
	Metrics nethttp.Handler

	// Checks are pinged by /readyz.
	Checks map[string]handlers.Pinger
}

func NewRouter(log *slog.Logger, deps Deps) *gin.Engine {
	cfg := deps.Cfg

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewLogNotifier(log)
	}

	sessionMW := middlewares.NewSessionMiddleware(deps.Sessions)

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if cfg.OTLPEndpoint != "" {
		r.Use(otelgin.Middleware(serviceName))
	}
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}
	r.Use(sessionMW.LoadSession())

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// wire up services
	authHandler := handlers.NewAuthHandler(handlers.AuthHandlerConfig{
		Credentials:   auth.NewAuthenticator(deps.Users),
		Sessions:      deps.Sessions,
		Users:         deps.Users,
		Notifier:      notifier,
		Metrics:       loginObserver(deps.Prom),
		SecureCookies: cfg.Env == "prod",
		Log:           log,
	})
	registerHandler := handlers.NewRegisterHandler(users.NewRegistration(deps.Users), log)
	usersHandler := handlers.NewUsersHandler(users.NewService(deps.Users), log)

	// public
	r.POST("/register", registerHandler.Register)
	r.POST("/login", authHandler.Login)
	r.POST("/forgot-password", authHandler.ForgotPassword)

	// signed in
	signedIn := r.Group("/")
	signedIn.Use(sessionMW.RequireSession())
	signedIn.GET("/session", authHandler.Session)
	signedIn.POST("/logout", authHandler.Logout)

	// admin; the role check runs before the body is looked at, and again in the service
	usersGroup := r.Group("/users")
	usersGroup.Use(sessionMW.RequireSession(), usersHandler.RequireAdmin(), middlewares.RequireJSON())
	usersGroup.GET("", usersHandler.List)
	usersGroup.GET("/:id", usersHandler.Get)
	usersGroup.POST("", usersHandler.Create)
	usersGroup.PUT("/:id", usersHandler.Update)
	usersGroup.DELETE("/:id", usersHandler.Delete)

	return r
}

// avoid a typed-nil interface when metrics are off
func loginObserver(p *observability.Prom) handlers.LoginObserver {
	if p == nil {
		return nil
	}
	return p
}
