package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/usergate/internal/auth"
	"github.com/geocoder89/usergate/internal/config"
	"github.com/geocoder89/usergate/internal/db"
	httpx "github.com/geocoder89/usergate/internal/http"
	"github.com/geocoder89/usergate/internal/http/handlers"
	"github.com/geocoder89/usergate/internal/notifications"
	"github.com/geocoder89/usergate/internal/observability"
	"github.com/geocoder89/usergate/internal/redisclient"
	"github.com/geocoder89/usergate/internal/repo/memory"
	"github.com/geocoder89/usergate/internal/repo/mongostore"
	"github.com/geocoder89/usergate/internal/repo/postgres"
	"github.com/geocoder89/usergate/internal/repo/redisstore"
	"github.com/geocoder89/usergate/internal/users"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const (
	serviceName     = "usergate"
	connectAttempts = 5
)

// userStore is what every storage backend offers.
type userStore interface {
	users.Store
	handlers.Pinger
}

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.Env, cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			sctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdownTracer(sctx)
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	store, closeStore, err := openUserStore(ctx, cfg, prom, log)
	if err != nil {
		log.Error("open user store failed", "driver", cfg.Store, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	checks := map[string]handlers.Pinger{"users": store}

	// logout denylist: shared in redis when configured, per-process otherwise
	var revoked auth.RevocationStore = memory.NewRevokedTokens()
	if cfg.RedisAddr != "" {
		rc := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rc.Close()

		pctx, cancel := config.WithTimeout(3 * time.Second)
		err := rc.Ping(pctx)
		cancel()
		if err != nil {
			log.Error("redis unreachable", "addr", cfg.RedisAddr, "err", err)
			os.Exit(1)
		}

		revoked = redisstore.NewRevokedTokens(rc.Raw(), "")
		checks["redis"] = rc
	}

	seedCtx, cancel := config.WithTimeout(10 * time.Second)
	err = db.EnsureAdminUser(seedCtx, store, cfg)
	cancel()
	if err != nil {
		log.Error("seed admin failed", "err", err)
		os.Exit(1)
	}

	sessions := auth.NewSessions(auth.NewManager(cfg.JWTSecret, cfg.SessionTTL()), revoked, log)

	notifier := notifications.NewProtectedNotifier(notifications.NewLogNotifier(log), notifications.ProtectedNotifierConfig{})

	// set up routers with the log
	router := httpx.NewRouter(log, httpx.Deps{
		Cfg:      cfg,
		Users:    store,
		Sessions: sessions,
		Notifier: notifier,
		Prom:     prom,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Checks:   checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}

// openUserStore picks the backend named by STORE_DRIVER and prepares its schema.
func openUserStore(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (userStore, func(), error) {
	switch cfg.Store {
	case config.StorePostgres:
		var pool *pgxpool.Pool

		err := db.Retry(ctx, log, "postgres", connectAttempts, func(ctx context.Context) error {
			p, err := db.NewPool(ctx, cfg.DBURL, int32(cfg.DBMaxConns))
			pool = p
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}

		mctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := db.Migrate(mctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}

		return postgres.NewUsersRepo(pool, prom), pool.Close, nil

	case config.StoreMongo:
		var client *mongo.Client

		err := db.Retry(ctx, log, "mongo", connectAttempts, func(ctx context.Context) error {
			c, err := mongostore.Connect(ctx, cfg.MongoURI)
			client = c
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}

		database := client.Database(cfg.MongoDB)

		ictx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := mongostore.EnsureIndexes(ictx, database); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ensure indexes: %w", err)
		}

		closeFn := func() {
			dctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}

		return mongostore.NewUsersRepo(database, prom), closeFn, nil

	default:
		log.Warn("using in-memory user store; data is lost on restart")
		return memory.NewUsersRepo(), func() {}, nil
	}
}
