package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	app "github.com/R3E-Network/explorer_api/internal/app"
	"github.com/R3E-Network/explorer_api/internal/app/cache"
	"github.com/R3E-Network/explorer_api/internal/app/httpapi"
	"github.com/R3E-Network/explorer_api/internal/app/storage/memory"
	"github.com/R3E-Network/explorer_api/internal/app/storage/postgres"
	"github.com/R3E-Network/explorer_api/internal/config"
	"github.com/R3E-Network/explorer_api/internal/middleware"
	"github.com/R3E-Network/explorer_api/internal/platform/database"
	"github.com/R3E-Network/explorer_api/internal/platform/migrations"
	"github.com/R3E-Network/explorer_api/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	app     *app.Application
	server  *http.Server
	handler http.Handler
	limiter *middleware.RateLimiter
	cache   *cache.ResponseCache
	db      *sql.DB
}

// NewApplication constructs the explorer from configuration.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	stores, db, err := buildStores(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	a := &Application{
		cfg: cfg,
		log: log,
		app: app.New(stores, log.Named("app"), app.Options{DirectorySpec: cfg.Directory.RefreshSpec}),
		db:  db,
	}

	opts := []httpapi.Option{
		httpapi.WithLogger(log.Named("http")),
		httpapi.WithCORS(middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)),
	}
	if cfg.RateLimit.Enabled {
		var limitOpts []middleware.RateLimitOption
		if cfg.RateLimit.TrustProxy {
			limitOpts = append(limitOpts, middleware.WithTrustedProxy())
		}
		a.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log.Named("ratelimit"), limitOpts...)
		opts = append(opts, httpapi.WithRateLimiter(a.limiter))
	}
	if cfg.Cache.Enabled {
		a.cache = cache.New(cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		}, log.Named("cache"))
		if err := a.cache.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable; responses will be served uncached until it recovers")
		}
		opts = append(opts, httpapi.WithCache(a.cache.Middleware))
	}

	a.handler = httpapi.NewHandler(a.app, opts...)
	a.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Run starts background services and the HTTP server and blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	if a.limiter != nil {
		a.limiter.StartCleanup(ctx, time.Minute)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, background services and
// connections.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis client")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

func buildStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (app.Stores, *sql.DB, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("EXPLORER_STORE=memory; serving an empty in-memory store")
		mem := memory.New()
		return app.Stores{
			Networks: mem, Feeds: mem, Facts: mem,
			Nodes: mem, Sources: mem, Bulletins: mem,
		}, nil, nil
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return app.Stores{}, nil, err
	}
	if cfg.Database.MigrateOnStart {
		if err := migrations.Up(db); err != nil {
			db.Close()
			return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	store := postgres.New(db)
	return app.Stores{
		Networks: store, Feeds: store, Facts: store,
		Nodes: store, Sources: store, Bulletins: store,
	}, db, nil
}
