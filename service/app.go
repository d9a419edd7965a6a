// Package service wires the blog together and implements the operational
// commands of the binary.
package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"postcomm/app/config"
	"postcomm/app/database"
	"postcomm/app/observability"
	"postcomm/app/routes"
	"postcomm/app/sessions"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// sessionGCInterval is how often the Badger value log is compacted
const sessionGCInterval = 10 * time.Minute

// App owns every long-lived resource of the running service
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *sqlx.DB
	Sessions *sessions.Store
	Metrics  *observability.Metrics
	Handler  http.Handler
}

// NewLogger builds the process logger from the configured level and format
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewApp opens the database (applying pending migrations) and the session
// store, and builds the router.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.OpenAndMigrate(cfg.DatabasePath, logger)
	if err != nil {
		return nil, err
	}

	store, err := sessions.Open(cfg.SessionDir, cfg.SessionTTL, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	manager := sessions.NewManager(store, sessions.CookieOptions{
		Name:   cfg.SessionCookie,
		Secure: cfg.CookieSecure,
		MaxAge: cfg.SessionTTL,
	})

	router, err := routes.SetupRoutes(routes.Dependencies{
		DB:         db,
		Sessions:   manager,
		Metrics:    metrics,
		Logger:     logger,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		_ = store.Close()
		_ = db.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Sessions: store,
		Metrics:  metrics,
		Handler:  router,
	}, nil
}

// Serve runs the HTTP server until ctx is cancelled
func (a *App) Serve(ctx context.Context) error {
	gcCtx, stopGC := context.WithCancel(ctx)
	defer stopGC()
	go a.Sessions.RunGC(gcCtx, sessionGCInterval)

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Handler,
		ReadTimeout:       a.Config.ReadTimeout,
		ReadHeaderTimeout: a.Config.ReadTimeout,
		WriteTimeout:      a.Config.WriteTimeout,
	}

	a.Logger.Info("starting blog service", "addr", a.Config.Addr)
	if err := routes.StartServer(ctx, srv, a.Config.ShutdownTimeout); err != nil {
		return err
	}
	a.Logger.Info("blog service stopped")
	return nil
}

// Close releases the database and the session store
func (a *App) Close() error {
	var firstErr error
	if err := a.Sessions.Close(); err != nil {
		firstErr = errors.Wrap(err, "failed to close session store")
	}
	if err := a.DB.Close(); err != nil && firstErr == nil {
		firstErr = errors.Wrap(err, "failed to close database")
	}
	return firstErr
}

// RunServer builds the App and serves until ctx is cancelled
func RunServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("shutdown cleanup failed", "error", err)
		}
	}()
	return app.Serve(ctx)
}
