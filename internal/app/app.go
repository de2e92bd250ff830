package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/heartmarshall/sketch2code/internal/adapter/postgres"
	"github.com/heartmarshall/sketch2code/internal/adapter/postgres/globalconfig"
	"github.com/heartmarshall/sketch2code/internal/adapter/postgres/workspace"
	"github.com/heartmarshall/sketch2code/internal/adapter/provider/sketch2code"
	"github.com/heartmarshall/sketch2code/internal/auth"
	"github.com/heartmarshall/sketch2code/internal/config"
	"github.com/heartmarshall/sketch2code/internal/service/conversion"
	"github.com/heartmarshall/sketch2code/internal/service/session"
	"github.com/heartmarshall/sketch2code/internal/service/settings"
	"github.com/heartmarshall/sketch2code/internal/service/sketch"
	"github.com/heartmarshall/sketch2code/internal/transport/middleware"
	"github.com/heartmarshall/sketch2code/internal/transport/rest"
	"github.com/heartmarshall/sketch2code/migrations"
)

// Run is the application entry point. It loads configuration, connects to
// the database, wires the services and serves HTTP until ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, migrations.FS, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// Repositories
	txm := postgres.NewTxManager(pool)
	workspaceRepo := workspace.New(pool, txm)
	configStore := globalconfig.New(pool)

	// Services
	settingsSvc := settings.NewService(logger, configStore, workspaceRepo, settings.Endpoints{
		APIURL:  cfg.Sketch2Code.APIURL,
		BlobURL: cfg.Sketch2Code.BlobURL,
	})
	sketchSvc := sketch.NewService(logger, workspaceRepo)
	clients := sketch2code.NewFactory(cfg.Sketch2Code.RequestTimeout, logger)
	defaultRemote := clients.For(cfg.Sketch2Code.APIURL, cfg.Sketch2Code.BlobURL)

	registry := session.NewRegistry(
		logger,
		settingsSvc,
		workspaceRepo,
		sketchSvc,
		func(apiURL, blobURL string) session.Remote { return clients.For(apiURL, blobURL) },
		conversion.NewSanitizer(),
		cfg.Sketch2Code.MaxConcurrent,
	)
	lookup := func(installationID string) rest.Session { return registry.Get(installationID) }

	// Transport
	limiter := middleware.NewRateLimiter(time.Minute)
	defer limiter.Stop()

	handler := rest.NewRouter(rest.RouterDeps{
		Health: rest.NewHealthHandler(registry, BuildVersion(),
			rest.Probe{Name: "database", Critical: true, Check: pool.Ping},
			rest.Probe{Name: "sketch2code", Check: defaultRemote.Ping},
		),
		Settings: rest.NewSettingsHandler(settingsSvc, lookup, logger),
		Session:  rest.NewSessionHandler(lookup, logger),
		Verifier: auth.NewHostTokens(cfg.Host.TokenSecret, cfg.Host.TokenIssuer),
		Limiter:  limiter,
		Logger:   logger,
		Server:   cfg.Server,
		CORS:     cfg.CORS,
	})

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.Server.ShutdownTimeout))

	// The parent context is already cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
