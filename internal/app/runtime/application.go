package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	app "github.com/salvi-network/salvi-bridge/internal/app"
	"github.com/salvi-network/salvi-bridge/internal/app/config"
	"github.com/salvi-network/salvi-bridge/internal/app/httpapi"
	"github.com/salvi-network/salvi-bridge/internal/app/metrics"
	"github.com/salvi-network/salvi-bridge/internal/app/storage/memory"
	"github.com/salvi-network/salvi-bridge/internal/app/storage/postgres"
	redisstore "github.com/salvi-network/salvi-bridge/internal/app/storage/redis"
	"github.com/salvi-network/salvi-bridge/internal/platform/migrations"
	"github.com/salvi-network/salvi-bridge/pkg/logger"
)

// Application wires configuration, stores, the bridge services and the HTTP
// server, and manages their lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	bridge     *app.Application
	httpServer *http.Server
	db         *sqlx.DB
	redis      *redisstore.Store
}

// NewApplication constructs a bridge instance with default wiring from the
// environment.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	stores, db, redisStore, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	bridge, err := app.New(cfg, stores, log)
	if err != nil {
		return nil, err
	}

	apiHandler, err := httpapi.NewHandler(bridge, httpapi.Options{
		AuthToken:         cfg.Server.AuthToken,
		AuditPath:         cfg.Server.AuditLog,
		AuditLimit:        cfg.Server.AuditLimit,
		RequestsPerSecond: cfg.Server.RPS,
		Burst:             cfg.Server.Burst,
		CORSOrigins:       cfg.Server.Origins(),
	})
	if err != nil {
		return nil, fmt.Errorf("configure http api: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", metrics.InstrumentHandler(apiHandler))

	return &Application{
		cfg: cfg,
		log: log,
		bridge: bridge,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      mux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		db:    db,
		redis: redisStore,
	}, nil
}

// Run starts the bridge services and the HTTP server, then blocks until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.bridge.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("http server listening on %s", a.cfg.Server.Addr())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// Shutdown stops the HTTP server, then the bridge services, then closes the
// stores.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("http server shutdown failed")
	}
	if err := a.bridge.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("service shutdown failed")
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
	return nil
}

// buildStores picks the persistence backend: Postgres when a DSN is set,
// otherwise Redis when an address is set, otherwise process memory.
func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, *sqlx.DB, *redisstore.Store, error) {
	if cfg.Database.DSN != "" {
		db, err := openDatabase(cfg.Database)
		if err != nil {
			return app.Stores{}, nil, nil, err
		}

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := migrations.Apply(migrateCtx, db.DB); err != nil {
			db.Close()
			return app.Stores{}, nil, nil, fmt.Errorf("apply migrations: %w", err)
		}

		log.Info("using postgres store")
		store := postgres.New(db)
		return app.Stores{Checkpoints: store, Payments: store}, db, nil, nil
	}

	if cfg.Redis.Addr != "" {
		store, err := redisstore.New(redisstore.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return app.Stores{}, nil, nil, err
		}
		log.Info("using redis store")
		return app.Stores{Checkpoints: store, Payments: store}, nil, store, nil
	}

	log.Warn("no database or redis configured; state is in-memory and lost on restart")
	store := memory.New()
	return app.Stores{Checkpoints: store, Payments: store}, nil, nil, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
