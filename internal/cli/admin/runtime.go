package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cloo-solutions/docpipe/internal/config"
	"github.com/cloo-solutions/docpipe/internal/database"
	"github.com/cloo-solutions/docpipe/internal/logging"
	"github.com/cloo-solutions/docpipe/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runtime holds the process-wide resources every daemon command needs.
type runtime struct {
	cfg    *config.Config
	log    *zap.Logger
	pool   *pgxpool.Pool
	closer []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closer) - 1; i >= 0; i-- {
		rt.closer[i]()
	}
}

// context returns ctx carrying the process logger.
func (rt *runtime) context(ctx context.Context) context.Context {
	return logging.WithLogger(ctx, rt.log)
}

type runtimeOptions struct {
	migrate   bool
	telemetry bool
}

// openRuntime loads configuration, builds the logger, starts Sentry when a
// DSN is configured and opens the shared connection pool. A pool that cannot
// be opened is fatal to the command.
func openRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.Init(logging.Config{Level: cfg.LogLevel, Development: cfg.Debug})
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: logger}
	rt.closer = append(rt.closer, func() { _ = logger.Sync() })

	if opts.telemetry && cfg.SentryDSN != "" {
		sampleRate := 0.1
		if cfg.SentryEnvironment == "development" {
			sampleRate = 1.0
		}
		shutdown, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing", zap.Error(err))
		} else {
			rt.closer = append(rt.closer, shutdown)
		}
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:             cfg.DatabaseURL,
		MinConns:        cfg.DBMinConns,
		MaxConns:        cfg.DBMaxConns,
		MaxConnIdleTime: cfg.DBMaxConnIdleTime,
		MaxConnLifetime: cfg.DBMaxConnLifetime,
	})
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rt.pool = pool
	rt.closer = append(rt.closer, pool.Close)
	logger.Info("connected to database", zap.Int32("max_conns", cfg.DBMaxConns))

	if opts.migrate {
		if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return rt, nil
}

func addMigrateFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
}

func wantsMigrate(cmd *cobra.Command) bool {
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	return !noMigrate
}

// runMigrations applies the tenant-directory migrations. Per-tenant schemas
// are provisioned by the tenant store when a tenant is created.
func runMigrations(databaseURL string, log *zap.Logger) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("migrations: no migrations applied")
	case err != nil:
		return fmt.Errorf("failed to get migration version: %w", err)
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	case errors.Is(upErr, migrate.ErrNoChange):
		log.Info("migrations: database is up to date", zap.Uint("version", version))
	default:
		log.Info("migrations: applied successfully", zap.Uint("version", version))
	}
	return nil
}
