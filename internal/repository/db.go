package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
)

// Supported archive drivers.
const (
	DriverPgx    = "pgx"
	DriverSQLite = "sqlite"
)

// Open connects to the archive database. For Postgres it builds a pgx pool
// and wraps it as *sql.DB; the pool is returned so callers can close it.
// For SQLite the pool is nil.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	switch cfg.Driver {
	case DriverPgx:
		return openPgx(ctx, cfg, logger)
	case DriverSQLite:
		logger.Info("opening sqlite archive", "dsn", cfg.DSN)
		db, err := sql.Open(DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		// one writer at a time; sqlite serializes anyway
		db.SetMaxOpenConns(1)
		if err := HealthCheck(ctx, db, cfg.DialTimeout, logger); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return db, nil, nil
	}
	return nil, nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unsupported database driver %q", cfg.Driver), common.ErrInvalidInput)
}

func openPgx(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*sql.DB, *pgxpool.Pool, error) {
	logger.Info("connecting to database", "driver", DriverPgx)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, nil, common.NewAppError(common.CodeConfig, "invalid database dsn", err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "paystubd"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, nil, fmt.Errorf("connect: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return db, pool, nil
}

// Close closes the database connections gracefully.
func Close(db *sql.DB, pool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("closing database connections")
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	logger.Debug("database ping successful")
	return nil
}
