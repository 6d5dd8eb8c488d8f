package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"bizbooks-backend/internal/infrastructure/config"
)

// ConnectionPool wraps the pgx pool with the settings the billing
// engine needs: short statement timeouts, read-committed isolation and
// a transaction helper.
type ConnectionPool struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewConnectionPool creates a connection pool from the database config
func NewConnectionPool(cfg *config.DatabaseConfig, logger *zap.Logger) (*ConnectionPool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolConfig.MaxConns = 25
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}
	poolConfig.MaxConnIdleTime = 10 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	poolConfig.ConnConfig.ConnectTimeout = 5 * time.Second
	poolConfig.ConnConfig.RuntimeParams = map[string]string{
		"application_name":              "bizbooks_backend",
		"timezone":                      "UTC",
		"lock_timeout":                  "10s",
		"statement_timeout":             "30s",
		"default_transaction_isolation": "read committed",
	}

	poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		logger.Debug("establishing database connection",
			zap.String("host", cc.Host),
			zap.Uint16("port", cc.Port))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection pool initialized",
		zap.Int("max_connections", int(poolConfig.MaxConns)))

	return &ConnectionPool{pool: pool, logger: logger}, nil
}

// Pool returns the underlying pgx pool
func (p *ConnectionPool) Pool() *pgxpool.Pool {
	return p.pool
}

// Transaction executes a function within a database transaction
func (p *ConnectionPool) Transaction(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, fn)
}

// Ping checks connectivity
func (p *ConnectionPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes all database connections
func (p *ConnectionPool) Close() {
	p.pool.Close()
	p.logger.Info("database connection pool closed")
}

// GetDB returns a standard database/sql DB for compatibility
func (p *ConnectionPool) GetDB() *sql.DB {
	return stdlib.OpenDBFromPool(p.pool)
}
