package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// DSN renders the pgx connection string
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 5
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("[DATABASE] Connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("[DATABASE] Connection closed")
	}
}

// migrations create the journal tables
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS trade_log (
		id BIGSERIAL PRIMARY KEY,
		instrument VARCHAR(20) NOT NULL,
		side VARCHAR(4) NOT NULL,
		action VARCHAR(10) NOT NULL,
		quantity DECIMAL(30, 10) NOT NULL,
		price DECIMAL(30, 10) NOT NULL,
		order_id VARCHAR(64),
		stop_loss DECIMAL(30, 10),
		target DECIMAL(30, 10),
		commission DECIMAL(30, 10) NOT NULL DEFAULT 0,
		risk_reward_ratio DECIMAL(10, 4),
		pnl DECIMAL(30, 10),
		reason TEXT,
		traded_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_log_instrument ON trade_log(instrument)`,
	`CREATE INDEX IF NOT EXISTS idx_trade_log_traded_at ON trade_log(traded_at DESC)`,

	`CREATE TABLE IF NOT EXISTS portfolio_metrics (
		id BIGSERIAL PRIMARY KEY,
		sharpe_ratio DOUBLE PRECISION NOT NULL,
		sortino_ratio DOUBLE PRECISION NOT NULL,
		calmar_ratio DOUBLE PRECISION NOT NULL,
		composite_score DOUBLE PRECISION NOT NULL,
		max_drawdown DOUBLE PRECISION NOT NULL,
		current_drawdown DOUBLE PRECISION NOT NULL,
		current_value DOUBLE PRECISION NOT NULL,
		total_return DOUBLE PRECISION NOT NULL,
		realized_pnl DOUBLE PRECISION NOT NULL,
		total_trades INT NOT NULL,
		snapshot JSONB,
		recorded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_portfolio_metrics_recorded_at ON portfolio_metrics(recorded_at DESC)`,
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("[DATABASE] Running migrations...")

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Printf("[DATABASE] %d migrations applied", len(migrations))
	return nil
}
