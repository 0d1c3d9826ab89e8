package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/pkg/retry"
)

// NewPostgresDB opens the review database with the configured pool limits and pings it
func NewPostgresDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	configurePool(db, cfg.Database)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// configurePool applies the pool limits; idle connections never exceed a non-zero open limit
func configurePool(db *sqlx.DB, cfg config.DatabaseConfig) {
	idle := cfg.MaxIdleConns
	if cfg.MaxOpenConns > 0 {
		idle = min(idle, cfg.MaxOpenConns)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// WaitForDB opens the database, retrying under policy while it is not reachable yet
func WaitForDB(ctx context.Context, cfg *config.Config, log *logger.Logger, policy retry.Policy) (*sqlx.DB, error) {
	db, err := retry.Do(ctx, policy, log, "postgres", func(ctx context.Context) (*sqlx.DB, error) {
		return NewPostgresDB(ctx, cfg)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"host":           cfg.Database.Host,
		"database":       cfg.Database.Name,
		"max_open_conns": cfg.Database.MaxOpenConns,
	}).Info("Connected to PostgreSQL")

	return db, nil
}
