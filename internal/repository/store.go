package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/database"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/pkg/retry"
	"github.com/Pesokrava/review_widget/internal/repository/memory"
	"github.com/Pesokrava/review_widget/internal/repository/mongodb"
	"github.com/Pesokrava/review_widget/internal/repository/postgres"
)

// Store is the review repository selected by STORE_DRIVER plus the handle behind it
type Store struct {
	Reviews domain.ReviewRepository

	// Mongo is set for the mongo driver
	Mongo *database.MongoConnector

	// DB is set for the postgres driver
	DB *sqlx.DB

	driver string
	log    *logger.Logger
}

// Open builds the configured store. The MongoDB client is dialed on first use;
// PostgreSQL is waited for up front with retries.
func Open(cfg *config.Config, log *logger.Logger) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		connector, err := database.NewMongoConnector(cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
		return &Store{
			Reviews: mongodb.NewReviewRepository(connector),
			Mongo:   connector,
			driver:  config.DriverMongo,
			log:     log,
		}, nil

	case config.DriverPostgres:
		log.Info("Connecting to PostgreSQL...")
		db, err := database.WaitForDB(context.Background(), cfg, log, retry.Startup)
		if err != nil {
			return nil, err
		}
		return &Store{
			Reviews: postgres.NewReviewRepository(db),
			DB:      db,
			driver:  config.DriverPostgres,
			log:     log,
		}, nil

	case config.DriverMemory:
		log.Warn("Using in-memory review store; reviews are lost on restart")
		return &Store{
			Reviews: memory.NewReviewRepository(),
			driver:  config.DriverMemory,
			log:     log,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// Driver names the backend in use
func (s *Store) Driver() string {
	return s.driver
}

// EnsureIndexes creates the MongoDB review indexes, retrying while the server is unreachable.
// The unique id index is what turns a duplicate id into domain.ErrAlreadyExists, so the API
// calls this before serving. Other drivers get their schema from migrations.
func (s *Store) EnsureIndexes(ctx context.Context, policy retry.Policy) error {
	if s.Mongo == nil {
		return nil
	}

	_, err := retry.Do(ctx, policy, s.log, "mongodb indexes", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.Mongo.EnsureIndexes(ctx)
	})
	return err
}

// Close releases the store connection
func (s *Store) Close(ctx context.Context) error {
	switch {
	case s.Mongo != nil:
		return s.Mongo.Close(ctx)
	case s.DB != nil:
		return s.DB.Close()
	default:
		return nil
	}
}
