package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

// ErrConnectorClosed is returned by a MongoConnector after Close
var ErrConnectorClosed = errors.New("mongodb connector is closed")

// Dialer opens and verifies a MongoDB client
type Dialer func(ctx context.Context, uri string) (*mongo.Client, error)

// MongoConnector owns the process-wide MongoDB client. The client is created on first use;
// concurrent first callers share a single dial and a failed dial is retried on the next call.
type MongoConnector struct {
	cfg    config.MongoConfig
	dial   Dialer
	logger *logger.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	client *mongo.Client
	closed bool
}

// NewMongoConnector creates a connector; no connection is made until first use
func NewMongoConnector(cfg config.MongoConfig, log *logger.Logger) (*MongoConnector, error) {
	return NewMongoConnectorWithDialer(cfg, DialMongo, log)
}

// NewMongoConnectorWithDialer creates a connector with a custom dial function
func NewMongoConnectorWithDialer(cfg config.MongoConfig, dial Dialer, log *logger.Logger) (*MongoConnector, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb URI is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongodb database is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "reviews"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 5 * time.Second
	}

	return &MongoConnector{
		cfg:    cfg,
		dial:   dial,
		logger: log,
	}, nil
}

// DialMongo connects to uri and pings the primary
func DialMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return client, nil
}

// Client returns the shared client, dialing it on first use
func (c *MongoConnector) Client(ctx context.Context) (*mongo.Client, error) {
	c.mu.RLock()
	client, closed := c.client, c.closed
	c.mu.RUnlock()

	if closed {
		return nil, ErrConnectorClosed
	}
	if client != nil {
		return client, nil
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		c.mu.RLock()
		existing := c.client
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// Detached from the caller so one cancelled request does not fail every waiter
		dialCtx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
		defer cancel()

		client, err := c.dial(dialCtx, c.cfg.URI)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed {
			_ = client.Disconnect(context.Background())
			return nil, ErrConnectorClosed
		}
		c.client = client

		c.logger.WithFields(map[string]any{
			"database":   c.cfg.Database,
			"collection": c.cfg.Collection,
		}).Info("MongoDB connection established")

		return client, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*mongo.Client), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Collection returns the reviews collection
func (c *MongoConnector) Collection(ctx context.Context) (*mongo.Collection, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(c.cfg.Database).Collection(c.cfg.Collection), nil
}

// OperationContext bounds ctx by the operation timeout unless the caller already set a deadline
func (c *MongoConnector) OperationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.OperationTimeout <= 0 {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.OperationTimeout)
}

// Ping checks connectivity, dialing if needed
func (c *MongoConnector) Ping(ctx context.Context) error {
	client, err := c.Client(ctx)
	if err != nil {
		return err
	}
	opCtx, cancel := c.OperationContext(ctx)
	defer cancel()
	return client.Ping(opCtx, readpref.Primary())
}

// EnsureIndexes creates the partition and id indexes of the reviews collection
func (c *MongoConnector) EnsureIndexes(ctx context.Context) error {
	coll, err := c.Collection(ctx)
	if err != nil {
		return err
	}

	opCtx, cancel := c.OperationContext(ctx)
	defer cancel()

	names, err := coll.Indexes().CreateMany(opCtx, ReviewIndexes())
	if err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}

	c.logger.WithFields(map[string]any{
		"indexes": names,
	}).Info("MongoDB review indexes ensured")
	return nil
}

// ReviewIndexes lists the indexes backing partition reads and id uniqueness
func ReviewIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}, {Key: "website", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("partition_date"),
		},
		{
			Keys:    bson.D{{Key: "productId", Value: 1}, {Key: "website", Value: 1}, {Key: "rating", Value: -1}},
			Options: options.Index().SetName("partition_rating"),
		},
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("review_id").SetUnique(true),
		},
	}
}

// Close disconnects the client; it is safe to call more than once
func (c *MongoConnector) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close mongodb connection: %w", err)
	}
	c.logger.Info("MongoDB connection closed")
	return nil
}
