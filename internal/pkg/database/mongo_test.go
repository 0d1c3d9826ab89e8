package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

func testMongoConfig() config.MongoConfig {
	return config.MongoConfig{
		URI:              "mongodb://127.0.0.1:27017",
		Database:         "reviews-db",
		Collection:       "reviews",
		ConnectTimeout:   time.Second,
		OperationTimeout: 2 * time.Second,
	}
}

// lazyClient builds a client without contacting a server
func lazyClient(t *testing.T) *mongo.Client {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:27017"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client
}

func TestNewMongoConnector_Validation(t *testing.T) {
	_, err := NewMongoConnector(config.MongoConfig{}, logger.Nop())
	assert.Error(t, err)

	_, err = NewMongoConnector(config.MongoConfig{URI: "mongodb://localhost:27017"}, logger.Nop())
	assert.Error(t, err)
}

func TestMongoConnector_ConcurrentFirstUseDialsOnce(t *testing.T) {
	client := lazyClient(t)
	var dials atomic.Int32

	connector, err := NewMongoConnectorWithDialer(testMongoConfig(), func(ctx context.Context, uri string) (*mongo.Client, error) {
		dials.Add(1)
		time.Sleep(50 * time.Millisecond)
		return client, nil
	}, logger.Nop())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*mongo.Client, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := connector.Client(context.Background())
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), dials.Load())
	for _, c := range results {
		assert.Same(t, client, c)
	}

	// Reuse after initialisation does not dial again
	_, err = connector.Client(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), dials.Load())
}

func TestMongoConnector_FailedDialIsRetried(t *testing.T) {
	client := lazyClient(t)
	var dials atomic.Int32

	connector, err := NewMongoConnectorWithDialer(testMongoConfig(), func(ctx context.Context, uri string) (*mongo.Client, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("connection refused")
		}
		return client, nil
	}, logger.Nop())
	require.NoError(t, err)

	_, err = connector.Client(context.Background())
	require.Error(t, err)

	got, err := connector.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, client, got)
	assert.Equal(t, int32(2), dials.Load())
}

func TestMongoConnector_CallerCancellationDoesNotAbortDial(t *testing.T) {
	client := lazyClient(t)
	release := make(chan struct{})

	connector, err := NewMongoConnectorWithDialer(testMongoConfig(), func(ctx context.Context, uri string) (*mongo.Client, error) {
		<-release
		return client, nil
	}, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = connector.Client(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	got, err := connector.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, client, got)
}

func TestMongoConnector_Collection(t *testing.T) {
	client := lazyClient(t)
	connector, err := NewMongoConnectorWithDialer(testMongoConfig(), func(ctx context.Context, uri string) (*mongo.Client, error) {
		return client, nil
	}, logger.Nop())
	require.NoError(t, err)

	coll, err := connector.Collection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "reviews", coll.Name())
	assert.Equal(t, "reviews-db", coll.Database().Name())
}

func TestMongoConnector_CloseIsIdempotent(t *testing.T) {
	connector, err := NewMongoConnectorWithDialer(testMongoConfig(), func(ctx context.Context, uri string) (*mongo.Client, error) {
		return nil, errors.New("unused")
	}, logger.Nop())
	require.NoError(t, err)

	require.NoError(t, connector.Close(context.Background()))
	require.NoError(t, connector.Close(context.Background()))

	_, err = connector.Client(context.Background())
	assert.ErrorIs(t, err, ErrConnectorClosed)
}

func TestMongoConnector_OperationContext(t *testing.T) {
	connector, err := NewMongoConnectorWithDialer(testMongoConfig(), DialMongo, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := connector.OperationContext(context.Background())
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	remaining := time.Until(deadline)
	assert.True(t, remaining > 0 && remaining <= 2*time.Second, "unexpected remaining timeout: %v", remaining)

	parent, parentCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer parentCancel()
	ctx, cancel = connector.OperationContext(parent)
	defer cancel()
	parentDeadline, _ := parent.Deadline()
	got, _ := ctx.Deadline()
	assert.True(t, got.Equal(parentDeadline))
}

func TestReviewIndexes(t *testing.T) {
	indexes := ReviewIndexes()
	require.Len(t, indexes, 3)

	unique := indexes[2].Options
	require.NotNil(t, unique.Unique)
	assert.True(t, *unique.Unique)
	assert.Equal(t, "review_id", *unique.Name)
}
