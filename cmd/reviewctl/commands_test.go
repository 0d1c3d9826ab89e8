package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/repository"
	"github.com/Pesokrava/review_widget/internal/repository/memory"
)

func testConfig() (*config.Config, error) {
	return &config.Config{Env: "test", Store: config.StoreConfig{Driver: config.DriverMemory}}, nil
}

// sharedStore hands every command the same in-memory repository
func sharedStore(repo domain.ReviewRepository) storeOpener {
	return func(cfg *config.Config, log *logger.Logger) (*repository.Store, error) {
		return &repository.Store{Reviews: repo}, nil
	}
}

func run(t *testing.T, open storeOpener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(testConfig, open)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSeedThenStats(t *testing.T) {
	open := sharedStore(memory.NewReviewRepository())

	out, err := run(t, open, "seed", "--product", "sku-42", "--website", "ui-app.com", "--count", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 7 reviews into sku-42/ui-app.com")

	out, err = run(t, open, "stats", "--product", "sku-42", "--website", "ui-app.com")
	require.NoError(t, err)

	var stats domain.ReviewStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 7, stats.TotalReviews)
	assert.GreaterOrEqual(t, stats.AverageRating, 1.0)
	assert.LessOrEqual(t, stats.AverageRating, 5.0)
}

func TestStats_EmptyPartition(t *testing.T) {
	out, err := run(t, sharedStore(memory.NewReviewRepository()), "stats", "--product", "none", "--website", "ui-app.com")

	require.NoError(t, err)
	assert.JSONEq(t, `{"totalReviews":0,"averageRating":0}`, out)
}

func TestSeed_RequiresPartitionFlags(t *testing.T) {
	_, err := run(t, sharedStore(memory.NewReviewRepository()), "seed", "--product", "sku-42")

	assert.Error(t, err)
}

func TestSeed_RejectsNonPositiveCount(t *testing.T) {
	_, err := run(t, sharedStore(memory.NewReviewRepository()), "seed", "--product", "sku-42", "--website", "ui-app.com", "--count", "0")

	assert.EqualError(t, err, "--count must be at least 1")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	_, err := run(t, sharedStore(memory.NewReviewRepository()), "migrate")

	assert.EqualError(t, err, "migrate requires STORE_DRIVER=postgres")
}

func TestEnsureIndexes_RequiresMongo(t *testing.T) {
	_, err := run(t, sharedStore(memory.NewReviewRepository()), "ensure-indexes")

	assert.EqualError(t, err, "ensure-indexes requires STORE_DRIVER=mongo")
}

func TestOpenFailureIsReported(t *testing.T) {
	failing := func(cfg *config.Config, log *logger.Logger) (*repository.Store, error) {
		return nil, errors.New("unsupported store driver")
	}

	_, err := run(t, failing, "stats", "--product", "sku-42", "--website", "ui-app.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open store")
}
