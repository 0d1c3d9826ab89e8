package mongodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Pesokrava/review_widget/internal/domain"
)

type staticStore struct {
	coll *mongo.Collection
	err  error
}

func (s staticStore) Collection(ctx context.Context) (*mongo.Collection, error) {
	return s.coll, s.err
}

func (s staticStore) OperationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return ctx, func() {}
}

func (s staticStore) Ping(ctx context.Context) error {
	return s.err
}

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func reviewDoc(id string, rating int32, date time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "id", Value: id},
		{Key: "productId", Value: "product-1"},
		{Key: "website", Value: "ui-app.com"},
		{Key: "name", Value: "Ana"},
		{Key: "rating", Value: rating},
		{Key: "title", Value: "Nice"},
		{Key: "content", Value: "Works well"},
		{Key: "date", Value: primitive.NewDateTimeFromTime(date)},
	}
}

func TestReviewRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	review := &domain.Review{
		ID:        "1700000000000",
		ProductID: "product-1",
		Website:   "ui-app.com",
		Rating:    4,
		Title:     "Nice",
		Content:   "Works well",
		Date:      time.Now().UTC(),
	}

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewReviewRepository(staticStore{coll: mt.Coll})

		assert.NoError(t, repo.Create(context.Background(), review))
	})

	mt.Run("duplicate id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))
		repo := NewReviewRepository(staticStore{coll: mt.Coll})

		assert.ErrorIs(t, repo.Create(context.Background(), review), domain.ErrAlreadyExists)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    91,
			Name:    "ShutdownInProgress",
			Message: "shutting down",
		}))
		repo := NewReviewRepository(staticStore{coll: mt.Coll})

		err := repo.Create(context.Background(), review)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrAlreadyExists)
	})
}

func TestReviewRepository_Find(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	newer := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	older := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mt.Run("decodes documents in server order", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			reviewDoc("b", 5, newer),
			reviewDoc("a", 3, older),
		))
		repo := NewReviewRepository(staticStore{coll: mt.Coll})

		got, err := repo.Find(context.Background(), domain.NewReviewQuery("product-1", "ui-app.com", "all", "newest"))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ID)
		assert.Equal(t, 5, got[0].Rating)
		assert.Equal(t, "ui-app.com", got[0].Website)
		assert.True(t, got[0].Date.Equal(newer))
		assert.Equal(t, "a", got[1].ID)
	})

	mt.Run("empty partition", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		repo := NewReviewRepository(staticStore{coll: mt.Coll})

		got, err := repo.Find(context.Background(), domain.NewReviewQuery("product-1", "ui-app.com", "", ""))
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	mt.Run("query error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 50, Name: "MaxTimeMSExpired", Message: "timeout"}))
		repo := NewReviewRepository(staticStore{coll: mt.Coll})

		_, err := repo.Find(context.Background(), domain.NewReviewQuery("product-1", "ui-app.com", "", ""))
		assert.Error(t, err)
	})
}

func TestReviewRepository_Aggregate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	p := domain.Partition{ProductID: "product-1", Website: "ui-app.com"}

	mt.Run("count and average", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalReviews", Value: int32(3)},
			{Key: "averageRating", Value: 13.0 / 3.0},
		}))
		repo := NewReviewRepository(staticStore{coll: mt.Coll})

		agg, err := repo.Aggregate(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, 3, agg.Count)
		assert.InDelta(t, 4.3333, agg.Average, 1e-3)
	})

	mt.Run("empty partition yields zero aggregate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		repo := NewReviewRepository(staticStore{coll: mt.Coll})

		agg, err := repo.Aggregate(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, domain.RatingAggregate{}, *agg)
	})
}

func TestReviewRepository_StoreUnavailable(t *testing.T) {
	storeErr := errors.New("server selection timeout")
	repo := NewReviewRepository(staticStore{err: storeErr})
	ctx := context.Background()

	assert.ErrorIs(t, repo.Create(ctx, &domain.Review{}), storeErr)
	_, err := repo.Find(ctx, domain.NewReviewQuery("p", "w", "", ""))
	assert.ErrorIs(t, err, storeErr)
	_, err = repo.Aggregate(ctx, domain.Partition{ProductID: "p", Website: "w"})
	assert.ErrorIs(t, err, storeErr)
	assert.ErrorIs(t, repo.Ping(ctx), storeErr)
}

func TestQueryFilter(t *testing.T) {
	q := domain.NewReviewQuery("product-1", "ui-app.com", "3", "")
	assert.Equal(t, bson.D{
		{Key: "productId", Value: "product-1"},
		{Key: "website", Value: "ui-app.com"},
		{Key: "rating", Value: 3},
	}, queryFilter(q))

	q = domain.NewReviewQuery("product-1", "ui-app.com", "all", "")
	assert.Equal(t, bson.D{
		{Key: "productId", Value: "product-1"},
		{Key: "website", Value: "ui-app.com"},
	}, queryFilter(q))
}

func TestSortSpec(t *testing.T) {
	tests := []struct {
		key  domain.SortKey
		want bson.D
	}{
		{domain.SortNewest, bson.D{{Key: "date", Value: -1}, {Key: "id", Value: 1}}},
		{domain.SortOldest, bson.D{{Key: "date", Value: 1}, {Key: "id", Value: 1}}},
		{domain.SortHighest, bson.D{{Key: "rating", Value: -1}, {Key: "date", Value: -1}, {Key: "id", Value: 1}}},
		{domain.SortLowest, bson.D{{Key: "rating", Value: 1}, {Key: "date", Value: -1}, {Key: "id", Value: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, sortSpec(tt.key))
		})
	}
}

func TestStatsPipeline(t *testing.T) {
	pipeline := statsPipeline(domain.Partition{ProductID: "product-1", Website: "ui-app.com"})
	require.Len(t, pipeline, 2)
	assert.Equal(t, "$match", pipeline[0][0].Key)
	assert.Equal(t, "$group", pipeline[1][0].Key)
}
