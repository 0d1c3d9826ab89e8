package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Pesokrava/review_widget/internal/domain"
)

// Store hands out the reviews collection and bounds each operation
type Store interface {
	Collection(ctx context.Context) (*mongo.Collection, error)
	OperationContext(ctx context.Context) (context.Context, context.CancelFunc)
	Ping(ctx context.Context) error
}

// ReviewRepository implements domain.ReviewRepository for MongoDB
type ReviewRepository struct {
	store Store
}

// NewReviewRepository creates a new MongoDB review repository
func NewReviewRepository(store Store) *ReviewRepository {
	return &ReviewRepository{store: store}
}

// Create inserts one review document
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	coll, err := r.store.Collection(ctx)
	if err != nil {
		return err
	}

	opCtx, cancel := r.store.OperationContext(ctx)
	defer cancel()

	if _, err := coll.InsertOne(opCtx, review); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// Find returns the partition's reviews matching the query, sorted
func (r *ReviewRepository) Find(ctx context.Context, query domain.ReviewQuery) ([]domain.Review, error) {
	coll, err := r.store.Collection(ctx)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := r.store.OperationContext(ctx)
	defer cancel()

	cursor, err := coll.Find(opCtx, queryFilter(query), options.Find().SetSort(sortSpec(query.Sort)))
	if err != nil {
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}

	reviews := []domain.Review{}
	if err := cursor.All(opCtx, &reviews); err != nil {
		return nil, fmt.Errorf("failed to decode reviews: %w", err)
	}
	return reviews, nil
}

// Aggregate counts and averages a partition in one pipeline
func (r *ReviewRepository) Aggregate(ctx context.Context, partition domain.Partition) (*domain.RatingAggregate, error) {
	coll, err := r.store.Collection(ctx)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := r.store.OperationContext(ctx)
	defer cancel()

	cursor, err := coll.Aggregate(opCtx, statsPipeline(partition))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reviews: %w", err)
	}

	var rows []struct {
		TotalReviews  int     `bson:"totalReviews"`
		AverageRating float64 `bson:"averageRating"`
	}
	if err := cursor.All(opCtx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode review stats: %w", err)
	}

	if len(rows) == 0 {
		return &domain.RatingAggregate{}, nil
	}
	return &domain.RatingAggregate{
		Count:   rows[0].TotalReviews,
		Average: rows[0].AverageRating,
	}, nil
}

// Ping checks the store is reachable
func (r *ReviewRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func partitionFilter(p domain.Partition) bson.D {
	return bson.D{
		{Key: "productId", Value: p.ProductID},
		{Key: "website", Value: p.Website},
	}
}

func queryFilter(q domain.ReviewQuery) bson.D {
	filter := partitionFilter(q.Partition)
	if q.Rating != nil {
		filter = append(filter, bson.E{Key: "rating", Value: *q.Rating})
	}
	return filter
}

// sortSpec mirrors domain.SortKey.Less so every backend returns the same order
func sortSpec(k domain.SortKey) bson.D {
	switch k {
	case domain.SortOldest:
		return bson.D{{Key: "date", Value: 1}, {Key: "id", Value: 1}}
	case domain.SortHighest:
		return bson.D{{Key: "rating", Value: -1}, {Key: "date", Value: -1}, {Key: "id", Value: 1}}
	case domain.SortLowest:
		return bson.D{{Key: "rating", Value: 1}, {Key: "date", Value: -1}, {Key: "id", Value: 1}}
	default:
		return bson.D{{Key: "date", Value: -1}, {Key: "id", Value: 1}}
	}
}

func statsPipeline(p domain.Partition) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: partitionFilter(p)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "totalReviews", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "averageRating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	}
}
