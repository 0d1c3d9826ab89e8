package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Pesokrava/review_widget/internal/domain"
)

// ReviewRepository is an in-process review store for development and tests
type ReviewRepository struct {
	mu         sync.RWMutex
	partitions map[domain.Partition][]domain.Review
	ids        map[string]struct{}
}

// NewReviewRepository creates an empty in-memory repository
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{
		partitions: make(map[domain.Partition][]domain.Review),
		ids:        make(map[string]struct{}),
	}
}

// Create appends a review to its partition
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ids[review.ID]; exists {
		return domain.ErrAlreadyExists
	}

	p := review.Partition()
	r.partitions[p] = append(r.partitions[p], *review)
	r.ids[review.ID] = struct{}{}
	return nil
}

// Find returns a sorted copy of the matching reviews
func (r *ReviewRepository) Find(ctx context.Context, query domain.ReviewQuery) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	stored := r.partitions[query.Partition]
	reviews := make([]domain.Review, 0, len(stored))
	for _, review := range stored {
		if query.Matches(review) {
			reviews = append(reviews, review)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(reviews, func(i, j int) bool {
		return query.Sort.Less(reviews[i], reviews[j])
	})
	return reviews, nil
}

// Aggregate computes count and mean rating of a partition
func (r *ReviewRepository) Aggregate(ctx context.Context, partition domain.Partition) (*domain.RatingAggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.partitions[partition]
	if len(stored) == 0 {
		return &domain.RatingAggregate{}, nil
	}

	sum := 0
	for _, review := range stored {
		sum += review.Rating
	}
	return &domain.RatingAggregate{
		Count:   len(stored),
		Average: float64(sum) / float64(len(stored)),
	}, nil
}

// Ping always succeeds
func (r *ReviewRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
