package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
	"github.com/Pesokrava/review_widget/internal/pkg/metrics"
	"github.com/Pesokrava/review_widget/internal/pkg/validator"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ReviewCache is the partition cache used in front of the store.
// Lookups return domain.ErrNotFound on miss.
type ReviewCache interface {
	Generation(ctx context.Context, p domain.Partition) (int64, error)
	GetReviews(ctx context.Context, q domain.ReviewQuery, gen int64) ([]domain.Review, error)
	SetReviews(ctx context.Context, q domain.ReviewQuery, gen int64, reviews []domain.Review) error
	GetStats(ctx context.Context, p domain.Partition, gen int64) (*domain.ReviewStats, error)
	SetStats(ctx context.Context, p domain.Partition, gen int64, stats domain.ReviewStats) error
	InvalidatePartition(ctx context.Context, p domain.Partition) error
}

// ReviewList is the result of a partition query. Degraded is set when the store failed
// and the empty list stands in for the real answer.
type ReviewList struct {
	Reviews  []domain.Review
	Degraded bool
}

// StatsResult is the summary of a partition. Degraded has the same meaning as on ReviewList.
type StatsResult struct {
	domain.ReviewStats
	Degraded bool
}

const (
	defaultInvalidateAttempts = 3
	defaultInvalidateBackoff  = 50 * time.Millisecond
)

// Service implements review submission, partition queries and stats.
// Cache and publisher are optional; a nil value disables them.
type Service struct {
	repo      domain.ReviewRepository
	cache     ReviewCache
	publisher EventPublisher
	logger    *logger.Logger
	now       func() time.Time

	invalidateAttempts int
	invalidateBackoff  time.Duration

	// dirty holds partitions written to while their generation could not be bumped.
	// Reads of a dirty partition skip the cache until a bump succeeds.
	dirtyMu sync.Mutex
	dirty   map[domain.Partition]struct{}
}

// NewService creates a new review service
func NewService(
	repo domain.ReviewRepository,
	cache ReviewCache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		logger:    log,
		now:       time.Now,

		invalidateAttempts: defaultInvalidateAttempts,
		invalidateBackoff:  defaultInvalidateBackoff,
		dirty:              make(map[domain.Partition]struct{}),
	}
}

// SubmitReview validates and stores a review. On success the partition's cached views are
// invalidated before returning, so the next read of the partition sees the review.
func (s *Service) SubmitReview(ctx context.Context, review *domain.Review) error {
	if review == nil {
		return &domain.ValidationError{Field: "review", Reason: "is required"}
	}
	review.NormalizePartition()

	log := s.logger.WithPartition(review.Partition())

	if err := validator.Struct(review); err != nil {
		log.Warnf("Review validation failed: %v", err)
		return err
	}

	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			log.With("review_id", review.ID).Warn("Review id already stored")
			return err
		}
		metrics.StoreErrors.WithLabelValues(metrics.OpSubmit).Inc()
		log.Error("Failed to store review", err)
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	metrics.ReviewsSubmitted.Inc()

	// The write is durable; finish invalidation even if the caller went away
	s.invalidate(context.WithoutCancel(ctx), review.Partition())
	s.publishEvent(review)

	log.WithFields(map[string]any{
		"review_id": review.ID,
		"rating":    review.Rating,
	}).Info("Review stored")

	return nil
}

// QueryReviews returns the reviews of a partition, filtered and sorted. A store failure yields
// an empty, degraded list rather than an error; only a missing partition key is an error.
func (s *Service) QueryReviews(ctx context.Context, productID, website, filter, sort string) (*ReviewList, error) {
	q := domain.NewReviewQuery(productID, website, filter, sort)
	if !q.Partition.Valid() {
		return nil, missingPartition(q.Partition)
	}

	log := s.logger.WithPartition(q.Partition)

	gen, cacheable := s.generation(ctx, q.Partition, metrics.OpQuery)
	if cacheable {
		reviews, err := s.cache.GetReviews(ctx, q, gen)
		if err == nil {
			metrics.CacheRequests.WithLabelValues(metrics.OpQuery, "hit").Inc()
			return &ReviewList{Reviews: reviews}, nil
		}
		s.recordCacheMiss(log, metrics.OpQuery, err)
	}

	reviews, err := s.repo.Find(ctx, q)
	if err != nil {
		s.degraded(log, metrics.OpQuery, err)
		return &ReviewList{Reviews: []domain.Review{}, Degraded: true}, nil
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}

	if cacheable {
		if err := s.cache.SetReviews(ctx, q, gen, reviews); err != nil {
			log.Warnf("Failed to cache reviews: %v", err)
		}
	}

	return &ReviewList{Reviews: reviews}, nil
}

// GetReviewStats returns count and rounded average rating of a partition. A store failure
// yields {0, 0} marked degraded.
func (s *Service) GetReviewStats(ctx context.Context, productID, website string) (*StatsResult, error) {
	p := domain.NewPartition(productID, website)
	if !p.Valid() {
		return nil, missingPartition(p)
	}

	log := s.logger.WithPartition(p)

	gen, cacheable := s.generation(ctx, p, metrics.OpStats)
	if cacheable {
		stats, err := s.cache.GetStats(ctx, p, gen)
		if err == nil {
			metrics.CacheRequests.WithLabelValues(metrics.OpStats, "hit").Inc()
			return &StatsResult{ReviewStats: *stats}, nil
		}
		s.recordCacheMiss(log, metrics.OpStats, err)
	}

	stats, err := s.computeStats(ctx, p)
	if err != nil {
		s.degraded(log, metrics.OpStats, err)
		return &StatsResult{Degraded: true}, nil
	}

	if cacheable {
		if err := s.cache.SetStats(ctx, p, gen, stats); err != nil {
			log.Warnf("Failed to cache stats: %v", err)
		}
	}

	return &StatsResult{ReviewStats: stats}, nil
}

// WarmPartition recomputes the stats of a partition into the cache. Unlike the read path it
// reports store errors so the caller can retry.
func (s *Service) WarmPartition(ctx context.Context, p domain.Partition) error {
	if !p.Valid() {
		return missingPartition(p)
	}
	if s.cache == nil {
		return nil
	}

	gen, err := s.cache.Generation(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to read partition generation: %w", err)
	}

	stats, err := s.computeStats(ctx, p)
	if err != nil {
		metrics.StoreErrors.WithLabelValues(metrics.OpStats).Inc()
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if err := s.cache.SetStats(ctx, p, gen, stats); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}

	s.logger.WithPartition(p).WithFields(map[string]any{
		"total_reviews":  stats.TotalReviews,
		"average_rating": stats.AverageRating,
	}).Debug("Partition stats warmed")

	return nil
}

// Ping checks the review store
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) computeStats(ctx context.Context, p domain.Partition) (domain.ReviewStats, error) {
	agg, err := s.repo.Aggregate(ctx, p)
	if err != nil {
		return domain.ReviewStats{}, err
	}
	if agg == nil || agg.Count == 0 {
		return domain.ReviewStats{}, nil
	}
	return domain.ReviewStats{
		TotalReviews:  agg.Count,
		AverageRating: domain.RoundRating(agg.Average),
	}, nil
}

// generation reports the cache generation to read and fill under; false disables the cache
// for this request.
func (s *Service) generation(ctx context.Context, p domain.Partition, op string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	if s.isDirty(p) && !s.bumpGeneration(ctx, p) {
		metrics.CacheRequests.WithLabelValues(op, "bypass").Inc()
		return 0, false
	}
	gen, err := s.cache.Generation(ctx, p)
	if err != nil {
		metrics.CacheRequests.WithLabelValues(op, "error").Inc()
		s.logger.WithPartition(p).Warnf("Partition cache unavailable: %v", err)
		return 0, false
	}
	return gen, true
}

func (s *Service) recordCacheMiss(log *logger.Logger, op string, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		metrics.CacheRequests.WithLabelValues(op, "miss").Inc()
		log.Debugf("Cache miss (%s)", op)
		return
	}
	metrics.CacheRequests.WithLabelValues(op, "error").Inc()
	log.Warnf("Cache read failed (%s): %v", op, err)
}

func (s *Service) degraded(log *logger.Logger, op string, err error) {
	metrics.StoreDegraded.WithLabelValues(op).Inc()
	metrics.StoreErrors.WithLabelValues(op).Inc()
	log.With("operation", op).Error("Review store unavailable, serving empty result", err)
}

// invalidate bumps the partition generation with retry. When every attempt fails the
// partition is marked dirty, so this process never serves its cached views until a bump
// succeeds.
func (s *Service) invalidate(ctx context.Context, p domain.Partition) {
	if s.cache == nil {
		return
	}

	log := s.logger.WithPartition(p)
	backoff := s.invalidateBackoff
	var lastErr error

retry:
	for attempt := 0; attempt < s.invalidateAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				break retry
			}
			backoff *= 2
		}

		lastErr = s.cache.InvalidatePartition(ctx, p)
		if lastErr == nil {
			s.clearDirty(p)
			return
		}
		log.With("attempt", attempt+1).Warnf("Failed to invalidate partition cache: %v", lastErr)
	}

	s.markDirty(p)
	log.Error("Partition cache invalidation failed, bypassing cache for partition", lastErr)
}

// bumpGeneration retries the invalidation of a dirty partition once; true when it is clean again
func (s *Service) bumpGeneration(ctx context.Context, p domain.Partition) bool {
	if err := s.cache.InvalidatePartition(ctx, p); err != nil {
		s.logger.WithPartition(p).Warnf("Dirty partition still cannot be invalidated: %v", err)
		return false
	}
	s.clearDirty(p)
	return true
}

func (s *Service) isDirty(p domain.Partition) bool {
	s.dirtyMu.Lock()
	defer s.dirtyMu.Unlock()
	_, ok := s.dirty[p]
	return ok
}

func (s *Service) markDirty(p domain.Partition) {
	s.dirtyMu.Lock()
	s.dirty[p] = struct{}{}
	s.dirtyMu.Unlock()
}

func (s *Service) clearDirty(p domain.Partition) {
	s.dirtyMu.Lock()
	delete(s.dirty, p)
	s.dirtyMu.Unlock()
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(review *domain.Review) {
	if s.publisher == nil {
		return
	}

	event := domain.ReviewEvent{
		EventType: domain.EventReviewCreated,
		Timestamp: s.now().UTC(),
		ProductID: review.ProductID,
		Website:   review.Website,
		Review:    review,
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal event for review %s", review.ID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), domain.ReviewEventsSubject, data); err != nil {
			s.logger.Errorf(err, "Failed to publish event for review %s", review.ID)
		}
	}()
}

func missingPartition(p domain.Partition) error {
	if p.ProductID == "" {
		return &domain.ValidationError{Field: "productId", Reason: "is required"}
	}
	return &domain.ValidationError{Field: "website", Reason: "is required"}
}
