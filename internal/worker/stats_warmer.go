package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

const (
	// Debounce window - collect events for same partition within this duration
	defaultDebounceWindow = 1 * time.Second

	// Retry configuration
	defaultMaxRetries     = 3
	defaultInitialBackoff = 100 * time.Millisecond

	attemptTimeout = 5 * time.Second
)

// PartitionWarmer recomputes the cached views of a partition
type PartitionWarmer interface {
	WarmPartition(ctx context.Context, p domain.Partition) error
}

// StatsWarmer consumes review events and re-warms the stats of each touched partition
// once its events settle.
type StatsWarmer struct {
	warmer PartitionWarmer
	logger *logger.Logger

	debounceWindow time.Duration
	maxRetries     int
	initialBackoff time.Duration

	mu             sync.Mutex
	pendingUpdates map[domain.Partition]*pendingUpdate
	shuttingDown   bool
	wg             sync.WaitGroup
	ctx            context.Context
	cancel         context.CancelFunc
}

type pendingUpdate struct {
	timestamp time.Time
	timer     *time.Timer
}

// Option customises a StatsWarmer
type Option func(*StatsWarmer)

// WithDebounceWindow overrides how long a partition must be quiet before it is warmed
func WithDebounceWindow(d time.Duration) Option {
	return func(w *StatsWarmer) {
		w.debounceWindow = d
	}
}

// WithRetry overrides the attempt count and the first backoff between attempts
func WithRetry(maxRetries int, initialBackoff time.Duration) Option {
	return func(w *StatsWarmer) {
		w.maxRetries = maxRetries
		w.initialBackoff = initialBackoff
	}
}

// NewStatsWarmer creates a new stats warmer
func NewStatsWarmer(warmer PartitionWarmer, log *logger.Logger, opts ...Option) *StatsWarmer {
	ctx, cancel := context.WithCancel(context.Background())

	w := &StatsWarmer{
		warmer:         warmer,
		logger:         log,
		debounceWindow: defaultDebounceWindow,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		pendingUpdates: make(map[domain.Partition]*pendingUpdate),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleEvent decodes a review event and schedules its partition
func (w *StatsWarmer) HandleEvent(data []byte) error {
	var event domain.ReviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal review event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	p := event.Partition()
	if !p.Valid() {
		// Redelivery cannot fix a malformed event
		w.logger.With("event_type", event.EventType).Warn("Dropping review event without partition")
		return nil
	}

	w.logger.WithPartition(p).WithFields(map[string]any{
		"event_type": event.EventType,
		"timestamp":  event.Timestamp,
	}).Debug("Received review event")

	w.scheduleUpdate(p, event.Timestamp)
	return nil
}

// scheduleUpdate debounces events per partition; a burst of events yields one warm
func (w *StatsWarmer) scheduleUpdate(p domain.Partition, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.shuttingDown {
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	}

	if existing, found := w.pendingUpdates[p]; found {
		if timestamp.Before(existing.timestamp) {
			w.logger.WithPartition(p).Debug("Ignoring stale event")
			return
		}

		// A timer that already fired owns its own wg slot and will find a newer entry
		if existing.timer.Stop() {
			w.wg.Done()
		}
	}

	w.wg.Add(1)
	update := &pendingUpdate{timestamp: timestamp}
	update.timer = time.AfterFunc(w.debounceWindow, func() {
		w.processUpdate(p, update)
	})
	w.pendingUpdates[p] = update
}

// processUpdate warms a partition with retry and exponential backoff
func (w *StatsWarmer) processUpdate(p domain.Partition, update *pendingUpdate) {
	defer w.wg.Done()

	w.mu.Lock()
	if w.pendingUpdates[p] == update {
		delete(w.pendingUpdates, p)
	}
	w.mu.Unlock()

	log := w.logger.WithPartition(p)
	log.Debug("Warming partition stats")

	var lastErr error
	backoff := w.initialBackoff

	for attempt := 0; attempt < w.maxRetries; attempt++ {
		if attempt > 0 {
			log.WithFields(map[string]any{
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying partition warm")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				log.Info("Worker context cancelled, aborting retry")
				return
			}

			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, attemptTimeout)
		err := w.warmer.WarmPartition(ctx, p)
		cancel()

		if err == nil {
			return
		}

		lastErr = err
		log.With("attempt", attempt+1).Error("Failed to warm partition", err)
	}

	if lastErr != nil {
		log.With("max_retries", w.maxRetries).Error("Partition warm failed after all retries", lastErr)
	}
}

// Shutdown stops accepting events, drops pending warms and waits for in-flight ones
func (w *StatsWarmer) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down stats warmer...")

	w.mu.Lock()
	w.shuttingDown = true
	cancelled := 0
	for p, update := range w.pendingUpdates {
		if update.timer.Stop() {
			w.wg.Done()
			cancelled++
		}
		delete(w.pendingUpdates, p)
	}
	w.mu.Unlock()

	// Stop retries of in-flight warms
	w.cancel()

	w.logger.With("cancelled_updates", cancelled).Info("Cancelled pending updates")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight updates completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// GetPendingCount returns the number of partitions waiting for their debounce window
func (w *StatsWarmer) GetPendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pendingUpdates)
}
