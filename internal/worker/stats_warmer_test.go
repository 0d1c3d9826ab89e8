package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

const testWindow = 50 * time.Millisecond

var testPartition = domain.Partition{ProductID: "sku-42", Website: "ui-app.com"}

// recordingWarmer counts warms per partition and fails the first failures calls
type recordingWarmer struct {
	mu       sync.Mutex
	calls    map[domain.Partition]int
	failures int
	block    chan struct{}
}

func newRecordingWarmer() *recordingWarmer {
	return &recordingWarmer{calls: make(map[domain.Partition]int)}
}

func (r *recordingWarmer) WarmPartition(ctx context.Context, p domain.Partition) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[p]++
	if r.failures > 0 {
		r.failures--
		return errors.New("store unavailable")
	}
	return nil
}

func (r *recordingWarmer) count(p domain.Partition) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[p]
}

func eventData(t *testing.T, p domain.Partition, ts time.Time) []byte {
	t.Helper()
	data, err := json.Marshal(domain.ReviewEvent{
		EventType: domain.EventReviewCreated,
		Timestamp: ts,
		ProductID: p.ProductID,
		Website:   p.Website,
	})
	require.NoError(t, err)
	return data
}

func setupTestWarmer(warmer PartitionWarmer) *StatsWarmer {
	return NewStatsWarmer(warmer, logger.New("test"),
		WithDebounceWindow(testWindow),
		WithRetry(3, 10*time.Millisecond),
	)
}

func TestStatsWarmer_HandleEvent_Success(t *testing.T) {
	warmer := newRecordingWarmer()
	w := setupTestWarmer(warmer)

	require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))
	assert.Equal(t, 1, w.GetPendingCount())

	assert.Eventually(t, func() bool { return warmer.count(testPartition) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, w.GetPendingCount())
	require.NoError(t, w.Shutdown(context.Background()))
}

func TestStatsWarmer_HandleEvent_InvalidJSON(t *testing.T) {
	w := setupTestWarmer(newRecordingWarmer())

	err := w.HandleEvent([]byte(`{invalid json}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestStatsWarmer_HandleEvent_MissingPartitionIsDropped(t *testing.T) {
	w := setupTestWarmer(newRecordingWarmer())

	err := w.HandleEvent(eventData(t, domain.Partition{ProductID: "sku-42"}, time.Now()))

	assert.NoError(t, err)
	assert.Equal(t, 0, w.GetPendingCount())
}

func TestStatsWarmer_Debouncing_MultipleEvents(t *testing.T) {
	warmer := newRecordingWarmer()
	w := setupTestWarmer(warmer)

	for i := 0; i < 10; i++ {
		require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))
		time.Sleep(testWindow / 5)
	}
	assert.Equal(t, 1, w.GetPendingCount())

	assert.Eventually(t, func() bool { return w.GetPendingCount() == 0 }, time.Second, 10*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
	assert.Equal(t, 1, warmer.count(testPartition))
}

func TestStatsWarmer_IgnoresStaleEvents(t *testing.T) {
	warmer := newRecordingWarmer()
	w := setupTestWarmer(warmer)
	now := time.Now()

	require.NoError(t, w.HandleEvent(eventData(t, testPartition, now)))
	require.NoError(t, w.HandleEvent(eventData(t, testPartition, now.Add(-time.Minute))))

	assert.Equal(t, 1, w.GetPendingCount())
	assert.Eventually(t, func() bool { return warmer.count(testPartition) == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
}

func TestStatsWarmer_PartitionsAreIndependent(t *testing.T) {
	warmer := newRecordingWarmer()
	w := setupTestWarmer(warmer)
	other := domain.Partition{ProductID: "sku-42", Website: "other.example"}

	require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))
	require.NoError(t, w.HandleEvent(eventData(t, other, time.Now())))
	assert.Equal(t, 2, w.GetPendingCount())

	assert.Eventually(t, func() bool {
		return warmer.count(testPartition) == 1 && warmer.count(other) == 1
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
}

func TestStatsWarmer_RetriesFailedWarm(t *testing.T) {
	warmer := newRecordingWarmer()
	warmer.failures = 2
	w := setupTestWarmer(warmer)

	require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))

	assert.Eventually(t, func() bool { return warmer.count(testPartition) == 3 }, time.Second, 10*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
}

func TestStatsWarmer_GivesUpAfterMaxRetries(t *testing.T) {
	warmer := newRecordingWarmer()
	warmer.failures = 10
	w := setupTestWarmer(warmer)

	require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))

	assert.Eventually(t, func() bool { return warmer.count(testPartition) == 3 }, time.Second, 10*time.Millisecond)
	require.NoError(t, w.Shutdown(context.Background()))
	assert.Equal(t, 3, warmer.count(testPartition))
}

func TestStatsWarmer_Shutdown_CancelsPending(t *testing.T) {
	warmer := newRecordingWarmer()
	w := NewStatsWarmer(warmer, logger.New("test"), WithDebounceWindow(time.Hour))

	require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))
	require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Shutdown(ctx))

	assert.Equal(t, 0, w.GetPendingCount())
	assert.Equal(t, 0, warmer.count(testPartition))
}

func TestStatsWarmer_Shutdown_IgnoresNewEvents(t *testing.T) {
	w := setupTestWarmer(newRecordingWarmer())
	require.NoError(t, w.Shutdown(context.Background()))

	require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))
	assert.Equal(t, 0, w.GetPendingCount())
}

func TestStatsWarmer_Shutdown_AbortsInFlightWarm(t *testing.T) {
	warmer := newRecordingWarmer()
	warmer.block = make(chan struct{})
	w := setupTestWarmer(warmer)

	require.NoError(t, w.HandleEvent(eventData(t, testPartition, time.Now())))
	assert.Eventually(t, func() bool { return w.GetPendingCount() == 0 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, w.Shutdown(ctx))
}
