package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

const (
	// StreamName is the JetStream stream for review events
	StreamName = "REVIEWS"

	// StreamSubjects defines the subjects this stream listens to
	StreamSubjects = domain.ReviewEventsSubject

	// ConsumerName is the durable consumer of the stats warmer
	ConsumerName = "stats-warmer"

	// MaxDeliveryAttempts bounds redelivery; a dropped event only leaves the cache cold
	MaxDeliveryAttempts = 3

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 30 * time.Second
)

// JetStreamManager is the part of nats.JetStreamContext used to provision streams
type JetStreamManager interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	ConsumerInfo(stream, name string, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
	AddConsumer(stream string, cfg *nats.ConsumerConfig, opts ...nats.JSOpt) (*nats.ConsumerInfo, error)
}

// StreamConfig holds the JetStream stream configuration
type StreamConfig struct {
	js     JetStreamManager
	logger *logger.Logger
}

// NewStreamConfig creates a new stream configuration helper
func NewStreamConfig(js JetStreamManager, log *logger.Logger) *StreamConfig {
	return &StreamConfig{
		js:     js,
		logger: log,
	}
}

// generateExponentialBackoff creates a backoff schedule for NATS redeliveries: 1s, 2s, 4s, ...
// MaxDeliver N requires N-1 backoff durations (first delivery is immediate)
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}

func streamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{StreamSubjects},
		Retention:   nats.WorkQueuePolicy,
		Storage:     nats.FileStorage,
		Replicas:    1,
		MaxAge:      24 * time.Hour,
		Discard:     nats.DiscardOld,
		Description: "Review events for partition stats warming",
	}
}

func consumerConfig() *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:       ConsumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		AckWait:       AckWait,
		MaxDeliver:    MaxDeliveryAttempts,
		FilterSubject: StreamSubjects,
		BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
		Description:   "Stats warmer consumer for review events",
	}
}

// EnsureStream creates the review events stream when it does not exist.
// Work-queue retention deletes a message once the warmer acks it; messages older
// than a day are dropped since the store is recomputed on every warm anyway.
func (s *StreamConfig) EnsureStream() error {
	stream, err := s.js.StreamInfo(StreamName)

	if errors.Is(err, nats.ErrStreamNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   StreamName,
			"subjects": StreamSubjects,
		}).Info("Creating JetStream stream")

		if _, err := s.js.AddStream(streamConfig()); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}

		s.logger.Info("JetStream stream created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream info: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"stream":   stream.Config.Name,
		"messages": stream.State.Msgs,
		"bytes":    stream.State.Bytes,
	}).Info("JetStream stream already exists")

	return nil
}

// EnsureConsumer creates the durable pull consumer of the stats warmer.
// Messages that fail MaxDeliveryAttempts times are discarded; the next event for the
// partition warms it again.
func (s *StreamConfig) EnsureConsumer() error {
	consumerInfo, err := s.js.ConsumerInfo(StreamName, ConsumerName)

	if errors.Is(err, nats.ErrConsumerNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   StreamName,
			"consumer": ConsumerName,
		}).Info("Creating JetStream consumer")

		if _, err := s.js.AddConsumer(StreamName, consumerConfig()); err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}

		s.logger.Info("JetStream consumer created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"consumer":    consumerInfo.Name,
		"pending":     consumerInfo.NumPending,
		"redelivered": consumerInfo.NumRedelivered,
		"ack_pending": consumerInfo.NumAckPending,
	}).Info("JetStream consumer already exists")

	return nil
}
