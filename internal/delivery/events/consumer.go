package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/domain"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

// Consumer handles consuming events from NATS
type Consumer struct {
	nc     *nats.Conn
	logger *logger.Logger
	sub    *nats.Subscription
}

// NewConsumer creates a new NATS consumer
func NewConsumer(cfg *config.Config, name string, log *logger.Logger) (*Consumer, error) {
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Infof("Connected to NATS at %s", cfg.NATS.URL)

	return &Consumer{
		nc:     nc,
		logger: log,
	}, nil
}

// Conn returns the underlying connection
func (c *Consumer) Conn() *nats.Conn {
	return c.nc
}

// Subscribe subscribes to a NATS subject and processes messages
func (c *Consumer) Subscribe(subject string, handler func(data []byte) error) error {
	sub, err := c.nc.Subscribe(subject, func(msg *nats.Msg) {
		c.logger.Debugf("Received message on subject %s", subject)

		if err := handler(msg.Data); err != nil {
			c.logger.Errorf(err, "Failed to handle message on subject %s", subject)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	c.sub = sub
	c.logger.Infof("Subscribed to NATS subject: %s", subject)
	return nil
}

// Close closes the NATS connection
func (c *Consumer) Close() {
	if c.sub != nil {
		if err := c.sub.Unsubscribe(); err != nil {
			c.logger.Warnf("Failed to unsubscribe from NATS: %v", err)
		}
	}
	if c.nc != nil {
		c.nc.Close()
		c.logger.Info("NATS consumer connection closed")
	}
}

// Fetcher pulls batches of messages from a durable consumer
type Fetcher interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

// Message is the subset of *nats.Msg the pull loop acknowledges through
type Message interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
}

// RunPullLoop fetches batches until ctx is done. Messages the handler accepts are acked;
// rejected ones are nacked and redelivered with the consumer's backoff.
func RunPullLoop(ctx context.Context, sub Fetcher, handler func(data []byte) error, log *logger.Logger) {
	for ctx.Err() == nil {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil {
			if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Error("Failed to fetch messages from JetStream", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for _, msg := range msgs {
			HandleMessage(msg, msg.Data, handler, log)
		}
	}
}

// HandleMessage runs handler on data and acks or nacks msg accordingly
func HandleMessage(msg Message, data []byte, handler func(data []byte) error, log *logger.Logger) {
	if err := handler(data); err != nil {
		log.Error("Failed to handle event", err)
		if nackErr := msg.Nak(); nackErr != nil {
			log.Error("Failed to NACK message", nackErr)
		}
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		log.Error("Failed to ACK message", ackErr)
	}
}

// LoggingHandler creates a handler that logs every review event
func LoggingHandler(log *logger.Logger) func(data []byte) error {
	return func(data []byte) error {
		var event domain.ReviewEvent
		if err := json.Unmarshal(data, &event); err != nil {
			log.Error("Failed to unmarshal event", err)
			return err
		}

		fields := map[string]any{
			"event_type": event.EventType,
			"product_id": event.ProductID,
			"website":    event.Website,
			"timestamp":  event.Timestamp,
		}
		if event.Review != nil {
			fields["review_id"] = event.Review.ID
			fields["rating"] = event.Review.Rating
			fields["title"] = event.Review.Title
		}

		log.WithFields(fields).Info("Received review event")
		return nil
	}
}
