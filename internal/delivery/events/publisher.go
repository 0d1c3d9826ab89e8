package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/review_widget/internal/config"
	"github.com/Pesokrava/review_widget/internal/pkg/logger"
)

// Publisher handles publishing events to NATS JetStream
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewPublisher creates a new NATS JetStream publisher
func NewPublisher(cfg *config.Config, log *logger.Logger) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("review-api"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.WithFields(map[string]any{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	return &Publisher{
		nc:     nc,
		js:     js,
		logger: log,
	}, nil
}

// Publish stores a message on a JetStream subject and waits for the ack
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	pubAck, err := p.js.Publish(subject, data, nats.Context(ctx))
	if err != nil {
		p.logger.With("subject", subject).Error("Failed to publish message to JetStream", err)
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	p.logger.WithFields(map[string]any{
		"subject":  subject,
		"stream":   pubAck.Stream,
		"sequence": pubAck.Sequence,
	}).Debug("Published message to JetStream")

	return nil
}

// JetStream exposes the JetStream context so the stream can be provisioned on the same connection
func (p *Publisher) JetStream() nats.JetStreamContext {
	return p.js
}

// Close drains and closes the NATS connection
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
	}
	p.logger.Info("NATS publisher connection closed")
}
