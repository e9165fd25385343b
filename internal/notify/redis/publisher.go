// Package redis relays session notifications between server processes over Redis pub/sub.
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/partyroom/internal/notify"
)

// Publisher sends notifications to the shared channel
type Publisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// Ensure Publisher implements the interface
var _ notify.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher on the given channel
func NewPublisher(client *redis.Client, channel string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:  client,
		channel: channel,
		logger:  logger.With(slog.String("component", "redis-publisher")),
	}
}

// Publish encodes the notification and publishes it
func (p *Publisher) Publish(ctx context.Context, n notify.Notification) error {
	data, err := encode(n)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode notification",
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("encode notification: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.WarnContext(ctx, "failed to publish notification",
			slog.String("code", n.Code.String()),
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
