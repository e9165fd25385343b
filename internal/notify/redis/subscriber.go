package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/partyroom/internal/notify"
)

// Subscriber receives notifications from the shared channel and hands them to a local publisher
type Subscriber struct {
	client  *redis.Client
	channel string
	next    notify.Publisher
	logger  *slog.Logger
	ready   chan struct{}
}

// NewSubscriber creates a subscriber that forwards to next
func NewSubscriber(client *redis.Client, channel string, next notify.Publisher, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		channel: channel,
		next:    next,
		logger:  logger.With(slog.String("component", "redis-subscriber")),
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the subscription is confirmed by the server
func (s *Subscriber) Ready() <-chan struct{} {
	return s.ready
}

// Run relays messages until ctx is cancelled. It must be called at most once.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer func() { _ = pubsub.Close() }()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.channel, err)
	}
	close(s.ready)
	s.logger.InfoContext(ctx, "subscribed", slog.String("channel", s.channel))

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.relay(ctx, msg.Payload)
		}
	}
}

func (s *Subscriber) relay(ctx context.Context, data string) {
	n, err := decode([]byte(data))
	if err != nil {
		s.logger.WarnContext(ctx, "dropping malformed notification", slog.String("error", err.Error()))
		return
	}
	if err := s.next.Publish(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "failed to deliver notification",
			slog.String("code", n.Code.String()),
			slog.String("kind", string(n.Kind)),
			slog.String("error", err.Error()),
		)
	}
}
