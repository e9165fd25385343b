package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/notify"
)

// Event is the JSON body every stream message carries
type Event struct {
	Kind    model.EventKind `json:"kind"`
	Code    model.GameCode  `json:"code"`
	Payload any             `json:"payload,omitempty"`
}

// Broadcaster delivers notifications to the hub of their session
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// Ensure Broadcaster implements the interface
var _ notify.Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "stream-broadcaster")),
	}
}

// Publish encodes the notification and queues it on the session's hub.
// Sessions nobody is streaming have no hub and the notification is dropped.
// A session-closed notification also closes the hub once it has been delivered.
func (b *Broadcaster) Publish(ctx context.Context, n notify.Notification) error {
	data, err := json.Marshal(Event{Kind: n.Kind, Code: n.Code, Payload: n.Payload})
	if err != nil {
		b.logger.ErrorContext(ctx, "stream failed to encode event",
			slog.String("code", n.Code.String()),
			slog.String("kind", string(n.Kind)),
			slog.Any("error", err))
		return fmt.Errorf("encode event: %w", err)
	}

	hub := b.hubManager.GetHub(n.Code)
	if hub == nil {
		return nil
	}
	hub.Broadcast(Message{Kind: n.Kind, Data: data, Target: n.Target})

	if n.Kind == model.EventSessionClosed {
		b.hubManager.RemoveHub(n.Code)
	}
	return nil
}
