// Package notify defines what the session registry publishes and to whom.
// Delivery (fan-out, filtering by session and identity, wire format) belongs to
// the Publisher implementations.
package notify

import (
	"context"

	"github.com/mcoot/partyroom/internal/model"
)

// Target selects the recipients of a notification within one session
type Target struct {
	// PlayerID limits delivery to one participant. The zero value means everyone.
	PlayerID model.PlayerID
}

// AllParticipants targets every participant of the session
func AllParticipants() Target {
	return Target{}
}

// OnePlayer targets a single participant
func OnePlayer(id model.PlayerID) Target {
	return Target{PlayerID: id}
}

// IsAll reports whether the target is the whole session
func (t Target) IsAll() bool {
	return t.PlayerID.IsZero()
}

// Matches reports whether a participant should receive a notification with this target
func (t Target) Matches(id model.PlayerID) bool {
	return t.IsAll() || t.PlayerID == id
}

// Notification is the semantic triple handed to the delivery transport
type Notification struct {
	Code    model.GameCode
	Target  Target
	Kind    model.EventKind
	Payload any // may be nil
}

// Publisher delivers notifications. Implementations must not block on slow subscribers.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// PublisherFunc adapts a function to the Publisher interface
type PublisherFunc func(ctx context.Context, n Notification) error

// Publish calls f(ctx, n)
func (f PublisherFunc) Publish(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Nop discards every notification
var Nop Publisher = PublisherFunc(func(context.Context, Notification) error { return nil })
