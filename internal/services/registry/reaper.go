package registry

import (
	"context"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/notify"
)

// Outcome is the result of one step of the disconnect protocol
type Outcome int

const (
	// OutcomeSessionAlive means at least one participant is still connected
	OutcomeSessionAlive Outcome = iota
	// OutcomeReapScheduled means the session is abandoned and will be re-checked after the reap delay
	OutcomeReapScheduled
	// OutcomeSessionDeleted means the session was abandoned and has been deleted
	OutcomeSessionDeleted
	// OutcomeAlreadyResolved means the session or participant no longer exists
	OutcomeAlreadyResolved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSessionAlive:
		return "session-alive"
	case OutcomeReapScheduled:
		return "reap-scheduled"
	case OutcomeSessionDeleted:
		return "session-deleted"
	case OutcomeAlreadyResolved:
		return "already-resolved"
	default:
		return "unknown"
	}
}

// Disconnect records that the player's live connection dropped.
// If that leaves the session abandoned, a re-check is scheduled after the reap delay
// and the session is deleted then if nobody has come back.
func (r *Registry) Disconnect(ctx context.Context, id model.PlayerID) Outcome {
	return r.disconnect(ctx, id, false)
}

// Leave records that the player left on purpose. An abandoned session is deleted
// immediately instead of waiting out the reap delay.
func (r *Registry) Leave(ctx context.Context, id model.PlayerID) Outcome {
	return r.disconnect(ctx, id, true)
}

func (r *Registry) disconnect(ctx context.Context, id model.PlayerID, leaving bool) Outcome {
	e := r.lookupPlayerEntry(id)
	if e == nil {
		return OutcomeAlreadyResolved
	}

	e.mu.Lock()
	p := e.participant(id)
	if p == nil {
		e.mu.Unlock()
		return OutcomeAlreadyResolved
	}
	code := e.session.Code
	changed := p.Connected
	p.Connected = false
	if changed {
		e.session.UpdatedAt = r.clock.Now()
	}
	abandoned := e.session.IsAbandoned()
	deleted := abandoned && leaving
	var listChanged notify.Notification
	if deleted {
		r.removeLocked(e)
	} else if changed {
		listChanged = participantListChanged(e.session)
	}
	e.mu.Unlock()

	switch {
	case deleted:
		r.publish(ctx, sessionClosed(code))
		return OutcomeSessionDeleted
	case changed:
		r.publish(ctx, listChanged)
	}

	if !abandoned {
		return OutcomeSessionAlive
	}
	r.clock.AfterFunc(r.config.ReapDelay, func() {
		r.reap(context.Background(), e)
	})
	return OutcomeReapScheduled
}

// reap is the deferred half of the disconnect protocol. It is bound to the session
// that scheduled it, so a later session reissued the same code keeps its own timer.
func (r *Registry) reap(ctx context.Context, e *entry) Outcome {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return OutcomeAlreadyResolved
	}
	if !e.session.IsAbandoned() {
		e.mu.Unlock()
		return OutcomeSessionAlive
	}
	code := e.session.Code
	r.removeLocked(e)
	e.mu.Unlock()

	r.publish(ctx, sessionClosed(code))
	return OutcomeSessionDeleted
}
