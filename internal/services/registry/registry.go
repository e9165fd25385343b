// Package registry owns every live session and the identifiers that point into them.
//
// Locking: the registry lock guards the indexes (sessions, players, tokens) and each
// session carries its own lock. A goroutine may take the registry lock while holding
// a session lock, never the other way round. Notifications are published only after
// every lock has been released.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/dependencies/random"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/notify"
)

// DefaultReapDelay is how long an abandoned session survives before deletion
const DefaultReapDelay = 20 * time.Second

// Config tunes registry behaviour
type Config struct {
	// ReapDelay is the grace period between a session becoming abandoned and its deletion
	ReapDelay time.Duration
	// BindRecoveryOrigin rejects recovery tokens presented from an origin other than
	// the one that first claimed them
	BindRecoveryOrigin bool
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{ReapDelay: DefaultReapDelay}
}

// Registration is the set of credentials handed to a participant
type Registration struct {
	Code          model.GameCode
	PlayerID      model.PlayerID
	RecoveryToken model.RecoveryToken
}

// JoinRequest describes an attempt to join or rejoin a session
type JoinRequest struct {
	DisplayName string
	// Origin is the caller's network origin. Only a fingerprint is stored.
	Origin string
	// RecoveryToken is the zero value when the caller has none
	RecoveryToken model.RecoveryToken
}

type entry struct {
	mu      sync.RWMutex
	session *model.Session
	closed  bool // set under mu once the session has left the registry
}

// Registry is the process-wide table of sessions
type Registry struct {
	publisher notify.Publisher
	clock     clock.Clock
	random    random.Random
	config    Config

	mu       sync.RWMutex
	sessions map[model.GameCode]*entry
	players  map[model.PlayerID]model.GameCode
	tokens   map[model.RecoveryToken]model.GameCode
}

// New creates an empty registry
func New(
	publisher notify.Publisher,
	clock clock.Clock,
	random random.Random,
	config Config,
) *Registry {
	if publisher == nil {
		publisher = notify.Nop
	}
	if config.ReapDelay <= 0 {
		config.ReapDelay = DefaultReapDelay
	}
	return &Registry{
		publisher: publisher,
		clock:     clock,
		random:    random,
		config:    config,
		sessions:  make(map[model.GameCode]*entry),
		players:   make(map[model.PlayerID]model.GameCode),
		tokens:    make(map[model.RecoveryToken]model.GameCode),
	}
}

// CreateSession registers a new session whose only participant is its connected owner
func (r *Registry) CreateSession(ctx context.Context, displayName, origin string) (*Registration, error) {
	if err := model.ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	code := r.generateGameCode()
	reg := r.reserveCredentials(code)

	session := model.NewSession(code, now)
	session.AddParticipant(model.Participant{
		ID:            reg.PlayerID,
		DisplayName:   displayName,
		RecoveryToken: reg.RecoveryToken,
		Origin:        fingerprintOrigin(origin),
		Connected:     true,
		JoinedAt:      now,
	})
	session.SetOwner(reg.PlayerID)
	r.sessions[code] = &entry{session: session}

	return &reg, nil
}

// JoinSession admits a participant by display name.
//
// A new name is admitted while the session is in the lobby. A name whose holder is
// disconnected is handed back to the caller, reconnected. A name whose holder is
// connected is only handed back when the caller presents that holder's recovery token.
func (r *Registry) JoinSession(ctx context.Context, code model.GameCode, req JoinRequest) (*Registration, error) {
	if err := model.ValidateDisplayName(req.DisplayName); err != nil {
		return nil, err
	}
	e := r.lookupEntry(code)
	if e == nil {
		return nil, model.ErrGameNotFound
	}

	reg, notifications, err := r.join(e, req)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, notifications...)
	return reg, nil
}

func (r *Registry) join(e *entry, req JoinRequest) (*Registration, []notify.Notification, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, nil, model.ErrGameNotFound
	}

	s := e.session
	now := r.clock.Now()
	existing := s.FindParticipantByName(req.DisplayName)

	switch {
	case existing == nil:
		if s.State != model.SessionStateLobby {
			return nil, nil, model.ErrGameAlreadyStarted
		}
		r.mu.Lock()
		reg := r.reserveCredentials(s.Code)
		r.mu.Unlock()

		s.AddParticipant(model.Participant{
			ID:            reg.PlayerID,
			DisplayName:   req.DisplayName,
			RecoveryToken: reg.RecoveryToken,
			Origin:        fingerprintOrigin(req.Origin),
			Connected:     true,
			JoinedAt:      now,
		})
		s.UpdatedAt = now
		return &reg, []notify.Notification{participantAdded(s, req.DisplayName)}, nil

	case existing.Connected:
		if !r.claimToken(existing, req.RecoveryToken, req.Origin) {
			return nil, nil, model.ErrNameTaken
		}
		return credentialsOf(s.Code, existing), nil, nil

	default:
		if !req.RecoveryToken.IsZero() {
			r.claimToken(existing, req.RecoveryToken, req.Origin)
		}
		existing.Connected = true
		s.UpdatedAt = now
		return credentialsOf(s.Code, existing), []notify.Notification{participantAdded(s, req.DisplayName)}, nil
	}
}

// claimToken checks a presented recovery token against a participant.
// The first origin to present a valid token is recorded and never replaced.
// Requires the entry lock held for writing.
func (r *Registry) claimToken(p *model.Participant, token model.RecoveryToken, origin string) bool {
	if token.IsZero() || p.RecoveryToken != token {
		return false
	}
	fingerprint := fingerprintOrigin(origin)
	if p.Origin == "" {
		p.Origin = fingerprint
		return true
	}
	if !r.config.BindRecoveryOrigin || fingerprint == "" {
		return true
	}
	return p.Origin == fingerprint
}

// DeleteSession removes a session and releases its code, identities and tokens.
// Returns false if there was nothing to delete.
func (r *Registry) DeleteSession(ctx context.Context, code model.GameCode) bool {
	e := r.lookupEntry(code)
	if e == nil {
		return false
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	r.removeLocked(e)
	e.mu.Unlock()

	r.publish(ctx, sessionClosed(code))
	return true
}

// removeLocked takes the session out of every index.
// Requires the entry lock held for writing.
func (r *Registry) removeLocked(e *entry) {
	e.closed = true

	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.sessions[e.session.Code]; ok && current == e {
		delete(r.sessions, e.session.Code)
	}
	r.releaseCredentials(e.session)
}

// SessionExists reports whether a session with this code is live
func (r *Registry) SessionExists(code model.GameCode) bool {
	return r.lookupEntry(code) != nil
}

// SessionCount returns the number of live sessions
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Lookup resolves a player identity to the code of its session
func (r *Registry) Lookup(id model.PlayerID) (model.GameCode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.players[id]
	if !ok {
		return model.GameCode{}, model.ErrPlayerNotFound
	}
	return code, nil
}

// View runs fn with shared access to the session.
// fn must not retain the session or call back into the registry.
func (r *Registry) View(code model.GameCode, fn func(s *model.Session)) error {
	e := r.lookupEntry(code)
	if e == nil {
		return model.ErrGameNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return model.ErrGameNotFound
	}
	fn(e.session)
	return nil
}

// Update runs fn with exclusive access to the session and returns its error.
// fn must not add or remove participants, retain the session, or call back into the registry.
func (r *Registry) Update(code model.GameCode, fn func(s *model.Session) error) error {
	e := r.lookupEntry(code)
	if e == nil {
		return model.ErrGameNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return model.ErrGameNotFound
	}
	return fn(e.session)
}

// ViewByPlayer runs fn with shared access to the session the player belongs to
func (r *Registry) ViewByPlayer(id model.PlayerID, fn func(s *model.Session, p *model.Participant)) error {
	e := r.lookupPlayerEntry(id)
	if e == nil {
		return model.ErrPlayerNotFound
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	p := e.participant(id)
	if p == nil {
		return model.ErrPlayerNotFound
	}
	fn(e.session, p)
	return nil
}

// UpdateByPlayer runs fn with exclusive access to the session the player belongs to
func (r *Registry) UpdateByPlayer(id model.PlayerID, fn func(s *model.Session, p *model.Participant) error) error {
	e := r.lookupPlayerEntry(id)
	if e == nil {
		return model.ErrPlayerNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.participant(id)
	if p == nil {
		return model.ErrPlayerNotFound
	}
	return fn(e.session, p)
}

// Snapshot returns a copy of the session
func (r *Registry) Snapshot(code model.GameCode) (model.Session, error) {
	var snapshot model.Session
	err := r.View(code, func(s *model.Session) {
		snapshot = s.Snapshot()
	})
	return snapshot, err
}

// PlayersInGame returns the connected participants' names in join order
func (r *Registry) PlayersInGame(code model.GameCode) ([]string, error) {
	var names []string
	err := r.View(code, func(s *model.Session) {
		names = s.ParticipantNames(true)
	})
	return names, err
}

// MarkConnected flags the player as connected, e.g. when a live stream opens
func (r *Registry) MarkConnected(ctx context.Context, id model.PlayerID) error {
	var notifications []notify.Notification
	err := r.UpdateByPlayer(id, func(s *model.Session, p *model.Participant) error {
		if p.Connected {
			return nil
		}
		p.Connected = true
		s.UpdatedAt = r.clock.Now()
		notifications = append(notifications, participantListChanged(s))
		return nil
	})
	if err != nil {
		return err
	}
	r.publish(ctx, notifications...)
	return nil
}

// StartSession closes the lobby. Only the owner may start.
func (r *Registry) StartSession(ctx context.Context, id model.PlayerID) error {
	var code model.GameCode
	err := r.UpdateByPlayer(id, func(s *model.Session, p *model.Participant) error {
		if !p.IsOwner() {
			return model.ErrNotOwner
		}
		if err := s.Start(); err != nil {
			return err
		}
		s.UpdatedAt = r.clock.Now()
		code = s.Code
		return nil
	})
	if err != nil {
		return err
	}
	r.publish(ctx, notify.Notification{
		Code:   code,
		Target: notify.AllParticipants(),
		Kind:   model.EventSessionStarted,
	})
	return nil
}

// TransferOwner hands ownership to the participant with the given name. Only the owner may transfer.
func (r *Registry) TransferOwner(ctx context.Context, id model.PlayerID, newOwner string) error {
	var n notify.Notification
	err := r.UpdateByPlayer(id, func(s *model.Session, p *model.Participant) error {
		if !p.IsOwner() {
			return model.ErrNotOwner
		}
		target := s.FindParticipantByName(newOwner)
		if target == nil {
			return model.ErrPlayerNotFound
		}
		oldOwner := p.DisplayName
		s.SetOwner(target.ID)
		s.UpdatedAt = r.clock.Now()
		n = notify.Notification{
			Code:    s.Code,
			Target:  notify.AllParticipants(),
			Kind:    model.EventOwnerChanged,
			Payload: model.OwnerChangedPayload{OldOwner: oldOwner, NewOwner: target.DisplayName},
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.publish(ctx, n)
	return nil
}

func (r *Registry) lookupEntry(code model.GameCode) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[code]
}

func (r *Registry) lookupPlayerEntry(id model.PlayerID) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.players[id]
	if !ok {
		return nil
	}
	return r.sessions[code]
}

// participant returns the live participant record. Requires e.mu held.
func (e *entry) participant(id model.PlayerID) *model.Participant {
	if e.closed {
		return nil
	}
	return e.session.FindParticipant(id)
}

// publish hands notifications to the publisher. Delivery failures are the publisher's
// to report and never undo registry changes. The change has already been committed,
// so delivery must not be cut short by the caller's cancellation.
func (r *Registry) publish(ctx context.Context, notifications ...notify.Notification) {
	ctx = context.WithoutCancel(ctx)
	for _, n := range notifications {
		_ = r.publisher.Publish(ctx, n)
	}
}

func credentialsOf(code model.GameCode, p *model.Participant) *Registration {
	return &Registration{Code: code, PlayerID: p.ID, RecoveryToken: p.RecoveryToken}
}

func participantAdded(s *model.Session, name string) notify.Notification {
	return notify.Notification{
		Code:    s.Code,
		Target:  notify.AllParticipants(),
		Kind:    model.EventParticipantAdded,
		Payload: model.ParticipantAddedPayload{DisplayName: name, Players: s.ParticipantNames(true)},
	}
}

func participantListChanged(s *model.Session) notify.Notification {
	return notify.Notification{
		Code:    s.Code,
		Target:  notify.AllParticipants(),
		Kind:    model.EventParticipantListChanged,
		Payload: model.ParticipantListPayload{Players: s.ParticipantNames(true)},
	}
}

func sessionClosed(code model.GameCode) notify.Notification {
	return notify.Notification{
		Code:   code,
		Target: notify.AllParticipants(),
		Kind:   model.EventSessionClosed,
	}
}
