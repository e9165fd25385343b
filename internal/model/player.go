package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxDisplayNameLength bounds display names in characters
const MaxDisplayNameLength = 32

// PlayerID identifies one participant for the lifetime of their membership
type PlayerID uuid.UUID

// ParsePlayerID parses the canonical UUID string form
func ParsePlayerID(s string) (PlayerID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return PlayerID{}, ErrPlayerNotFound
	}
	return PlayerID(id), nil
}

func (id PlayerID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the id was never set
func (id PlayerID) IsZero() bool {
	return id == PlayerID{}
}

// MarshalText implements encoding.TextMarshaler
func (id PlayerID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (id *PlayerID) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*id = PlayerID(parsed)
	return nil
}

// RecoveryToken lets a participant reclaim their membership by name
// after losing their PlayerID
type RecoveryToken uuid.UUID

// ParseRecoveryToken parses the canonical UUID string form
func ParseRecoveryToken(s string) (RecoveryToken, error) {
	token, err := uuid.Parse(s)
	if err != nil {
		return RecoveryToken{}, err
	}
	return RecoveryToken(token), nil
}

func (t RecoveryToken) String() string {
	return uuid.UUID(t).String()
}

// IsZero reports whether the token was never set
func (t RecoveryToken) IsZero() bool {
	return t == RecoveryToken{}
}

// MarshalText implements encoding.TextMarshaler
func (t RecoveryToken) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *RecoveryToken) UnmarshalText(text []byte) error {
	parsed, err := uuid.ParseBytes(text)
	if err != nil {
		return err
	}
	*t = RecoveryToken(parsed)
	return nil
}

// ParticipantRole distinguishes the session owner from everyone else
type ParticipantRole string

const (
	RoleMember ParticipantRole = "member"
	RoleOwner  ParticipantRole = "owner" // can start the game
)

// Participant is a user's membership record within one session
type Participant struct {
	ID            PlayerID
	DisplayName   string
	RecoveryToken RecoveryToken
	Origin        string // fingerprint of the first origin that claimed the token, may be empty
	Connected     bool
	Role          ParticipantRole
	JoinedAt      time.Time
}

// IsOwner returns true if this participant owns the session
func (p *Participant) IsOwner() bool {
	return p.Role == RoleOwner
}

// ValidateDisplayName accepts valid UTF-8 of 1 to MaxDisplayNameLength characters
// that is not blank
func ValidateDisplayName(name string) error {
	if !utf8.ValidString(name) || strings.TrimSpace(name) == "" ||
		utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return ErrInvalidDisplayName
	}
	return nil
}
