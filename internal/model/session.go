package model

import "time"

// SessionState represents the current phase of a session
type SessionState string

const (
	SessionStateLobby   SessionState = "lobby"   // Players can join
	SessionStateStarted SessionState = "started" // No new players
)

// Session is one joinable group of participants.
// Session is not safe for concurrent use; the registry guards each one with its own lock.
type Session struct {
	Code         GameCode
	State        SessionState
	Participants []Participant // insertion order
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSession creates an empty session in the lobby state
func NewSession(code GameCode, now time.Time) *Session {
	return &Session{
		Code:      code,
		State:     SessionStateLobby,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddParticipant appends the participant if the session is still in the lobby
func (s *Session) AddParticipant(p Participant) bool {
	if s.State != SessionStateLobby {
		return false
	}
	if p.Role == "" {
		p.Role = RoleMember
	}
	s.Participants = append(s.Participants, p)
	return true
}

// SetOwner makes the given participant the only owner.
// Returns false without mutation if the participant does not exist.
func (s *Session) SetOwner(id PlayerID) bool {
	if s.FindParticipant(id) == nil {
		return false
	}
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			s.Participants[i].Role = RoleOwner
		} else {
			s.Participants[i].Role = RoleMember
		}
	}
	return true
}

// Owner returns the current owner, or nil if none
func (s *Session) Owner() *Participant {
	for i := range s.Participants {
		if s.Participants[i].IsOwner() {
			return &s.Participants[i]
		}
	}
	return nil
}

// FindParticipant returns the participant with the given id, or nil if not found
func (s *Session) FindParticipant(id PlayerID) *Participant {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return &s.Participants[i]
		}
	}
	return nil
}

// FindParticipantByName returns the participant with exactly this display name, or nil
func (s *Session) FindParticipantByName(name string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].DisplayName == name {
			return &s.Participants[i]
		}
	}
	return nil
}

// SetConnected updates the connectivity flag. Returns false if the participant is unknown.
func (s *Session) SetConnected(id PlayerID, connected bool) bool {
	p := s.FindParticipant(id)
	if p == nil {
		return false
	}
	p.Connected = connected
	return true
}

// IsAbandoned returns true when no participant is connected
func (s *Session) IsAbandoned() bool {
	for i := range s.Participants {
		if s.Participants[i].Connected {
			return false
		}
	}
	return true
}

// ParticipantNames returns display names in join order
func (s *Session) ParticipantNames(connectedOnly bool) []string {
	names := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		if connectedOnly && !p.Connected {
			continue
		}
		names = append(names, p.DisplayName)
	}
	return names
}

// Start moves the session out of the lobby
func (s *Session) Start() error {
	if s.State != SessionStateLobby {
		return ErrGameAlreadyStarted
	}
	s.State = SessionStateStarted
	return nil
}

// Snapshot returns a copy that shares no memory with the session
func (s *Session) Snapshot() Session {
	cp := *s
	cp.Participants = make([]Participant, len(s.Participants))
	copy(cp.Participants, s.Participants)
	return cp
}
