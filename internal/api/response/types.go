package response

import (
	"time"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/registry"
)

// Registration is the set of credentials returned on create and join
type Registration struct {
	Code          string `json:"code"`
	PlayerID      string `json:"player_id"`
	RecoveryToken string `json:"recovery_token"`
}

// RegistrationFromModel converts a registry.Registration
func RegistrationFromModel(r *registry.Registration) Registration {
	return Registration{
		Code:          r.Code.String(),
		PlayerID:      r.PlayerID.String(),
		RecoveryToken: r.RecoveryToken.String(),
	}
}

// Participant represents a game participant. Identifiers are never exposed.
type Participant struct {
	DisplayName string    `json:"display_name"`
	Connected   bool      `json:"connected"`
	IsOwner     bool      `json:"is_owner"`
	JoinedAt    time.Time `json:"joined_at"`
}

// ParticipantFromModel converts model.Participant
func ParticipantFromModel(p model.Participant) Participant {
	return Participant{
		DisplayName: p.DisplayName,
		Connected:   p.Connected,
		IsOwner:     p.IsOwner(),
		JoinedAt:    p.JoinedAt,
	}
}

// Game represents a game in API responses
type Game struct {
	Code         string        `json:"code"`
	State        string        `json:"state"`
	Owner        string        `json:"owner,omitempty"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"created_at"`
}

// GameFromModel converts model.Session
func GameFromModel(s *model.Session) Game {
	participants := make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		participants[i] = ParticipantFromModel(p)
	}

	var owner string
	if p := s.Owner(); p != nil {
		owner = p.DisplayName
	}

	return Game{
		Code:         s.Code.String(),
		State:        string(s.State),
		Owner:        owner,
		Participants: participants,
		CreatedAt:    s.CreatedAt,
	}
}

// Exists is the response for the existence probe
type Exists struct {
	Exists bool `json:"exists"`
}

// Players lists connected players in join order
type Players struct {
	Players []string `json:"players"`
}

// Leave reports what leaving did to the game
type Leave struct {
	Outcome string `json:"outcome"`
}

// Health is the response for the health check
type Health struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Streams  int    `json:"streams"`
}
