package model

// EventKind identifies the type of a session notification
type EventKind string

const (
	EventParticipantAdded       EventKind = "participant-added"
	EventParticipantListChanged EventKind = "participant-list-changed"
	EventOwnerChanged           EventKind = "owner-changed"
	EventSessionStarted         EventKind = "session-started"
	EventSessionClosed          EventKind = "session-closed"
)

// ParticipantAddedPayload is sent when a participant joins or reappears
type ParticipantAddedPayload struct {
	DisplayName string   `json:"display_name"`
	Players     []string `json:"players"`
}

// ParticipantListPayload carries the connected player names in join order
type ParticipantListPayload struct {
	Players []string `json:"players"`
}

// OwnerChangedPayload contains data for owner changed events
type OwnerChangedPayload struct {
	OldOwner string `json:"old_owner"`
	NewOwner string `json:"new_owner"`
}
