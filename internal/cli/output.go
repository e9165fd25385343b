package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Registration:
		o.printRegistration(v)
	case Game:
		o.printGame(v)
	case Players:
		o.printPlayers(v)
	case Exists:
		o.printExists(v)
	case LeaveResult:
		fmt.Fprintf(o.w, "Left game (%s)\n", v.Outcome)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Registration response type (matches API)
type Registration struct {
	Code          string `json:"code"`
	PlayerID      string `json:"player_id"`
	RecoveryToken string `json:"recovery_token"`
}

// Game response type
type Game struct {
	Code         string        `json:"code"`
	State        string        `json:"state"`
	Owner        string        `json:"owner,omitempty"`
	Participants []Participant `json:"participants"`
}

// Participant response type
type Participant struct {
	DisplayName string `json:"display_name"`
	Connected   bool   `json:"connected"`
	IsOwner     bool   `json:"is_owner"`
}

// Players response type
type Players struct {
	Players []string `json:"players"`
}

// Exists response type
type Exists struct {
	Exists bool `json:"exists"`
}

// LeaveResult response type
type LeaveResult struct {
	Outcome string `json:"outcome"`
}

// HealthResult response type
type HealthResult struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Streams  int    `json:"streams"`
}

func (o *Output) printRegistration(r Registration) {
	fmt.Fprintf(o.w, "Game: %s\n", r.Code)
	fmt.Fprintf(o.w, "Player: %s\n", r.PlayerID)
}

func (o *Output) printGame(g Game) {
	fmt.Fprintf(o.w, "Game: %s\n", g.Code)
	fmt.Fprintf(o.w, "State: %s\n", g.State)
	if g.Owner != "" {
		fmt.Fprintf(o.w, "Owner: %s\n", g.Owner)
	}
	fmt.Fprintf(o.w, "Participants (%d):\n", len(g.Participants))
	for _, p := range g.Participants {
		var tags []string
		if p.IsOwner {
			tags = append(tags, "owner")
		}
		if !p.Connected {
			tags = append(tags, "away")
		}
		suffix := ""
		if len(tags) > 0 {
			suffix = " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Fprintf(o.w, "  - %s%s\n", p.DisplayName, suffix)
	}
}

func (o *Output) printPlayers(p Players) {
	if len(p.Players) == 0 {
		fmt.Fprintln(o.w, "No players connected")
		return
	}
	for _, name := range p.Players {
		fmt.Fprintln(o.w, name)
	}
}

func (o *Output) printExists(e Exists) {
	if e.Exists {
		fmt.Fprintln(o.w, "Game exists")
	} else {
		fmt.Fprintln(o.w, "Game does not exist")
	}
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	fmt.Fprintf(o.w, "Sessions: %d\n", h.Sessions)
	fmt.Fprintf(o.w, "Streams: %d\n", h.Streams)
}
