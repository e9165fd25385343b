package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream live events from the current game",
		Long: `Connect to the game's event stream and print events as they arrive.
While connected you count as present in the game.

Events include:
  - participant-added: Someone joined or came back
  - participant-list-changed: The connected player list changed
  - owner-changed: Ownership was handed over
  - session-started: The owner started the game
  - session-closed: The game was deleted

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := cfg.requireGame()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return streamEvents(ctx, cmd.OutOrStdout(), code, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// StreamEvent is one event read off the game's stream
type StreamEvent struct {
	Received time.Time `json:"received"`
	Name     string    `json:"event"`
	Data     string    `json:"data"`
}

func streamEvents(ctx context.Context, w io.Writer, code string, jsonOutput bool) error {
	body, err := client.openEvents(ctx, code)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() { _ = body.Close() }()

	if !jsonOutput {
		fmt.Fprintf(w, "Connected to game %s\n", code)
	}

	err = readEvents(body, func(ev StreamEvent) {
		ev.Received = time.Now()
		printEvent(w, ev, jsonOutput)
	})
	// cancellation is how the user disconnects
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream: %w", err)
	}
	if !jsonOutput {
		fmt.Fprintln(w, "Disconnected")
	}
	return nil
}

// readEvents calls fn for each named event in a server-sent event stream until r is exhausted.
// Comment lines and blocks without an event name are skipped.
func readEvents(r io.Reader, fn func(StreamEvent)) error {
	scanner := bufio.NewScanner(r)
	var pending StreamEvent
	var data []string
	for scanner.Scan() {
		field, value, _ := strings.Cut(scanner.Text(), ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "":
			if value != "" {
				continue // comment line
			}
			if pending.Name != "" {
				pending.Data = strings.Join(data, "\n")
				fn(pending)
			}
			pending, data = StreamEvent{}, nil
		case "event":
			pending.Name = value
		case "data":
			data = append(data, value)
		}
	}
	return scanner.Err()
}

const maxEventPreview = 100

func printEvent(w io.Writer, ev StreamEvent, jsonOutput bool) {
	if jsonOutput {
		line, _ := json.Marshal(ev)
		fmt.Fprintln(w, string(line))
		return
	}
	preview := strings.ReplaceAll(ev.Data, "\n", " ")
	if len(preview) > maxEventPreview {
		preview = preview[:maxEventPreview] + "..."
	}
	fmt.Fprintf(w, "[%s] %s: %s\n", ev.Received.Format(time.TimeOnly), ev.Name, preview)
}
