package stream

import (
	"sync"
	"time"

	"github.com/mcoot/partyroom/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time between keepalive pings
	pingPeriod = 30 * time.Second

	// Time allowed to read the next pong from a websocket peer
	pongWait = pingPeriod + writeWait

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client represents one participant's open stream
type Client struct {
	hub         *Hub
	playerID    model.PlayerID
	send        chan Message
	connectedAt time.Time

	release   func() // set by HubManager.Attach
	closeOnce sync.Once
}

// NewClient creates a new stream client
func NewClient(hub *Hub, playerID model.PlayerID) *Client {
	return &Client{
		hub:         hub,
		playerID:    playerID,
		send:        make(chan Message, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// PlayerID returns the participant the client streams to
func (c *Client) PlayerID() model.PlayerID {
	return c.playerID
}

// Close unregisters the client from its hub. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.hub.Unregister(c)
		if c.release != nil {
			c.release()
		}
	})
}
