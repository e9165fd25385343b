package stream

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/notify"
	"github.com/mcoot/partyroom/internal/testutil"
)

// readSSEEvent reads one event block and returns its name and data
func readSSEEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var event string
	var data []string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, strings.Join(data, "\n")
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
}

func TestServeSSE(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	client := manager.Attach(mustCode(t, "ABCD-EFGH"), newPlayer())
	hub := client.hub

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(w, r, client)
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	event, _ := readSSEEvent(t, reader)
	require.Equal(t, "connected", event)

	hub.Broadcast(Message{
		Kind: model.EventSessionStarted,
		Data: []byte(`{"kind":"session-started","code":"ABCD-EFGH"}`),
	})
	event, data := readSSEEvent(t, reader)
	assert.Equal(t, "session-started", event)
	assert.JSONEq(t, `{"kind":"session-started","code":"ABCD-EFGH"}`, data)

	hub.Close()
	_, err = reader.ReadString('\n')
	assert.Error(t, err, "stream ends when the hub closes")
}

func TestServeSSEReturnsOnceHubRemoved(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	code := mustCode(t, "ABCD-EFGH")
	client := manager.Attach(code, newPlayer())
	manager.RemoveHub(code)

	rec := httptest.NewRecorder()
	ServeSSE(rec, httptest.NewRequest(http.MethodGet, "/", nil), client)
	assert.Contains(t, rec.Body.String(), "event: connected")
}

func TestServeWS(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	player := newPlayer()
	client := manager.Attach(mustCode(t, "ABCD-EFGH"), player)
	hub := client.hub

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, client, testutil.NopLogger())
	}))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	waitForClients(t, hub, 1)
	hub.Broadcast(Message{
		Kind:   model.EventOwnerChanged,
		Data:   []byte(`{"kind":"owner-changed","code":"ABCD-EFGH","payload":{"old_owner":"A","new_owner":"B"}}`),
		Target: notify.OnePlayer(player),
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	var event Event
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, model.EventOwnerChanged, event.Kind)

	hub.Close()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestServeWSPeerCloseUnregisters(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	code := mustCode(t, "ABCD-EFGH")
	client := manager.Attach(code, newPlayer())
	hub := client.hub

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(w, r, client, testutil.NopLogger())
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)

	// released, so the hub is now eligible for cleanup
	require.Eventually(t, func() bool {
		manager.CleanupEmptyHubs()
		return manager.GetHub(code) == nil
	}, time.Second, 5*time.Millisecond)
}

func TestServeWSUpgradeFailureReleasesClient(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	code := mustCode(t, "ABCD-EFGH")
	client := manager.Attach(code, newPlayer())

	rec := httptest.NewRecorder()
	ServeWS(rec, httptest.NewRequest(http.MethodGet, "/", nil), client, testutil.NopLogger())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	waitForClients(t, client.hub, 0)
	manager.CleanupEmptyHubs()
	assert.Nil(t, manager.GetHub(code))
}
