package stream

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/notify"
	"github.com/mcoot/partyroom/internal/testutil"
)

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-client.send:
		require.True(t, ok, "send channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("client did not receive message")
		return Message{}
	}
}

func TestBroadcaster_EncodesEvent(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())
	code := mustCode(t, "ABCD-EFGH")

	hub := manager.GetOrCreateHub(code)
	client := NewClient(hub, newPlayer())
	require.True(t, hub.Register(client))
	waitForClients(t, hub, 1)

	err := broadcaster.Publish(context.Background(), notify.Notification{
		Code:    code,
		Target:  notify.AllParticipants(),
		Kind:    model.EventParticipantListChanged,
		Payload: model.ParticipantListPayload{Players: []string{"Alice"}},
	})
	require.NoError(t, err)

	msg := receive(t, client)
	assert.Equal(t, model.EventParticipantListChanged, msg.Kind)
	assert.JSONEq(t,
		`{"kind":"participant-list-changed","code":"ABCD-EFGH","payload":{"players":["Alice"]}}`,
		string(msg.Data))
}

func TestBroadcaster_RelayedPayloadPassesThrough(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	defer manager.Close()
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())
	code := mustCode(t, "ABCD-EFGH")

	hub := manager.GetOrCreateHub(code)
	client := NewClient(hub, newPlayer())
	require.True(t, hub.Register(client))
	waitForClients(t, hub, 1)

	require.NoError(t, broadcaster.Publish(context.Background(), notify.Notification{
		Code:    code,
		Kind:    model.EventOwnerChanged,
		Payload: json.RawMessage(`{"old_owner":"Alice","new_owner":"Bob"}`),
	}))

	msg := receive(t, client)
	assert.JSONEq(t,
		`{"kind":"owner-changed","code":"ABCD-EFGH","payload":{"old_owner":"Alice","new_owner":"Bob"}}`,
		string(msg.Data))
}

func TestBroadcaster_NoHubIsNotAnError(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())

	err := broadcaster.Publish(context.Background(), notify.Notification{
		Code: mustCode(t, "ABCD-EFGH"),
		Kind: model.EventSessionStarted,
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, manager.HubCount(), "publishing never creates hubs")
}

func TestBroadcaster_SessionClosedRemovesHub(t *testing.T) {
	manager := NewHubManager(testutil.NopLogger())
	broadcaster := NewBroadcaster(manager, testutil.NopLogger())
	code := mustCode(t, "ABCD-EFGH")

	hub := manager.GetOrCreateHub(code)
	client := NewClient(hub, newPlayer())
	require.True(t, hub.Register(client))
	waitForClients(t, hub, 1)

	require.NoError(t, broadcaster.Publish(context.Background(), notify.Notification{
		Code: code,
		Kind: model.EventSessionClosed,
	}))

	msg := receive(t, client)
	assert.Equal(t, model.EventSessionClosed, msg.Kind)
	assert.JSONEq(t, `{"kind":"session-closed","code":"ABCD-EFGH"}`, string(msg.Data))

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "stream ends after session-closed")
	case <-time.After(time.Second):
		t.Fatal("send channel never closed")
	}
	assert.Nil(t, manager.GetHub(code))
}
