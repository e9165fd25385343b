package redis

import (
	"encoding/json"

	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/notify"
)

// envelope is the wire form of a notification on the channel
type envelope struct {
	Code     model.GameCode  `json:"code"`
	PlayerID *model.PlayerID `json:"player_id,omitempty"`
	Kind     model.EventKind `json:"kind"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func encode(n notify.Notification) ([]byte, error) {
	env := envelope{Code: n.Code, Kind: n.Kind}
	if !n.Target.IsAll() {
		id := n.Target.PlayerID
		env.PlayerID = &id
	}
	if n.Payload != nil {
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return nil, err
		}
		env.Payload = payload
	}
	return json.Marshal(env)
}

// decode rebuilds a notification. The payload stays raw JSON so it is re-emitted unchanged.
func decode(data []byte) (notify.Notification, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return notify.Notification{}, err
	}
	n := notify.Notification{
		Code:   env.Code,
		Target: notify.AllParticipants(),
		Kind:   env.Kind,
	}
	if env.PlayerID != nil {
		n.Target = notify.OnePlayer(*env.PlayerID)
	}
	if len(env.Payload) > 0 {
		n.Payload = env.Payload
	}
	return n, nil
}
