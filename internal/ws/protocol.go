package ws

import (
	"encoding/json"

	"wager-arena/internal/arena"
)

// Envelope is the frame shape in both directions: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(ev arena.Event) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeEnvelope(msg []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return Envelope{}, err
	}
	return env, nil
}
