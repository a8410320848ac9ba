package battle

import "maps"

// Event is one narrated log entry describing a sub-effect of a resolved action.
type Event struct {
	Type           string         `json:"type"`
	Payload        map[string]any `json:"payload,omitempty"`
	Message        string         `json:"message"`
	Turn           int            `json:"turn"`
	TargetPlayerID string         `json:"targetPlayerId,omitempty"`
}

func (e Event) Clone() Event {
	e.Payload = maps.Clone(e.Payload)
	return e
}
