package messaging

import (
	"encoding/json"
	"fmt"
)

// Event names sent to clients.
const (
	EventWaiting              = "waiting"
	EventMatchFound           = "match-found"
	EventTurnUpdate           = "turn-update"
	EventBattleEnd            = "battle-end"
	EventActionRejected       = "action-rejected"
	EventOpponentDisconnected = "opponent-disconnected"
	EventOpponentReconnected  = "opponent-reconnected"
)

type Publisher interface {
	Publish(subject string, data []byte) error
}

type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// Envelope is the wire shape of every message sent to a connection.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Subject is the NATS subject a connection's messages are published on.
func Subject(connID string) string {
	return "conn-" + connID
}

// Broadcaster sends enveloped events to individual connections.
type Broadcaster struct {
	pub Publisher
}

func NewBroadcaster(pub Publisher) *Broadcaster {
	return &Broadcaster{pub: pub}
}

func (b *Broadcaster) Send(connID, event string, payload any) error {
	data, err := Encode(event, payload)
	if err != nil {
		return err
	}
	err = b.pub.Publish(Subject(connID), data)
	if err != nil {
		return fmt.Errorf("publishing %s to %s: %w", event, connID, err)
	}
	return nil
}

func Encode(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding %s payload: %w", event, err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

func Decode(data []byte) (Envelope, error) {
	var env Envelope
	err := json.Unmarshal(data, &env)
	if err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}
