package command

import (
	"fmt"

	"github.com/pixil98/go-battle/internal/messaging"
	"github.com/pixil98/go-errors"
)

// NatsConfig configures the embedded broadcast broker. With in_process set
// the broker opens no port and host and port must be empty.
type NatsConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	InProcess    bool   `json:"in_process"`
	MaxPayload   int32  `json:"max_payload,omitempty"`
	StartTimeout string `json:"start_timeout"`
}

func (n *NatsConfig) validate() error {
	el := errors.NewErrorList()

	if _, err := parseOptionalDuration("nats: start_timeout", n.StartTimeout, 0); err != nil {
		el.Add(err)
	}
	if n.Port < -1 || n.Port > 65535 {
		el.Add(fmt.Errorf("nats: port %d is out of range", n.Port))
	}
	if n.InProcess && (n.Host != "" || n.Port != 0) {
		el.Add(fmt.Errorf("nats: host and port cannot be set with in_process"))
	}
	if n.MaxPayload < 0 {
		el.Add(fmt.Errorf("nats: max_payload must not be negative"))
	}

	return el.Err()
}

func (n *NatsConfig) buildNatsServer() (*messaging.NatsServer, error) {
	var opts []messaging.NatsServerOpt

	timeout, err := parseOptionalDuration("start_timeout", n.StartTimeout, 0)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		opts = append(opts, messaging.WithStartTimeout(timeout))
	}

	if n.InProcess {
		opts = append(opts, messaging.WithInProcessOnly())
	}
	if n.Host != "" {
		opts = append(opts, messaging.WithHost(n.Host))
	}
	if n.Port != 0 {
		opts = append(opts, messaging.WithPort(n.Port))
	}
	if n.MaxPayload > 0 {
		opts = append(opts, messaging.WithMaxPayload(n.MaxPayload))
	}

	return messaging.NewNatsServer(opts...)
}
