package command

import (
	"fmt"

	"github.com/pixil98/go-battle/internal/cache"
	"github.com/pixil98/go-battle/internal/engine"
	"github.com/pixil98/go-battle/internal/lifecycle"
	"github.com/pixil98/go-battle/internal/narration"
	"github.com/pixil98/go-errors"
)

// EngineConfig tunes turn resolution and battle lifecycle rules.
type EngineConfig struct {
	TurnOrder       string               `json:"turn_order"`
	TimeoutPolicy   engine.TimeoutPolicy `json:"timeout_policy"`
	PhaseTimeout    string               `json:"phase_timeout"`
	DisconnectGrace string               `json:"disconnect_grace"`
	Selection       bool                 `json:"selection"`

	// Narration overrides message templates keyed by event type.
	Narration map[string]string `json:"narration,omitempty"`
}

func (c *EngineConfig) validate() error {
	el := errors.NewErrorList()

	if _, err := engine.ParseTurnOrder(c.TurnOrder); err != nil {
		el.Add(fmt.Errorf("engine: %w", err))
	}
	if _, err := parseOptionalDuration("engine: phase_timeout", c.PhaseTimeout, 0); err != nil {
		el.Add(err)
	}
	if _, err := parseOptionalDuration("engine: disconnect_grace", c.DisconnectGrace, 0); err != nil {
		el.Add(err)
	}
	for key := range c.Narration {
		if narration.ParseKind(key) == narration.KindUnknown {
			el.Add(fmt.Errorf("engine: narration: unknown event type %q", key))
		}
	}

	return el.Err()
}

func (c *EngineConfig) BuildRegistry() (*narration.Registry, error) {
	var opts []narration.RegistryOpt
	for key, text := range c.Narration {
		opts = append(opts, narration.WithTemplate(narration.ParseKind(key), text))
	}
	return narration.NewRegistry(opts...)
}

func (c *EngineConfig) BuildLifecycle(store cache.Store, repo lifecycle.Repository, parties lifecycle.PartyProvider, registry *narration.Registry, observer lifecycle.Observer) (*lifecycle.Manager, error) {
	phase, err := parseOptionalDuration("phase_timeout", c.PhaseTimeout, lifecycle.DefaultPhaseTimeout)
	if err != nil {
		return nil, err
	}
	grace, err := parseOptionalDuration("disconnect_grace", c.DisconnectGrace, lifecycle.DefaultDisconnectGrace)
	if err != nil {
		return nil, err
	}

	return lifecycle.NewManager(store, repo, parties, registry,
		lifecycle.WithPhaseTimeout(phase),
		lifecycle.WithDisconnectGrace(grace),
		lifecycle.WithSelection(c.Selection),
		lifecycle.WithObserver(observer),
	)
}

func (c *EngineConfig) BuildEngine(store cache.Store, results engine.ResultApplier, registry *narration.Registry, observer engine.Observer) (*engine.Engine, error) {
	order, err := engine.ParseTurnOrder(c.TurnOrder)
	if err != nil {
		return nil, err
	}
	phase, err := parseOptionalDuration("phase_timeout", c.PhaseTimeout, engine.DefaultPhaseTimeout)
	if err != nil {
		return nil, err
	}

	return engine.NewEngine(store, results, registry,
		engine.WithTurnOrder(order),
		engine.WithTimeoutPolicy(c.TimeoutPolicy),
		engine.WithPhaseTimeout(phase),
		engine.WithObserver(observer),
	)
}
