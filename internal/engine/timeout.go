package engine

import (
	"context"
	"fmt"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/narration"
)

// TimeoutPolicy decides what happens to sides that miss a phase deadline.
type TimeoutPolicy int

const (
	// TimeoutPass submits a Pass for each missing side, or the first healthy
	// unit when a switch or selection is required.
	TimeoutPass TimeoutPolicy = iota
	// TimeoutForfeit ends the battle against a single missing side. When both
	// sides are missing it behaves like TimeoutPass.
	TimeoutForfeit
)

func (p TimeoutPolicy) String() string {
	switch p {
	case TimeoutPass:
		return "pass"
	case TimeoutForfeit:
		return "forfeit"
	default:
		return fmt.Sprintf("TimeoutPolicy(%d)", int(p))
	}
}

func (p TimeoutPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *TimeoutPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeoutPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func ParseTimeoutPolicy(name string) (TimeoutPolicy, error) {
	switch name {
	case "", "pass":
		return TimeoutPass, nil
	case "forfeit":
		return TimeoutForfeit, nil
	default:
		return 0, fmt.Errorf("unknown timeout policy %q", name)
	}
}

func (p TimeoutPolicy) apply(ctx context.Context, e *Engine, t *turn) {
	missing := missingSides(t.st)
	if len(missing) == 0 {
		return
	}

	if p == TimeoutForfeit && len(missing) == 1 {
		loser := missing[0]
		winner := t.st.OpponentID(loser.PlayerID)
		t.note(narration.KindTurnTimeout, map[string]any{"playerId": loser.PlayerID})
		t.note(narration.KindPlayerForfeit, map[string]any{"playerId": loser.PlayerID, "winnerId": winner})
		t.st.Finish(winner)
		t.note(narration.KindBattleFinished, map[string]any{"winnerId": winner})
		return
	}

	for _, side := range missing {
		t.note(narration.KindTurnTimeout, map[string]any{"playerId": side.PlayerID})
		switch t.st.Phase {
		case battle.PhaseSelection:
			if i := side.FirstHealthy(); i >= 0 {
				t.selectUnit(side, i)
			}
		case battle.PhaseSubmission:
			a := battle.PassAction()
			if side.ForcedSwitch() {
				if i := side.FirstHealthy(); i >= 0 {
					a = battle.SwitchAction(i)
				}
			}
			side.Pending = &a
		}
	}

	switch t.st.Phase {
	case battle.PhaseSelection:
		e.finishSelection(t)
	case battle.PhaseSubmission:
		e.resolve(ctx, t)
	}
}

// missingSides returns the sides that have not acted in the current phase.
func missingSides(st *battle.State) []*battle.Side {
	var missing []*battle.Side
	for _, side := range []*battle.Side{st.Player1, st.Player2} {
		switch st.Phase {
		case battle.PhaseSelection:
			if !side.HasSelected {
				missing = append(missing, side)
			}
		case battle.PhaseSubmission:
			if side.Pending == nil {
				missing = append(missing, side)
			}
		}
	}
	return missing
}
