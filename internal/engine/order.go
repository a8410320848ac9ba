package engine

import (
	"fmt"

	"github.com/pixil98/go-battle/internal/battle"
)

// TurnOrderPolicy decides which side's pending action resolves first.
type TurnOrderPolicy interface {
	Order(st *battle.State) [2]*battle.Side
}

// FixedOrder always lets the first mover act first.
type FixedOrder struct{}

func (FixedOrder) Order(st *battle.State) [2]*battle.Side {
	return firstMoverOrder(st)
}

// PriorityOrder sorts by action priority, then active unit speed, then
// falls back to the first mover.
type PriorityOrder struct{}

func (PriorityOrder) Order(st *battle.State) [2]*battle.Side {
	order := firstMoverOrder(st)
	a, b := order[0], order[1]

	pa, pb := priority(a), priority(b)
	if pa != pb {
		if pb > pa {
			return [2]*battle.Side{b, a}
		}
		return order
	}

	sa, sb := speed(a), speed(b)
	if sb > sa {
		return [2]*battle.Side{b, a}
	}
	return order
}

// ParseTurnOrder maps a config name to a policy.
func ParseTurnOrder(name string) (TurnOrderPolicy, error) {
	switch name {
	case "", "priority":
		return PriorityOrder{}, nil
	case "fixed":
		return FixedOrder{}, nil
	default:
		return nil, fmt.Errorf("unknown turn order %q", name)
	}
}

func firstMoverOrder(st *battle.State) [2]*battle.Side {
	if st.CurrentPlayerID == st.Player2.PlayerID {
		return [2]*battle.Side{st.Player2, st.Player1}
	}
	return [2]*battle.Side{st.Player1, st.Player2}
}

func priority(s *battle.Side) int {
	if s.Pending == nil {
		return 0
	}
	return s.Pending.Kind.Priority()
}

func speed(s *battle.Side) int {
	u := s.Active()
	if u == nil {
		return 0
	}
	return u.Speed
}
