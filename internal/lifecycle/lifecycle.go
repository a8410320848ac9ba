package lifecycle

import (
	"context"
	"time"

	"github.com/pixil98/go-battle/internal/battle"
)

const (
	DefaultPhaseTimeout    = 60 * time.Second
	DefaultDisconnectGrace = 30 * time.Second
)

// Repository is the durable record of battles.
type Repository interface {
	CreateBattle(ctx context.Context, b *battle.Battle) error
	SaveBattleOutcome(ctx context.Context, b *battle.Battle) error
	UpdateConnections(ctx context.Context, b *battle.Battle) error
	FindActiveBattleByConnection(ctx context.Context, connID string) (*battle.Battle, error)
}

// PartyProvider looks up the roster a user brings to battle.
type PartyProvider interface {
	GetParty(ctx context.Context, userID string) (*battle.Party, error)
}

// FirstMoverPolicy picks the player who acts first when nothing else
// breaks a tie.
type FirstMoverPolicy interface {
	FirstMover(playerA, playerB string) string
}

// PlayerAFirst gives the first move to the player who waited in the queue.
type PlayerAFirst struct{}

func (PlayerAFirst) FirstMover(playerA, _ string) string {
	return playerA
}

// Observer is told about every committed change while the battle lock is
// still held, so one battle's notifications arrive in commit order.
type Observer interface {
	BattleStarted(ctx context.Context, b *battle.Battle)
	StateChanged(ctx context.Context, st *battle.State)
	PlayerRejoined(ctx context.Context, st *battle.State, playerID string)
	PlayerDisconnected(ctx context.Context, st *battle.State, playerID string)
}
