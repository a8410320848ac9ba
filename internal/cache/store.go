package cache

import (
	"context"
	"time"

	"github.com/pixil98/go-battle/internal/battle"
)

const (
	DefaultLockTTL   = 10 * time.Second
	DefaultLockRetry = 20 * time.Millisecond
)

// Store holds one live battle state per active battle. Callers that mutate a
// battle must hold its Lock for the whole read-resolve-write cycle.
type Store interface {
	// Get returns an independent copy of the state or battle.ErrNotFound.
	Get(ctx context.Context, battleID string) (*battle.State, error)
	Set(ctx context.Context, battleID string, state *battle.State) error
	Delete(ctx context.Context, battleID string) error
	// ListAll is for diagnostics and periodic sweeps, not the turn path.
	ListAll(ctx context.Context) (map[string]*battle.State, error)
	// Lock blocks until the caller owns battleID or ctx is done.
	Lock(ctx context.Context, battleID string) (func(), error)
}
