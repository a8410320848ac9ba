package matchmaking

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pixil98/go-battle/internal/battle"
)

// Lifecycle is the part of the battle lifecycle the queue drives.
type Lifecycle interface {
	CreateBattle(ctx context.Context, userA, userB, connA, connB string) (*battle.Battle, error)
	HandleDisconnect(ctx context.Context, connID string) (*battle.State, error)
}

// WaitingPlayer is one queue entry.
type WaitingPlayer struct {
	UserID       string
	ConnectionID string
	EnqueuedAt   time.Time
}

// Result is the outcome of Enqueue. Battle is nil while Waiting.
type Result struct {
	Waiting bool
	Battle  *battle.Battle
}

type QueueOpt func(*Queue)

func WithClock(now func() time.Time) QueueOpt {
	return func(q *Queue) {
		q.now = now
	}
}

// Queue pairs waiting players first come, first served.
type Queue struct {
	lifecycle Lifecycle
	now       func() time.Time

	// mu is held across CreateBattle so pairing and creation are atomic.
	mu      sync.Mutex
	waiting []WaitingPlayer

	metrics *metrics
}

func NewQueue(lifecycle Lifecycle, opts ...QueueOpt) (*Queue, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	q := &Queue{
		lifecycle: lifecycle,
		now:       time.Now,
		metrics:   m,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue pairs the caller with the longest waiting other user, or adds the
// caller to the queue. The waiting user becomes player one.
func (q *Queue) Enqueue(ctx context.Context, userID, connID string) (Result, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if i := q.indexOfUser(userID); i >= 0 {
		q.waiting[i].ConnectionID = connID
		slog.InfoContext(ctx, "refreshed queued player", "user", userID, "connection", connID)
		return Result{Waiting: true}, nil
	}

	i := slices.IndexFunc(q.waiting, func(w WaitingPlayer) bool {
		return w.UserID != userID
	})
	if i < 0 {
		q.waiting = append(q.waiting, WaitingPlayer{UserID: userID, ConnectionID: connID, EnqueuedAt: q.now()})
		q.metrics.waitingDelta(ctx, 1)
		slog.InfoContext(ctx, "player waiting for match", "user", userID, "queued", len(q.waiting))
		return Result{Waiting: true}, nil
	}

	opponent := q.waiting[i]
	q.waiting = slices.Delete(q.waiting, i, i+1)

	b, err := q.lifecycle.CreateBattle(ctx, opponent.UserID, userID, opponent.ConnectionID, connID)
	if err != nil {
		q.waiting = slices.Insert(q.waiting, 0, opponent)
		return Result{}, fmt.Errorf("creating battle: %w", err)
	}

	q.metrics.waitingDelta(ctx, -1)
	q.metrics.matched(ctx, opponent.EnqueuedAt, q.now())
	slog.InfoContext(ctx, "players matched",
		"battle", b.ID,
		"player1", opponent.UserID,
		"player2", userID)

	return Result{Battle: b}, nil
}

// RemoveByConnection drops a waiting entry for connID. If the connection was
// not waiting but is mid-battle, the disconnect is passed on and the affected
// battle returned.
func (q *Queue) RemoveByConnection(ctx context.Context, connID string) (*battle.State, error) {
	if q.removeWaiting(ctx, connID) {
		return nil, nil
	}

	st, err := q.lifecycle.HandleDisconnect(ctx, connID)
	if err != nil {
		return nil, fmt.Errorf("handling disconnect: %w", err)
	}
	return st, nil
}

func (q *Queue) removeWaiting(ctx context.Context, connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := slices.IndexFunc(q.waiting, func(w WaitingPlayer) bool {
		return w.ConnectionID == connID
	})
	if i < 0 {
		return false
	}

	slog.InfoContext(ctx, "player left queue", "user", q.waiting[i].UserID)
	q.waiting = slices.Delete(q.waiting, i, i+1)
	q.metrics.waitingDelta(ctx, -1)
	return true
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

// Snapshot returns a copy of the queue in order.
func (q *Queue) Snapshot() []WaitingPlayer {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.waiting)
}

func (q *Queue) indexOfUser(userID string) int {
	return slices.IndexFunc(q.waiting, func(w WaitingPlayer) bool {
		return w.UserID == userID
	})
}
