package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/cache"
	"github.com/pixil98/go-battle/internal/narration"
)

const DefaultPhaseTimeout = 60 * time.Second

// ResultApplier commits a mutated state. It is called with the battle lock
// held and may reject the state, in which case the store is left untouched.
type ResultApplier interface {
	ApplyTurnResult(ctx context.Context, battleID string, st *battle.State) error
}

// Observer is told about every committed state while the battle lock is
// still held, so one battle's notifications arrive in commit order.
type Observer interface {
	StateChanged(ctx context.Context, st *battle.State)
}

type EngineOpt func(*Engine)

func WithTurnOrder(p TurnOrderPolicy) EngineOpt {
	return func(e *Engine) {
		e.order = p
	}
}

func WithRoller(r Roller) EngineOpt {
	return func(e *Engine) {
		e.rng = r
	}
}

func WithTimeoutPolicy(p TimeoutPolicy) EngineOpt {
	return func(e *Engine) {
		e.timeout = p
	}
}

// WithPhaseTimeout sets how long a phase may wait for submissions. Zero
// disables deadlines.
func WithPhaseTimeout(d time.Duration) EngineOpt {
	return func(e *Engine) {
		e.phaseTimeout = d
	}
}

func WithClock(now func() time.Time) EngineOpt {
	return func(e *Engine) {
		e.now = now
	}
}

func WithObserver(o Observer) EngineOpt {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine validates and resolves turns against the battle store.
type Engine struct {
	store    cache.Store
	results  ResultApplier
	registry *narration.Registry

	order        TurnOrderPolicy
	rng          Roller
	timeout      TimeoutPolicy
	phaseTimeout time.Duration
	now          func() time.Time
	observer     Observer

	metrics *metrics
}

func NewEngine(store cache.Store, results ResultApplier, registry *narration.Registry, opts ...EngineOpt) (*Engine, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		store:        store,
		results:      results,
		registry:     registry,
		order:        PriorityOrder{},
		rng:          defaultRoller{},
		timeout:      TimeoutPass,
		phaseTimeout: DefaultPhaseTimeout,
		now:          time.Now,
		metrics:      m,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) String() string {
	return "engine"
}

// RunTurn records playerID's action and resolves the turn once both sides
// have submitted. On any error the stored state is unchanged.
func (e *Engine) RunTurn(ctx context.Context, battleID string, playerID string, a battle.Action) (*battle.State, error) {
	unlock, err := e.store.Lock(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("locking battle %s: %w", battleID, err)
	}
	defer unlock()

	st, err := e.store.Get(ctx, battleID)
	if err != nil {
		return nil, err
	}

	if err := Validate(st, playerID, a); err != nil {
		e.metrics.actionRejected(ctx, a.Kind.String())
		return nil, err
	}

	st.BeginLog()
	me, _ := st.Sides(playerID)

	t := &turn{st: st, rng: e.rng}
	switch st.Phase {
	case battle.PhaseSelection:
		t.selectUnit(me, a.UnitIndex)
		e.finishSelection(t)
	case battle.PhaseSubmission:
		pending := a
		me.Pending = &pending
		if st.Player1.Pending != nil && st.Player2.Pending != nil {
			e.resolve(ctx, t)
		}
	}
	st.AppendEvents(e.registry.CreateAll(t.notes)...)

	err = e.results.ApplyTurnResult(ctx, battleID, st)
	if err != nil {
		return nil, fmt.Errorf("applying turn result: %w", err)
	}

	slog.DebugContext(ctx, "action accepted",
		"battle", battleID,
		"player", playerID,
		"action", a.String(),
		"turn", st.TurnNumber,
		"phase", st.Phase)

	e.notify(ctx, st)
	return st, nil
}

// finishSelection moves to the submission phase once both sides picked.
func (e *Engine) finishSelection(t *turn) {
	st := t.st
	if !st.Player1.HasSelected || !st.Player2.HasSelected {
		return
	}
	st.Phase = battle.PhaseSubmission
	e.setDeadline(st)
}

// resolve runs both pending actions and the end of turn.
func (e *Engine) resolve(ctx context.Context, t *turn) {
	st := t.st
	for _, side := range e.order.Order(st) {
		if st.IsFinished() {
			break
		}
		_, them := st.Sides(side.PlayerID)
		t.act(side, them, *side.Pending)
	}

	if !st.IsFinished() {
		t.tickEffects()
	}
	t.checkWinner()

	if st.IsFinished() {
		t.note(narration.KindBattleFinished, map[string]any{"winnerId": st.WinnerID})
	} else {
		t.note(narration.KindTurnEnd, map[string]any{"turn": st.TurnNumber})
	}

	// Events from this turn are stamped before the counter moves.
	st.AppendEvents(e.registry.CreateAll(t.notes)...)
	t.notes = nil

	st.Player1.Pending = nil
	st.Player2.Pending = nil
	if !st.IsFinished() {
		st.TurnNumber++
		e.setDeadline(st)
	}

	e.metrics.resolved.Add(ctx, 1)
}

func (e *Engine) setDeadline(st *battle.State) {
	if e.phaseTimeout <= 0 {
		st.Deadline = 0
		return
	}
	st.Deadline = e.now().Add(e.phaseTimeout).UnixMilli()
}

// Tick applies the timeout policy to every battle whose phase deadline has
// passed.
func (e *Engine) Tick(ctx context.Context) error {
	all, err := e.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing battles: %w", err)
	}

	now := e.now()
	for id, st := range all {
		if st.IsFinished() || !st.DeadlinePassed(now) {
			continue
		}
		err := e.expire(ctx, id)
		if err != nil && !errors.Is(err, battle.ErrNotFound) {
			slog.ErrorContext(ctx, "expiring battle phase", "battle", id, "error", err)
		}
	}
	return nil
}

func (e *Engine) expire(ctx context.Context, battleID string) error {
	unlock, err := e.store.Lock(ctx, battleID)
	if err != nil {
		return fmt.Errorf("locking battle: %w", err)
	}
	defer unlock()

	st, err := e.store.Get(ctx, battleID)
	if err != nil {
		return err
	}
	// A submission may have landed between the sweep and the lock.
	if st.IsFinished() || !st.DeadlinePassed(e.now()) {
		return nil
	}

	st.BeginLog()
	t := &turn{st: st, rng: e.rng}
	e.timeout.apply(ctx, e, t)
	st.AppendEvents(e.registry.CreateAll(t.notes)...)

	err = e.results.ApplyTurnResult(ctx, battleID, st)
	if err != nil {
		return fmt.Errorf("applying timeout result: %w", err)
	}
	e.metrics.timeouts.Add(ctx, 1)

	slog.InfoContext(ctx, "battle phase timed out",
		"battle", battleID,
		"phase", st.Phase,
		"turn", st.TurnNumber,
		"policy", e.timeout.String())

	e.notify(ctx, st)
	return nil
}

func (e *Engine) notify(ctx context.Context, st *battle.State) {
	if e.observer != nil {
		e.observer.StateChanged(ctx, st)
	}
}
