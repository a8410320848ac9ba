package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/cache"
	"github.com/pixil98/go-battle/internal/narration"
	"golang.org/x/sync/errgroup"
)

type ManagerOpt func(*Manager)

func WithFirstMover(p FirstMoverPolicy) ManagerOpt {
	return func(m *Manager) {
		m.firstMover = p
	}
}

// WithPhaseTimeout sets the deadline given to a new battle's first phase.
// Zero disables it.
func WithPhaseTimeout(d time.Duration) ManagerOpt {
	return func(m *Manager) {
		m.phaseTimeout = d
	}
}

// WithSelection starts battles in the selection phase.
func WithSelection(enabled bool) ManagerOpt {
	return func(m *Manager) {
		m.requireSelection = enabled
	}
}

func WithDisconnectGrace(d time.Duration) ManagerOpt {
	return func(m *Manager) {
		m.grace = d
	}
}

func WithClock(now func() time.Time) ManagerOpt {
	return func(m *Manager) {
		m.now = now
	}
}

func WithObserver(o Observer) ManagerOpt {
	return func(m *Manager) {
		m.observer = o
	}
}

func WithIDGenerator(gen func() string) ManagerOpt {
	return func(m *Manager) {
		m.newID = gen
	}
}

// Manager creates battles, commits their results and ends them.
type Manager struct {
	store    cache.Store
	repo     Repository
	parties  PartyProvider
	registry *narration.Registry

	firstMover       FirstMoverPolicy
	phaseTimeout     time.Duration
	requireSelection bool
	grace            time.Duration
	now              func() time.Time
	newID            func() string
	observer         Observer

	mu    sync.RWMutex
	conns map[string]string

	metrics *metrics
}

func NewManager(store cache.Store, repo Repository, parties PartyProvider, registry *narration.Registry, opts ...ManagerOpt) (*Manager, error) {
	mt, err := newMetrics()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:        store,
		repo:         repo,
		parties:      parties,
		registry:     registry,
		firstMover:   PlayerAFirst{},
		phaseTimeout: DefaultPhaseTimeout,
		grace:        DefaultDisconnectGrace,
		now:          time.Now,
		newID:        uuid.NewString,
		conns:        map[string]string{},
		metrics:      mt,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) String() string {
	return "lifecycle"
}

// CreateBattle starts a battle between two matched players. userA is the
// player who was waiting.
func (m *Manager) CreateBattle(ctx context.Context, userA, userB, connA, connB string) (*battle.Battle, error) {
	var partyA, partyB *battle.Party

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		partyA, err = m.loadParty(gctx, userA)
		return err
	})
	g.Go(func() error {
		var err error
		partyB, err = m.loadParty(gctx, userB)
		return err
	})
	err := g.Wait()
	if err != nil {
		return nil, err
	}

	battleID := m.newID()
	unlock, err := m.store.Lock(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("locking battle %s: %w", battleID, err)
	}
	defer unlock()

	now := m.now()
	st := &battle.State{
		BattleID:        battleID,
		CreatedAt:       now,
		Phase:           battle.PhaseSubmission,
		Player1:         battle.NewSide(userA, connA, partyA),
		Player2:         battle.NewSide(userB, connB, partyB),
		TurnNumber:      1,
		CurrentPlayerID: m.firstMover.FirstMover(userA, userB),
		BattleStatus:    battle.StatusActive,
		Events:          []battle.Event{},
	}
	if m.requireSelection {
		st.Phase = battle.PhaseSelection
	}
	if m.phaseTimeout > 0 {
		st.Deadline = now.Add(m.phaseTimeout).UnixMilli()
	}

	err = m.store.Set(ctx, st.BattleID, st)
	if err != nil {
		return nil, fmt.Errorf("storing battle state: %w", err)
	}

	b := battle.FromState(st)
	err = m.repo.CreateBattle(ctx, b)
	if err != nil {
		if derr := m.store.Delete(ctx, st.BattleID); derr != nil {
			slog.ErrorContext(ctx, "removing unrecorded battle", "battle", st.BattleID, "error", derr)
		}
		return nil, fmt.Errorf("recording battle: %w", err)
	}

	m.index(connA, st.BattleID)
	m.index(connB, st.BattleID)
	m.metrics.battleStarted(ctx)

	slog.InfoContext(ctx, "battle created",
		"battle", st.BattleID,
		"player1", userA,
		"player2", userB,
		"phase", st.Phase)

	if m.observer != nil {
		m.observer.BattleStarted(ctx, b)
	}
	return b, nil
}

func (m *Manager) loadParty(ctx context.Context, userID string) (*battle.Party, error) {
	p, err := m.parties.GetParty(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading party for %s: %w", userID, err)
	}
	if p == nil || len(p.Units) == 0 {
		return nil, battle.NewValidationError("player %s has no units", userID)
	}
	return p, nil
}

// ApplyTurnResult commits a state produced by the engine. A terminal state
// is recorded and evicted. The caller must hold the battle lock.
func (m *Manager) ApplyTurnResult(ctx context.Context, battleID string, st *battle.State) error {
	if !st.IsFinished() {
		err := m.store.Set(ctx, battleID, st)
		if err != nil {
			return fmt.Errorf("storing battle state: %w", err)
		}
		return nil
	}

	if !st.IsParticipant(st.WinnerID) {
		err := fmt.Errorf("%w: battle %s finished with winner %q", battle.ErrInvariantViolation, battleID, st.WinnerID)
		slog.ErrorContext(ctx, "rejecting battle result", "battle", battleID, "error", err)
		return err
	}

	endedAt := m.now()
	b := battle.FromState(st)
	b.EndedAt = &endedAt

	err := m.repo.SaveBattleOutcome(ctx, b)
	if err != nil {
		return fmt.Errorf("recording battle outcome: %w", err)
	}

	err = m.store.Delete(ctx, battleID)
	if err != nil {
		return fmt.Errorf("evicting battle state: %w", err)
	}

	m.unindex(st.Player1.ConnectionID, battleID)
	m.unindex(st.Player2.ConnectionID, battleID)
	m.metrics.battleFinished(ctx)

	slog.InfoContext(ctx, "battle finished",
		"battle", battleID,
		"winner", st.WinnerID,
		"turns", st.TurnNumber)

	return nil
}

// FindActiveBattleByConnection returns the live battle bound to connID, or
// nil if there is none.
func (m *Manager) FindActiveBattleByConnection(ctx context.Context, connID string) (*battle.Battle, error) {
	if id, ok := m.lookup(connID); ok {
		st, err := m.store.Get(ctx, id)
		if err == nil && st.SideByConnection(connID) != nil {
			return battle.FromState(st), nil
		}
		if err != nil && !errors.Is(err, battle.ErrNotFound) {
			return nil, err
		}
		m.unindex(connID, id)
	}

	// The index is empty after a restart.
	all, err := m.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing battles: %w", err)
	}
	for id, st := range all {
		if st.IsFinished() || st.SideByConnection(connID) == nil {
			continue
		}
		m.index(connID, id)
		return battle.FromState(st), nil
	}

	rec, err := m.repo.FindActiveBattleByConnection(ctx, connID)
	if errors.Is(err, battle.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	slog.WarnContext(ctx, "active battle record has no live state", "battle", rec.ID, "connection", connID)
	return nil, nil
}

// RebindConnection attaches playerID's side to a new connection.
func (m *Manager) RebindConnection(ctx context.Context, battleID, playerID, connID string) (*battle.State, error) {
	unlock, err := m.store.Lock(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("locking battle %s: %w", battleID, err)
	}
	defer unlock()

	st, err := m.store.Get(ctx, battleID)
	if err != nil {
		return nil, err
	}

	me, _ := st.Sides(playerID)
	if me == nil {
		return nil, &battle.ValidationError{Reason: "cannot rejoin this battle", Err: battle.ErrNotAParticipant}
	}

	old := me.ConnectionID
	me.ConnectionID = connID
	me.DisconnectedAt = 0
	st.BeginLog()

	err = m.store.Set(ctx, battleID, st)
	if err != nil {
		return nil, fmt.Errorf("storing battle state: %w", err)
	}

	err = m.repo.UpdateConnections(ctx, battle.FromState(st))
	if err != nil {
		slog.WarnContext(ctx, "recording rebound connection", "battle", battleID, "error", err)
	}

	m.unindex(old, battleID)
	m.index(connID, battleID)

	slog.InfoContext(ctx, "connection rebound",
		"battle", battleID,
		"player", playerID,
		"connection", connID)

	if m.observer != nil {
		m.observer.PlayerRejoined(ctx, st, playerID)
	}
	return st, nil
}

// HandleDisconnect starts the grace period for the side bound to connID.
// It returns nil if the connection was not in a battle.
func (m *Manager) HandleDisconnect(ctx context.Context, connID string) (*battle.State, error) {
	b, err := m.FindActiveBattleByConnection(ctx, connID)
	if err != nil || b == nil {
		return nil, err
	}

	unlock, err := m.store.Lock(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("locking battle %s: %w", b.ID, err)
	}
	defer unlock()

	st, err := m.store.Get(ctx, b.ID)
	if errors.Is(err, battle.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	m.unindex(connID, b.ID)

	side := st.SideByConnection(connID)
	if side == nil {
		return nil, nil
	}
	side.DisconnectedAt = m.now().UnixMilli()
	st.BeginLog()

	err = m.store.Set(ctx, b.ID, st)
	if err != nil {
		return nil, fmt.Errorf("storing battle state: %w", err)
	}

	slog.InfoContext(ctx, "player disconnected from battle",
		"battle", b.ID,
		"player", side.PlayerID,
		"grace", m.grace)

	if m.observer != nil {
		m.observer.PlayerDisconnected(ctx, st, side.PlayerID)
	}
	return st, nil
}

// Forfeit ends a battle with loserID's opponent as the winner.
func (m *Manager) Forfeit(ctx context.Context, battleID, loserID string) (*battle.State, error) {
	unlock, err := m.store.Lock(ctx, battleID)
	if err != nil {
		return nil, fmt.Errorf("locking battle %s: %w", battleID, err)
	}
	defer unlock()

	st, err := m.store.Get(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if !st.IsParticipant(loserID) {
		return nil, &battle.ValidationError{Reason: "cannot forfeit this battle", Err: battle.ErrNotAParticipant}
	}
	if st.IsFinished() {
		return nil, battle.NewValidationError("battle is already finished")
	}

	err = m.forfeit(ctx, st, loserID)
	if err != nil {
		return nil, err
	}

	if m.observer != nil {
		m.observer.StateChanged(ctx, st)
	}
	return st, nil
}

func (m *Manager) forfeit(ctx context.Context, st *battle.State, loserID string) error {
	winnerID := st.OpponentID(loserID)

	st.BeginLog()
	st.Finish(winnerID)
	st.AppendEvents(m.registry.CreateAll([]narration.Notification{
		narration.Notify(narration.KindPlayerForfeit, map[string]any{"playerId": loserID, "winnerId": winnerID}),
		narration.Notify(narration.KindBattleFinished, map[string]any{"winnerId": winnerID}),
	})...)

	return m.ApplyTurnResult(ctx, st.BattleID, st)
}

// Tick forfeits every player whose disconnect grace has run out.
func (m *Manager) Tick(ctx context.Context) error {
	all, err := m.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing battles: %w", err)
	}

	for id, st := range all {
		if st.IsFinished() {
			continue
		}
		for _, side := range []*battle.Side{st.Player1, st.Player2} {
			if !m.graceExpired(side) {
				continue
			}
			err := m.expireDisconnect(ctx, id, side.PlayerID)
			if err != nil && !errors.Is(err, battle.ErrNotFound) {
				slog.ErrorContext(ctx, "forfeiting disconnected player", "battle", id, "player", side.PlayerID, "error", err)
			}
			break
		}
	}
	return nil
}

func (m *Manager) graceExpired(side *battle.Side) bool {
	if side.DisconnectedAt == 0 {
		return false
	}
	return m.now().UnixMilli() >= side.DisconnectedAt+m.grace.Milliseconds()
}

func (m *Manager) expireDisconnect(ctx context.Context, battleID, playerID string) error {
	unlock, err := m.store.Lock(ctx, battleID)
	if err != nil {
		return fmt.Errorf("locking battle: %w", err)
	}
	defer unlock()

	st, err := m.store.Get(ctx, battleID)
	if err != nil {
		return err
	}
	// The player may have rejoined since the sweep read the state.
	me, _ := st.Sides(playerID)
	if me == nil || st.IsFinished() || !m.graceExpired(me) {
		return nil
	}

	err = m.forfeit(ctx, st, playerID)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "disconnected player forfeited", "battle", battleID, "player", playerID)
	if m.observer != nil {
		m.observer.StateChanged(ctx, st)
	}
	return nil
}

func (m *Manager) index(connID, battleID string) {
	if connID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[connID] = battleID
}

func (m *Manager) unindex(connID, battleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conns[connID] == battleID {
		delete(m.conns, connID)
	}
}

func (m *Manager) lookup(connID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.conns[connID]
	return id, ok
}
