package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/cache"
	"github.com/pixil98/go-battle/internal/narration"
	"github.com/pixil98/go-testutil"
)

type fakeRepo struct {
	mu        sync.Mutex
	battles   map[string]*battle.Battle
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{battles: map[string]*battle.Battle{}}
}

func (r *fakeRepo) CreateBattle(_ context.Context, b *battle.Battle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	c := *b
	r.battles[b.ID] = &c
	return nil
}

func (r *fakeRepo) SaveBattleOutcome(_ context.Context, b *battle.Battle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *b
	r.battles[b.ID] = &c
	return nil
}

func (r *fakeRepo) UpdateConnections(_ context.Context, b *battle.Battle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.battles[b.ID]
	if !ok {
		return battle.ErrNotFound
	}
	rec.Player1ConnectionID = b.Player1ConnectionID
	rec.Player2ConnectionID = b.Player2ConnectionID
	return nil
}

func (r *fakeRepo) FindActiveBattleByConnection(_ context.Context, connID string) (*battle.Battle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.battles {
		if b.Status == battle.StatusActive && (b.Player1ConnectionID == connID || b.Player2ConnectionID == connID) {
			return b, nil
		}
	}
	return nil, battle.ErrNotFound
}

func (r *fakeRepo) get(id string) *battle.Battle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.battles[id]
}

type fakeParties map[string]*battle.Party

func (p fakeParties) GetParty(_ context.Context, userID string) (*battle.Party, error) {
	party, ok := p[userID]
	if !ok {
		return nil, fmt.Errorf("no party for %s", userID)
	}
	return party, nil
}

type recordingObserver struct {
	started      []string
	states       []*battle.State
	rejoined     []string
	disconnected []string
}

func (o *recordingObserver) BattleStarted(_ context.Context, b *battle.Battle) {
	o.started = append(o.started, b.ID)
}

func (o *recordingObserver) StateChanged(_ context.Context, st *battle.State) {
	o.states = append(o.states, st.Clone())
}

func (o *recordingObserver) PlayerRejoined(_ context.Context, _ *battle.State, playerID string) {
	o.rejoined = append(o.rejoined, playerID)
}

func (o *recordingObserver) PlayerDisconnected(_ context.Context, _ *battle.State, playerID string) {
	o.disconnected = append(o.disconnected, playerID)
}

func testParty(prefix string) *battle.Party {
	unit := func(id string) battle.UnitTemplate {
		return battle.UnitTemplate{ID: id, Name: id, BaseHP: 100, BaseAttack: 50, BaseDefense: 40, Speed: 10}
	}
	return &battle.Party{
		Units: []battle.UnitTemplate{unit(prefix + "1"), unit(prefix + "2")},
		Items: []battle.InventoryItem{{ItemID: "potion", Name: "Potion", Kind: battle.ItemHeal, Value: 20, Quantity: 2}},
	}
}

type harness struct {
	store    cache.Store
	repo     *fakeRepo
	manager  *Manager
	observer *recordingObserver
	now      time.Time
}

func newHarness(t *testing.T, opts ...ManagerOpt) *harness {
	t.Helper()
	h := &harness{
		store:    cache.NewMemoryStore(),
		repo:     newFakeRepo(),
		observer: &recordingObserver{},
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	h.manager = h.newManager(t, opts...)
	return h
}

func (h *harness) newManager(t *testing.T, opts ...ManagerOpt) *Manager {
	t.Helper()
	reg, err := narration.NewRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parties := fakeParties{
		"alice": testParty("a"),
		"bob":   testParty("b"),
		"empty": {},
	}
	base := []ManagerOpt{
		WithClock(func() time.Time { return h.now }),
		WithObserver(h.observer),
		WithIDGenerator(func() string { return "battle-1" }),
	}
	m, err := NewManager(h.store, h.repo, parties, reg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func (h *harness) create(t *testing.T) *battle.Battle {
	t.Helper()
	b, err := h.manager.CreateBattle(context.Background(), "alice", "bob", "conn-a", "conn-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return b
}

func TestManager_CreateBattle(t *testing.T) {
	tests := map[string]struct {
		opts     []ManagerOpt
		expPhase battle.Phase
	}{
		"submission by default": {
			expPhase: battle.PhaseSubmission,
		},
		"selection when configured": {
			opts:     []ManagerOpt{WithSelection(true)},
			expPhase: battle.PhaseSelection,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, tt.opts...)
			b := h.create(t)

			testutil.AssertEqual(t, "id", b.ID, "battle-1")
			testutil.AssertEqual(t, "status", b.Status, battle.StatusActive)

			st, err := h.store.Get(ctx, b.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "phase", st.Phase, tt.expPhase)
			testutil.AssertEqual(t, "turn", st.TurnNumber, 1)
			testutil.AssertEqual(t, "first mover", st.CurrentPlayerID, "alice")
			testutil.AssertEqual(t, "player1", st.Player1.PlayerID, "alice")
			testutil.AssertEqual(t, "player2 connection", st.Player2.ConnectionID, "conn-b")
			testutil.AssertEqual(t, "active index", st.Player1.ActiveUnitIndex, 0)
			testutil.AssertEqual(t, "full hp", st.Player2.Units[1].CurrentHP, 100)
			testutil.AssertEqual(t, "crit chance", st.Player1.Units[0].Modifiers.CritChance, 0.05)
			testutil.AssertEqual(t, "inventory", st.Player1.Item("potion").Quantity, 2)
			testutil.AssertEqual(t, "deadline", st.Deadline, h.now.Add(DefaultPhaseTimeout).UnixMilli())

			rec := h.repo.get(b.ID)
			if rec == nil {
				t.Fatal("expected a battle record")
			}
			testutil.AssertEqual(t, "record status", rec.Status, battle.StatusActive)

			found, err := h.manager.FindActiveBattleByConnection(ctx, "conn-b")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "indexed", found.ID, b.ID)
			testutil.AssertEqual(t, "started", h.observer.started, []string{"battle-1"})
		})
	}
}

func TestManager_CreateBattleFailures(t *testing.T) {
	tests := map[string]struct {
		userB     string
		repoErr   error
		expErr    string
		expValErr bool
	}{
		"empty party": {
			userB:     "empty",
			expErr:    "has no units",
			expValErr: true,
		},
		"party lookup fails": {
			userB:  "mallory",
			expErr: "loading party for mallory",
		},
		"record fails": {
			userB:   "bob",
			repoErr: errors.New("disk full"),
			expErr:  "recording battle",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			h.repo.createErr = tt.repoErr

			_, err := h.manager.CreateBattle(ctx, "alice", tt.userB, "conn-a", "conn-b")
			testutil.AssertErrorContains(t, err, tt.expErr)
			testutil.AssertEqual(t, "validation", battle.IsValidation(err), tt.expValErr)

			all, err := h.store.ListAll(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "stored battles", len(all), 0)
			testutil.AssertEqual(t, "started", len(h.observer.started), 0)
		})
	}
}

func TestManager_ApplyTurnResult(t *testing.T) {
	tests := map[string]struct {
		winner       string
		expErr       error
		expEvicted   bool
		expRecStatus battle.Status
	}{
		"finished with participant": {
			winner:       "bob",
			expEvicted:   true,
			expRecStatus: battle.StatusFinished,
		},
		"finished without winner": {
			expErr:       battle.ErrInvariantViolation,
			expRecStatus: battle.StatusActive,
		},
		"finished with stranger": {
			winner:       "mallory",
			expErr:       battle.ErrInvariantViolation,
			expRecStatus: battle.StatusActive,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			b := h.create(t)

			st, err := h.store.Get(ctx, b.ID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			st.Finish(tt.winner)

			err = h.manager.ApplyTurnResult(ctx, b.ID, st)
			if !errors.Is(err, tt.expErr) {
				t.Fatalf("expected %v, got %v", tt.expErr, err)
			}

			stored, err := h.store.Get(ctx, b.ID)
			testutil.AssertEqual(t, "evicted", errors.Is(err, battle.ErrNotFound), tt.expEvicted)
			if !tt.expEvicted {
				testutil.AssertEqual(t, "store untouched", stored.BattleStatus, battle.StatusActive)
			}

			rec := h.repo.get(b.ID)
			testutil.AssertEqual(t, "record status", rec.Status, tt.expRecStatus)
			if tt.expEvicted {
				testutil.AssertEqual(t, "record winner", rec.WinnerID, tt.winner)
				testutil.AssertEqual(t, "ended at", rec.EndedAt != nil, true)

				found, err := h.manager.FindActiveBattleByConnection(ctx, "conn-a")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				testutil.AssertEqual(t, "no longer indexed", found == nil, true)
			}
		})
	}
}

func TestManager_ApplyTurnResultActive(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	b := h.create(t)

	st, err := h.store.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st.TurnNumber = 4
	if err := h.manager.ApplyTurnResult(ctx, b.ID, st); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := h.store.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "turn", stored.TurnNumber, 4)
}

func TestManager_FindActiveBattleAfterRestart(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	b := h.create(t)

	restarted := h.newManager(t)
	found, err := restarted.FindActiveBattleByConnection(ctx, "conn-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil {
		t.Fatal("expected to find battle by scanning the store")
	}
	testutil.AssertEqual(t, "battle id", found.ID, b.ID)

	// A record with no live state is not resumable.
	if err := h.store.Delete(ctx, b.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found, err = h.newManager(t).FindActiveBattleByConnection(ctx, "conn-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "orphaned record", found == nil, true)
}

func TestManager_RebindConnection(t *testing.T) {
	tests := map[string]struct {
		battleID string
		player   string
		expErr   error
	}{
		"participant": {battleID: "battle-1", player: "bob"},
		"not a participant": {
			battleID: "battle-1",
			player:   "mallory",
			expErr:   battle.ErrNotAParticipant,
		},
		"unknown battle": {
			battleID: "battle-9",
			player:   "bob",
			expErr:   battle.ErrNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t)
			h.create(t)

			if _, err := h.manager.HandleDisconnect(ctx, "conn-b"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			st, err := h.manager.RebindConnection(ctx, tt.battleID, tt.player, "conn-b2")
			if tt.expErr != nil {
				if !errors.Is(err, tt.expErr) {
					t.Fatalf("expected %v, got %v", tt.expErr, err)
				}
				testutil.AssertEqual(t, "rejoined", len(h.observer.rejoined), 0)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			testutil.AssertEqual(t, "connection", st.Player2.ConnectionID, "conn-b2")
			testutil.AssertEqual(t, "disconnect cleared", st.Player2.DisconnectedAt, int64(0))
			testutil.AssertEqual(t, "record connection", h.repo.get("battle-1").Player2ConnectionID, "conn-b2")
			testutil.AssertEqual(t, "rejoined", h.observer.rejoined, []string{"bob"})

			found, err := h.manager.FindActiveBattleByConnection(ctx, "conn-b2")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "new connection indexed", found.ID, "battle-1")

			found, err = h.manager.FindActiveBattleByConnection(ctx, "conn-b")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "old connection dropped", found == nil, true)
		})
	}
}

func TestManager_HandleDisconnect(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.create(t)

	st, err := h.manager.HandleDisconnect(ctx, "conn-z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "not in battle", st == nil, true)

	st, err = h.manager.HandleDisconnect(ctx, "conn-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "disconnected at", st.Player1.DisconnectedAt, h.now.UnixMilli())
	testutil.AssertEqual(t, "opponent connected", st.Player2.DisconnectedAt, int64(0))
	testutil.AssertEqual(t, "disconnected", h.observer.disconnected, []string{"alice"})
}

func TestManager_TickForfeitsAfterGrace(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	b := h.create(t)

	if _, err := h.manager.HandleDisconnect(ctx, "conn-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h.now = h.now.Add(DefaultDisconnectGrace - time.Second)
	if err := h.manager.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "within grace", len(h.observer.states), 0)

	h.now = h.now.Add(time.Second)
	if err := h.manager.Tick(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.observer.states) != 1 {
		t.Fatalf("expected 1 observed state, got %d", len(h.observer.states))
	}

	st := h.observer.states[0]
	testutil.AssertEqual(t, "winner", st.WinnerID, "bob")
	testutil.AssertEqual(t, "phase", st.Phase, battle.PhaseFinished)
	testutil.AssertEqual(t, "forfeit event", st.RecentEvents()[0].Type, narration.KindPlayerForfeit.Key())
	testutil.AssertEqual(t, "record status", h.repo.get(b.ID).Status, battle.StatusFinished)

	_, err := h.store.Get(ctx, b.ID)
	if !errors.Is(err, battle.ErrNotFound) {
		t.Fatalf("expected eviction, got %v", err)
	}
}

func TestManager_Forfeit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	b := h.create(t)

	_, err := h.manager.Forfeit(ctx, b.ID, "mallory")
	if !errors.Is(err, battle.ErrNotAParticipant) {
		t.Fatalf("expected ErrNotAParticipant, got %v", err)
	}

	st, err := h.manager.Forfeit(ctx, b.ID, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "winner", st.WinnerID, "alice")
	testutil.AssertEqual(t, "events", len(st.RecentEvents()), 2)
	testutil.AssertEqual(t, "observed", len(h.observer.states), 1)

	_, err = h.manager.Forfeit(ctx, b.ID, "bob")
	if !errors.Is(err, battle.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
