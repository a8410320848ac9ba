package engine

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/cache"
	"github.com/pixil98/go-battle/internal/narration"
)

// scriptedRoller returns its rolls in order, then 0.5 forever.
type scriptedRoller struct {
	mu    sync.Mutex
	rolls []float64
}

func (r *scriptedRoller) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rolls) == 0 {
		return 0.5
	}
	v := r.rolls[0]
	r.rolls = r.rolls[1:]
	return v
}

// storeApplier commits results the way the lifecycle manager does: finished
// battles are evicted, everything else is written back.
type storeApplier struct {
	store cache.Store
	err   error

	mu       sync.Mutex
	finished []*battle.State
}

func (a *storeApplier) ApplyTurnResult(ctx context.Context, battleID string, st *battle.State) error {
	if a.err != nil {
		return a.err
	}
	if st.IsFinished() {
		a.mu.Lock()
		a.finished = append(a.finished, st.Clone())
		a.mu.Unlock()
		return a.store.Delete(ctx, battleID)
	}
	return a.store.Set(ctx, battleID, st)
}

type recordingObserver struct {
	mu     sync.Mutex
	states []*battle.State
}

func (o *recordingObserver) StateChanged(_ context.Context, st *battle.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, st.Clone())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	tackle = battle.Move{ID: "tackle", Name: "Tackle", Power: 40, Category: battle.MoveAttack}
	wisp   = battle.Move{
		ID:       "will_o_wisp",
		Name:     "Will-O-Wisp",
		Category: battle.MoveSupport,
		Effects: []battle.MoveEffect{
			{Type: battle.EffectBurn, Chance: 1, Duration: 2, Target: battle.TargetEnemy},
		},
	}
	hypnosis = battle.Move{
		ID:       "hypnosis",
		Name:     "Hypnosis",
		Category: battle.MoveSupport,
		Effects: []battle.MoveEffect{
			{Type: battle.EffectSleep, Chance: 1, Duration: 2, Target: battle.TargetEnemy},
		},
	}
)

func testUnit(id string, speed int) battle.UnitTemplate {
	return battle.UnitTemplate{
		ID:          id,
		Name:        id,
		BaseHP:      100,
		BaseAttack:  50,
		BaseDefense: 40,
		Speed:       speed,
		Moves:       []battle.Move{tackle, wisp, hypnosis},
	}
}

func testParty(prefix string, speed int) *battle.Party {
	return &battle.Party{
		Units: []battle.UnitTemplate{testUnit(prefix+"1", speed), testUnit(prefix+"2", speed)},
		Items: []battle.InventoryItem{
			{ItemID: "potion", Name: "Potion", Kind: battle.ItemHeal, Value: 20, Quantity: 1},
			{ItemID: "revive", Name: "Revive", Kind: battle.ItemRevive, Value: 0.5, Quantity: 1},
			{ItemID: "antidote", Name: "Antidote", Kind: battle.ItemCure, Quantity: 1},
		},
	}
}

// newTestState pits a faster alice against bob, both in submission.
func newTestState(id string) *battle.State {
	return &battle.State{
		BattleID:        id,
		Phase:           battle.PhaseSubmission,
		Player1:         battle.NewSide("alice", "conn-a", testParty("a", 10)),
		Player2:         battle.NewSide("bob", "conn-b", testParty("b", 5)),
		TurnNumber:      1,
		CurrentPlayerID: "alice",
		BattleStatus:    battle.StatusActive,
		Events:          []battle.Event{},
	}
}

type harness struct {
	store    cache.Store
	applier  *storeApplier
	engine   *Engine
	clock    *fakeClock
	observer *recordingObserver
}

func newHarness(t *testing.T, st *battle.State, opts ...EngineOpt) *harness {
	t.Helper()
	ctx := context.Background()

	h := &harness{
		store:    cache.NewMemoryStore(),
		clock:    &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		observer: &recordingObserver{},
	}
	h.applier = &storeApplier{store: h.store}

	reg, err := narration.NewRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	base := []EngineOpt{
		WithRoller(&scriptedRoller{}),
		WithClock(h.clock.Now),
		WithObserver(h.observer),
	}
	h.engine, err = NewEngine(h.store, h.applier, reg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if st != nil {
		if err := h.store.Set(ctx, st.BattleID, st); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return h
}

func (h *harness) state(t *testing.T, id string) *battle.State {
	t.Helper()
	st, err := h.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return st
}

func (h *harness) snapshot(t *testing.T, id string) string {
	t.Helper()
	b, err := json.Marshal(h.state(t, id))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(b)
}

func eventTypes(events []battle.Event) map[string]int {
	counts := map[string]int{}
	for _, e := range events {
		counts[e.Type]++
	}
	return counts
}

type observerFunc func(ctx context.Context, st *battle.State)

func (f observerFunc) StateChanged(ctx context.Context, st *battle.State) {
	f(ctx, st)
}
