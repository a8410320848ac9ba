package gateway

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-battle/internal/cache"
	"github.com/pixil98/go-battle/internal/engine"
	"github.com/pixil98/go-battle/internal/lifecycle"
	"github.com/pixil98/go-battle/internal/matchmaking"
	"github.com/pixil98/go-battle/internal/messaging"
	"github.com/pixil98/go-battle/internal/narration"
	"github.com/pixil98/go-battle/internal/session"
	"github.com/pixil98/go-testutil"
)

type memRepo struct{}

func (memRepo) CreateBattle(context.Context, *battle.Battle) error {
	return nil
}

func (memRepo) SaveBattleOutcome(context.Context, *battle.Battle) error {
	return nil
}

func (memRepo) UpdateConnections(context.Context, *battle.Battle) error {
	return nil
}

func (memRepo) FindActiveBattleByConnection(context.Context, string) (*battle.Battle, error) {
	return nil, nil
}

type partyMap map[string]*battle.Party

func (p partyMap) GetParty(_ context.Context, userID string) (*battle.Party, error) {
	party, ok := p[userID]
	if !ok {
		return nil, fmt.Errorf("no party for %s", userID)
	}
	return party, nil
}

// stallingSender holds the first turn update for one connection until
// released.
type stallingSender struct {
	recordingSender
	connID  string
	armed   atomic.Bool
	once    sync.Once
	stalled chan struct{}
	release chan struct{}
}

func (s *stallingSender) Send(connID, event string, payload any) error {
	if connID == s.connID && event == messaging.EventTurnUpdate && s.armed.Load() {
		s.once.Do(func() {
			close(s.stalled)
			<-s.release
		})
	}
	return s.recordingSender.Send(connID, event, payload)
}

func TestGateway_TurnUpdatesInCommitOrder(t *testing.T) {
	ctx := context.Background()

	unit := battle.UnitTemplate{ID: "u", Name: "Sparky", BaseHP: 100, BaseAttack: 50, BaseDefense: 40, Speed: 10}
	parties := partyMap{
		"alice": {Units: []battle.UnitTemplate{unit}},
		"bob":   {Units: []battle.UnitTemplate{unit}},
	}

	reg, err := narration.NewRegistry()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The core needs the gateway as its observer before the gateway exists.
	gw := &Gateway{}
	store := cache.NewMemoryStore()
	lm, err := lifecycle.NewManager(store, memRepo{}, parties, reg,
		lifecycle.WithObserver(gw),
		lifecycle.WithIDGenerator(func() string { return "b1" }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	eng, err := engine.NewEngine(store, lm, reg, engine.WithObserver(gw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	queue, err := matchmaking.NewQueue(lm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sender := &stallingSender{
		connID:  "conn-a",
		stalled: make(chan struct{}),
		release: make(chan struct{}),
	}
	sessions := session.NewRegistry()
	sessions.Bind("conn-a", "alice")
	sessions.Bind("conn-b", "bob")
	*gw = *NewGateway(sessions, fakeVerifier{}, queue, eng, lm, sender)

	for _, conn := range []string{"conn-a", "conn-b"} {
		if err := gw.Enqueue(ctx, conn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	testutil.AssertEqual(t, "match found", sender.to("conn-a")[1].event, messaging.EventMatchFound)

	sender.armed.Store(true)
	errs := make(chan error, 2)
	go func() {
		errs <- gw.SubmitAction(ctx, "conn-a", "b1", battle.PassAction())
	}()

	select {
	case <-sender.stalled:
	case <-time.After(2 * time.Second):
		t.Fatal("first turn update was never sent")
	}

	go func() {
		errs <- gw.SubmitAction(ctx, "conn-b", "b1", battle.PassAction())
	}()

	// Give the second submission time to overtake if it can.
	time.Sleep(50 * time.Millisecond)
	close(sender.release)

	for range 2 {
		select {
		case err := <-errs:
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("submission never finished")
		}
	}

	var turns []int
	for _, m := range sender.to("conn-a") {
		if m.event == messaging.EventTurnUpdate {
			turns = append(turns, m.payload.(TurnUpdatePayload).State.TurnNumber)
		}
	}
	testutil.AssertEqual(t, "turns seen by alice", turns, []int{1, 2})
}
