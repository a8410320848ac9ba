package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pixil98/go-battle/internal/battle"
	"github.com/pixil98/go-testutil"
	"pgregory.net/rapid"
)

type createCall struct {
	userA, userB, connA, connB string
}

type fakeLifecycle struct {
	mu          sync.Mutex
	calls       []createCall
	createErr   error
	inBattle    map[string]*battle.State
	disconnects []string
}

func (l *fakeLifecycle) CreateBattle(_ context.Context, userA, userB, connA, connB string) (*battle.Battle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return nil, l.createErr
	}
	l.calls = append(l.calls, createCall{userA, userB, connA, connB})
	return &battle.Battle{
		ID:                  fmt.Sprintf("battle-%d", len(l.calls)),
		Player1ID:           userA,
		Player2ID:           userB,
		Player1ConnectionID: connA,
		Player2ConnectionID: connB,
		Status:              battle.StatusActive,
	}, nil
}

func (l *fakeLifecycle) HandleDisconnect(_ context.Context, connID string) (*battle.State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.disconnects = append(l.disconnects, connID)
	return l.inBattle[connID], nil
}

func newTestQueue(t *testing.T, l *fakeLifecycle) *Queue {
	t.Helper()
	q, err := NewQueue(l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return q
}

func TestQueue_Enqueue(t *testing.T) {
	ctx := context.Background()
	l := &fakeLifecycle{}
	q := newTestQueue(t, l)

	res, err := q.Enqueue(ctx, "alice", "conn-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "waiting", res.Waiting, true)
	testutil.AssertEqual(t, "len", q.Len(), 1)

	res, err = q.Enqueue(ctx, "bob", "conn-b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "waiting", res.Waiting, false)
	testutil.AssertEqual(t, "len", q.Len(), 0)
	testutil.AssertEqual(t, "player1 is the waiting player", res.Battle.Player1ID, "alice")
	testutil.AssertEqual(t, "player2", res.Battle.Player2ID, "bob")
	testutil.AssertEqual(t, "create call", l.calls[0], createCall{"alice", "bob", "conn-a", "conn-b"}, cmp.AllowUnexported(createCall{}))
}

func TestQueue_EnqueueSameUserRefreshes(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, &fakeLifecycle{})

	for _, conn := range []string{"conn-1", "conn-2"} {
		res, err := q.Enqueue(ctx, "alice", conn)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		testutil.AssertEqual(t, "waiting", res.Waiting, true)
	}

	snap := q.Snapshot()
	testutil.AssertEqual(t, "len", len(snap), 1)
	testutil.AssertEqual(t, "connection", snap[0].ConnectionID, "conn-2")
}

func TestQueue_EnqueueCreateFailureRestoresOpponent(t *testing.T) {
	ctx := context.Background()
	l := &fakeLifecycle{}
	q := newTestQueue(t, l)

	if _, err := q.Enqueue(ctx, "alice", "conn-a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.createErr = errors.New("store down")
	_, err := q.Enqueue(ctx, "bob", "conn-b")
	testutil.AssertErrorContains(t, err, "store down")

	snap := q.Snapshot()
	testutil.AssertEqual(t, "len", len(snap), 1)
	testutil.AssertEqual(t, "head", snap[0].UserID, "alice")
}

func TestQueue_RemoveByConnection(t *testing.T) {
	tests := map[string]struct {
		connID        string
		expLen        int
		expDisconnect bool
		expBattle     bool
	}{
		"waiting player": {
			connID: "conn-a",
			expLen: 0,
		},
		"unknown connection is a no-op": {
			connID:        "conn-z",
			expLen:        1,
			expDisconnect: true,
		},
		"player mid battle": {
			connID:        "conn-x",
			expLen:        1,
			expDisconnect: true,
			expBattle:     true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := &fakeLifecycle{inBattle: map[string]*battle.State{"conn-x": {BattleID: "b1"}}}
			q := newTestQueue(t, l)
			if _, err := q.Enqueue(ctx, "alice", "conn-a"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			st, err := q.RemoveByConnection(ctx, tt.connID)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "len", q.Len(), tt.expLen)
			testutil.AssertEqual(t, "disconnect forwarded", len(l.disconnects) == 1, tt.expDisconnect)
			testutil.AssertEqual(t, "battle returned", st != nil, tt.expBattle)
		})
	}
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	ctx := context.Background()
	l := &fakeLifecycle{}
	q := newTestQueue(t, l)

	const players = 50
	var wg sync.WaitGroup
	for i := range players {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := q.Enqueue(ctx, fmt.Sprintf("user-%d", i), fmt.Sprintf("conn-%d", i))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, "matches", len(l.calls), players/2)
	testutil.AssertEqual(t, "len", q.Len(), 0)
}

func TestQueue_PairingProperties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		l := &fakeLifecycle{}
		q, err := NewQueue(l)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		users := rapid.SliceOfN(rapid.SampledFrom([]string{"u1", "u2", "u3", "u4"}), 1, 40).Draw(rt, "users")
		latest := map[string]string{}
		for i, user := range users {
			conn := fmt.Sprintf("conn-%d", i)
			if _, err := q.Enqueue(ctx, user, conn); err != nil {
				rt.Fatalf("unexpected error: %v", err)
			}
			latest[user] = conn

			if q.Len() > 1 {
				rt.Fatalf("queue holds %d players who could have been paired", q.Len())
			}
		}

		seen := map[string]bool{}
		for _, c := range l.calls {
			if c.userA == c.userB {
				rt.Fatalf("user %s matched against itself", c.userA)
			}
			for _, conn := range []string{c.connA, c.connB} {
				if seen[conn] {
					rt.Fatalf("connection %s matched twice", conn)
				}
				seen[conn] = true
			}
		}
		for _, w := range q.Snapshot() {
			if seen[w.ConnectionID] {
				rt.Fatalf("connection %s both matched and waiting", w.ConnectionID)
			}
			if latest[w.UserID] != w.ConnectionID {
				rt.Fatalf("user %s waiting on stale connection %s", w.UserID, w.ConnectionID)
			}
		}
	})
}
