package cache

import (
	"context"
	"sync"

	"github.com/pixil98/go-battle/internal/battle"
)

// MemoryStore keeps battle states in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*battle.State

	locksMu sync.Mutex
	locks   map[string]*battleLock
}

// battleLock is a channel-based mutex so waiters can give up on ctx.
type battleLock struct {
	ch   chan struct{}
	refs int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: map[string]*battle.State{},
		locks:  map[string]*battleLock{},
	}
}

func (s *MemoryStore) Get(_ context.Context, battleID string) (*battle.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[battleID]
	if !ok {
		return nil, battle.ErrNotFound
	}
	return st.Clone(), nil
}

func (s *MemoryStore) Set(_ context.Context, battleID string, state *battle.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[battleID] = state.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, battleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, battleID)
	return nil
}

func (s *MemoryStore) ListAll(_ context.Context) (map[string]*battle.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make(map[string]*battle.State, len(s.states))
	for id, st := range s.states {
		all[id] = st.Clone()
	}
	return all, nil
}

func (s *MemoryStore) Lock(ctx context.Context, battleID string) (func(), error) {
	s.locksMu.Lock()
	l, ok := s.locks[battleID]
	if !ok {
		l = &battleLock{ch: make(chan struct{}, 1)}
		s.locks[battleID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		s.release(battleID, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			s.release(battleID, l)
		})
	}, nil
}

func (s *MemoryStore) release(battleID string, l *battleLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, battleID)
	}
}
