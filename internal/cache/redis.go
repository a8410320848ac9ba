package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-battle/internal/battle"
	"github.com/redis/go-redis/v9"
)

const (
	battleKeyPrefix = "battle:"
	activeSetKey    = "battles:active"
)

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the lock only if it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type RedisStoreOpt func(*RedisStore)

func WithLockTTL(d time.Duration) RedisStoreOpt {
	return func(s *RedisStore) {
		s.lockTTL = d
	}
}

func WithLockRetry(d time.Duration) RedisStoreOpt {
	return func(s *RedisStore) {
		s.lockRetry = d
	}
}

// RedisStore keeps battle states in redis so several service instances can
// share them. States live under battle:<id> and ids in the battles:active set.
// A held lock is renewed every third of its TTL until it is released.
type RedisStore struct {
	rdb       redis.UniversalClient
	lockTTL   time.Duration
	lockRetry time.Duration
}

func NewRedisStore(rdb redis.UniversalClient, opts ...RedisStoreOpt) *RedisStore {
	s := &RedisStore{
		rdb:       rdb,
		lockTTL:   DefaultLockTTL,
		lockRetry: DefaultLockRetry,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func battleKey(id string) string {
	return battleKeyPrefix + id
}

func lockKey(id string) string {
	return battleKeyPrefix + id + ":lock"
}

func (s *RedisStore) Get(ctx context.Context, battleID string) (*battle.State, error) {
	data, err := s.rdb.Get(ctx, battleKey(battleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, battle.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting battle %s: %w", battleID, err)
	}

	var st battle.State
	err = json.Unmarshal(data, &st)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling battle %s: %w", battleID, err)
	}
	return &st, nil
}

func (s *RedisStore) Set(ctx context.Context, battleID string, state *battle.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling battle %s: %w", battleID, err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, battleKey(battleID), data, 0)
		pipe.SAdd(ctx, activeSetKey, battleID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("setting battle %s: %w", battleID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, battleID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, battleKey(battleID))
		pipe.SRem(ctx, activeSetKey, battleID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting battle %s: %w", battleID, err)
	}
	return nil
}

func (s *RedisStore) ListAll(ctx context.Context) (map[string]*battle.State, error) {
	ids, err := s.rdb.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("listing active battles: %w", err)
	}

	all := make(map[string]*battle.State, len(ids))
	for _, id := range ids {
		st, err := s.Get(ctx, id)
		if errors.Is(err, battle.ErrNotFound) {
			// Set membership outlived the state key.
			if err := s.rdb.SRem(ctx, activeSetKey, id).Err(); err != nil {
				slog.WarnContext(ctx, "removing stale active battle", "battle", id, "error", err)
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		all[id] = st
	}
	return all, nil
}

func (s *RedisStore) Lock(ctx context.Context, battleID string) (func(), error) {
	token := uuid.NewString()
	key := lockKey(battleID)

	for {
		ok, err := s.rdb.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquiring lock for battle %s: %w", battleID, err)
		}
		if ok {
			break
		}

		t := time.NewTimer(s.lockRetry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	bg := context.WithoutCancel(ctx)
	stop := make(chan struct{})
	renewed := make(chan struct{})
	go s.renew(bg, battleID, key, token, stop, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed

			err := unlockScript.Run(bg, s.rdb, []string{key}, token).Err()
			if err != nil {
				slog.WarnContext(ctx, "releasing battle lock", "battle", battleID, "error", err)
			}
		})
	}, nil
}

// renew extends the lock until stop is closed or the lock is lost.
func (s *RedisStore) renew(ctx context.Context, battleID, key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	t := time.NewTicker(max(s.lockTTL/3, time.Millisecond))
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}

		n, err := renewScript.Run(ctx, s.rdb, []string{key}, token, s.lockTTL.Milliseconds()).Int()
		if err != nil {
			slog.WarnContext(ctx, "renewing battle lock", "battle", battleID, "error", err)
			continue
		}
		if n == 0 {
			slog.ErrorContext(ctx, "battle lock lost while held", "battle", battleID)
			return
		}
	}
}
