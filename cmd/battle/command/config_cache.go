package command

import (
	"fmt"

	"github.com/pixil98/go-battle/internal/cache"
	"github.com/pixil98/go-errors"
	"github.com/redis/go-redis/v9"
)

type CacheType int

const (
	CacheTypeMemory CacheType = iota
	CacheTypeRedis
)

func (ct *CacheType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "memory":
		*ct = CacheTypeMemory
	case "redis":
		*ct = CacheTypeRedis
	default:
		return fmt.Errorf("unknown cache type: %s", text)
	}
	return nil
}

// CacheConfig selects where live battle states are kept.
type CacheConfig struct {
	Type     CacheType `json:"type"`
	Addrs    []string  `json:"addrs,omitempty"`
	Password string    `json:"password,omitempty"`
	DB       int       `json:"db,omitempty"`
	LockTTL  string    `json:"lock_ttl,omitempty"`
}

func (c *CacheConfig) validate() error {
	el := errors.NewErrorList()

	if c.Type == CacheTypeRedis && len(c.Addrs) == 0 {
		el.Add(fmt.Errorf("cache: addrs is required for redis"))
	}
	if c.Type == CacheTypeMemory && len(c.Addrs) > 0 {
		el.Add(fmt.Errorf("cache: addrs is only used by redis"))
	}
	if _, err := parseOptionalDuration("cache: lock_ttl", c.LockTTL, 0); err != nil {
		el.Add(err)
	}

	return el.Err()
}

func (c *CacheConfig) BuildStore() (cache.Store, error) {
	switch c.Type {
	case CacheTypeMemory:
		return cache.NewMemoryStore(), nil
	case CacheTypeRedis:
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    c.Addrs,
			Password: c.Password,
			DB:       c.DB,
		})

		var opts []cache.RedisStoreOpt
		ttl, err := parseOptionalDuration("lock_ttl", c.LockTTL, 0)
		if err != nil {
			return nil, err
		}
		if ttl > 0 {
			opts = append(opts, cache.WithLockTTL(ttl))
		}
		return cache.NewRedisStore(rdb, opts...), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %v", c.Type)
	}
}

