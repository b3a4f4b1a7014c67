package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisPrefix = "crossasset:fetch:"

// bytesStore is the slice of a key-value store the redis cache relies on.
type bytesStore interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache is a shared Cache backed by redis. Store errors are logged
// and treated as misses so that a redis outage only costs refetches.
type RedisCache struct {
	store bytesStore
	ttl   time.Duration
	log   zerolog.Logger
	close func() error
}

// RedisConfig configures the redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisCache connects and pings redis.
func NewRedisCache(ctx context.Context, cfg RedisConfig, log zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return newRedisCache(redisStore{client}, cfg.TTL, log, client.Close), nil
}

func newRedisCache(store bytesStore, ttl time.Duration, log zerolog.Logger, closeFn func() error) *RedisCache {
	return &RedisCache{store: store, ttl: ttl, log: log, close: closeFn}
}

func (c *RedisCache) Get(ctx context.Context, key Key) (Entry, bool) {
	b, ok, err := c.store.GetBytes(ctx, redisPrefix+key.String())
	if err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("redis cache read failed")
		return Entry{}, false
	}
	if !ok {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("redis cache entry corrupt")
		return Entry{}, false
	}
	return e, true
}

func (c *RedisCache) Put(ctx context.Context, key Key, e Entry) {
	b, err := json.Marshal(e)
	if err != nil {
		c.log.Warn().Err(err).Msg("redis cache encode failed")
		return
	}
	if err := c.store.SetBytes(ctx, redisPrefix+key.String(), b, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key.String()).Msg("redis cache write failed")
	}
}

// Close releases the redis connection.
func (c *RedisCache) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

type redisStore struct {
	cli *redis.Client
}

func (r redisStore) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.cli.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (r redisStore) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.cli.Set(ctx, key, value, ttl).Err()
}
