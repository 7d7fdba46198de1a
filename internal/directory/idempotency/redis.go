// Package idempotency stores create idempotency keys in Redis so that
// several directory instances share one view of in-flight creates.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	e "github.com/gartstein/directory/internal/directory/errors"
	"github.com/gartstein/directory/internal/directory/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "directory:idempotency:"
	pending   = "\x00pending"
)

// release deletes a key only while it still holds the pending marker, so a
// completed key is never dropped.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore implements the Reserve/Complete/Release protocol on Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient connects to Redis. An unreachable server is logged, not
// fatal; readiness reports it.
func NewRedisClient(cfg Config, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.Addr))
	}
	return client
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, logger: logger.Named("idempotency")}
}

// Reserve claims key. It returns the binding recorded under a completed
// key, a zero binding when the caller now owns the key, and ErrConflict
// while another create holds it.
func (s *RedisStore) Reserve(ctx context.Context, key string) (models.KeyBinding, error) {
	k := keyPrefix + key
	ok, err := s.client.SetNX(ctx, k, pending, s.ttl).Result()
	if err != nil {
		return models.KeyBinding{}, fmt.Errorf("reserve idempotency key: %w", err)
	}
	if ok {
		return models.KeyBinding{}, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return models.KeyBinding{}, fmt.Errorf("%w: idempotency key %q changed hands, retry", e.ErrConflict, key)
	case err != nil:
		return models.KeyBinding{}, fmt.Errorf("read idempotency key: %w", err)
	case val == pending:
		return models.KeyBinding{}, fmt.Errorf("%w: create with idempotency key %q is in progress", e.ErrConflict, key)
	}

	b, err := models.ParseKeyBinding(val)
	if err != nil {
		return models.KeyBinding{}, fmt.Errorf("read idempotency key %q: %w", key, err)
	}
	s.logger.Debug("idempotency key replayed", zap.String("key", key), zap.String("employee_id", b.EmployeeID))
	return b, nil
}

// Complete binds key to the created employee for the rest of the ttl.
func (s *RedisStore) Complete(ctx context.Context, key string, b models.KeyBinding) error {
	return s.client.Set(ctx, keyPrefix+key, b.String(), s.ttl).Err()
}

// Release drops a reservation that never completed.
func (s *RedisStore) Release(ctx context.Context, key string) error {
	return release.Run(ctx, s.client, []string{keyPrefix + key}, pending).Err()
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
