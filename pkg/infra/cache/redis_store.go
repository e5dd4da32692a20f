package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/PromptSentry/PromptSentry/pkg/domain/anonymization"
)

// writeTimeout bounds every backend operation so cache unavailability never
// blocks a request indefinitely.
const writeTimeout = 2 * time.Second

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisStore implements anonymization.Store on a Redis backend.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{client: client}
}

// NewRedisStoreWithClient wraps an existing client. Used by tests with
// redismock.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return s.client.Ping(ctx).Err()
}

var _ anonymization.Store = (*RedisStore)(nil)
