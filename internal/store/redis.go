package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"openair-backend/config"
	"openair-backend/internal/access"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// NewRedisClient returns a configured go-redis client and validates the connection with PING.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// RedisFlags keeps each client's flags in one redis hash.
type RedisFlags struct {
	client *redis.Client
}

// NewRedisFlags returns a redis-backed flag backend.
func NewRedisFlags(client *redis.Client) *RedisFlags {
	return &RedisFlags{client: client}
}

func redisFlagsKey(clientID string) string {
	return fmt.Sprintf("openair:flags:%s", clientID)
}

// ForClient implements access.FlagBackend.
func (r *RedisFlags) ForClient(clientID string) access.FlagStore {
	return redisClientFlags{client: r.client, key: redisFlagsKey(clientID)}
}

type redisClientFlags struct {
	client *redis.Client
	key    string
}

func (r redisClientFlags) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s %s: %w", r.key, field, err)
	}
	return v, true, nil
}

func (r redisClientFlags) Set(ctx context.Context, field, value string) error {
	if err := r.client.HSet(ctx, r.key, field, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s %s: %w", r.key, field, err)
	}
	return nil
}

func (r redisClientFlags) Delete(ctx context.Context, field string) error {
	if err := r.client.HDel(ctx, r.key, field).Err(); err != nil {
		return fmt.Errorf("redis hdel %s %s: %w", r.key, field, err)
	}
	return nil
}
