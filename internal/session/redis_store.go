// Package session stores login sessions in Redis: an opaque cookie token maps
// to the authenticated user's external identity for the lifetime of the TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound means the token is unknown, expired or revoked.
var ErrNotFound = errors.New("session not found")

// Data is what we keep per session token.
type Data struct {
	ZohoID    string    `json:"zoho_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		prefix: "session:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

// Save stores a session under the token for the configured TTL.
func (s *RedisStore) Save(ctx context.Context, token string, data Data) error {
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Lookup resolves a token back to its session data.
func (s *RedisStore) Lookup(ctx context.Context, token string) (Data, error) {
	payload, err := s.client.Get(ctx, s.key(token)).Result()
	if errors.Is(err, redis.Nil) {
		return Data{}, ErrNotFound
	}
	if err != nil {
		return Data{}, fmt.Errorf("lookup session: %w", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return Data{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return data, nil
}

// Revoke deletes a session token.
func (s *RedisStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
