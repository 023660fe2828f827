package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisSessionKeyPrefix = "mediabay:session:"

// RedisSessionConfig configures the Redis-backed session store.
type RedisSessionConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisSessionStore keeps sessions in Redis with a per-key TTL so expired
// tokens age out without a purge sweep. It suits deployments that want the
// sessions table off the relational store's hot path.
type RedisSessionStore struct {
	client *redis.Client
}

type redisSessionPayload struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisSessionStore connects to Redis and verifies the instance is reachable.
func NewRedisSessionStore(cfg RedisSessionConfig) (*RedisSessionStore, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis session store: %w", err)
	}
	return &RedisSessionStore{client: client}, nil
}

// Close releases the Redis client resources.
func (s *RedisSessionStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Save records the session with a TTL matching its expiry instant.
func (s *RedisSessionStore) Save(token, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return s.Delete(token)
	}
	payload, err := json.Marshal(redisSessionPayload{UserID: userID, ExpiresAt: expiresAt.UTC()})
	if err != nil {
		return fmt.Errorf("encode session payload: %w", err)
	}
	return s.client.Set(context.Background(), redisSessionKeyPrefix+token, payload, ttl).Err()
}

// Get retrieves the session record for the provided token.
func (s *RedisSessionStore) Get(token string) (SessionRecord, bool, error) {
	raw, err := s.client.Get(context.Background(), redisSessionKeyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionRecord{}, false, nil
		}
		return SessionRecord{}, false, err
	}
	var payload redisSessionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return SessionRecord{}, false, fmt.Errorf("decode session payload: %w", err)
	}
	return SessionRecord{Token: token, UserID: payload.UserID, ExpiresAt: payload.ExpiresAt}, true, nil
}

// Delete removes the session token.
func (s *RedisSessionStore) Delete(token string) error {
	return s.client.Del(context.Background(), redisSessionKeyPrefix+token).Err()
}

// PurgeExpired is a no-op: Redis evicts expired keys through their TTL.
func (s *RedisSessionStore) PurgeExpired(time.Time) error {
	return nil
}

// Ping verifies the Redis instance is reachable.
func (s *RedisSessionStore) Ping(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis session store not configured")
	}
	return s.client.Ping(ctx).Err()
}
