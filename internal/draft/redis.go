package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTTL bounds how long an abandoned draft lingers.
const redisTTL = 30 * 24 * time.Hour

// RedisStore persists drafts in Redis so multiple kiosk instances can share
// them. Keys carry the draft schema version.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore over an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(visitorKey string) string {
	return fmt.Sprintf("lapida:draft:%s:%s", KeyVersion, visitorKey)
}

// Save writes the draft with a refresh of the TTL.
func (s *RedisStore) Save(ctx context.Context, visitorKey string, d *Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(visitorKey), payload, redisTTL).Err(); err != nil {
		return fmt.Errorf("failed to store draft: %w", err)
	}
	return nil
}

// Restore reads the visitor's draft. Missing or corrupt values yield
// nil, nil.
func (s *RedisStore) Restore(ctx context.Context, visitorKey string) (*Draft, error) {
	data, err := s.client.Get(ctx, redisKey(visitorKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, nil
	}
	return &d, nil
}

// Clear removes the visitor's draft key.
func (s *RedisStore) Clear(ctx context.Context, visitorKey string) error {
	if err := s.client.Del(ctx, redisKey(visitorKey)).Err(); err != nil {
		return fmt.Errorf("failed to remove draft: %w", err)
	}
	return nil
}
