package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/wardenhq/warden/pkg/models"
)

const connectTimeout = 5 * time.Second

// RedisStore persists KV entries in Redis. Each entry lives at
// warden:kv:{workflowID}:{key} as a JSON document, which keeps per-key TTL
// support and makes cross-process last-write-wins the natural behavior.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore connects and pings the Redis backend.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

type redisDocument struct {
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func entryKey(workflowID, key string) string {
	return "warden:kv:" + workflowID + ":" + key
}

func entryPattern(workflowID string) string {
	return "warden:kv:" + workflowID + ":*"
}

func (s *RedisStore) Get(ctx context.Context, workflowID, key string) (any, bool, error) {
	if key == "" {
		return nil, false, ErrKeyEmpty
	}

	raw, err := s.client.Get(ctx, entryKey(workflowID, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}

	var doc redisDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, fmt.Errorf("kv get %q: corrupt entry: %w", key, err)
	}

	return doc.Value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, workflowID, key string, value any) error {
	return s.SetWithTTL(ctx, workflowID, key, value, 0)
}

func (s *RedisStore) SetWithTTL(ctx context.Context, workflowID, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrKeyEmpty
	}

	raw, err := json.Marshal(redisDocument{Value: value, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}

	err = s.client.Set(ctx, entryKey(workflowID, key), raw, ttl).Err()
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, workflowID, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}

	err := s.client.Del(ctx, entryKey(workflowID, key)).Err()
	if err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}

	return nil
}

func (s *RedisStore) List(ctx context.Context, workflowID string) ([]models.KVEntry, error) {
	var (
		entries []models.KVEntry
		cursor  uint64
	)

	prefix := entryKey(workflowID, "")

	for {
		keys, next, err := s.client.Scan(ctx, cursor, entryPattern(workflowID), 100).Result()
		if err != nil {
			return nil, fmt.Errorf("kv list: %w", err)
		}

		for _, fullKey := range keys {
			raw, err := s.client.Get(ctx, fullKey).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue // expired between scan and get
				}

				return nil, fmt.Errorf("kv list: %w", err)
			}

			var doc redisDocument
			if err := json.Unmarshal([]byte(raw), &doc); err != nil {
				continue
			}

			entries = append(entries, models.KVEntry{
				WorkflowID: workflowID,
				Key:        fullKey[len(prefix):],
				Value:      doc.Value,
				UpdatedAt:  doc.UpdatedAt,
			})
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return entries, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
