package kv

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wardenhq/warden/pkg/models"
)

type memoryEntry struct {
	value     any
	updatedAt time.Time
	expiresAt time.Time // zero = no expiry
}

// MemoryStore is an in-process Store used by tests and single-node dev runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string]memoryEntry // workflowID -> key -> entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, workflowID, key string) (any, bool, error) {
	if key == "" {
		return nil, false, ErrKeyEmpty
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[workflowID][key]
	if !ok {
		return nil, false, nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}

	return entry.value, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, workflowID, key string, value any) error {
	return s.SetWithTTL(ctx, workflowID, key, value, 0)
}

func (s *MemoryStore) SetWithTTL(_ context.Context, workflowID, key string, value any, ttl time.Duration) error {
	if key == "" {
		return ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entries[workflowID] == nil {
		s.entries[workflowID] = make(map[string]memoryEntry)
	}

	entry := memoryEntry{value: value, updatedAt: time.Now().UTC()}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	s.entries[workflowID][key] = entry

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, workflowID, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries[workflowID], key)

	return nil
}

func (s *MemoryStore) List(_ context.Context, workflowID string) ([]models.KVEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	entries := make([]models.KVEntry, 0, len(s.entries[workflowID]))

	for key, entry := range s.entries[workflowID] {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}

		entries = append(entries, models.KVEntry{
			WorkflowID: workflowID,
			Key:        key,
			Value:      entry.value,
			UpdatedAt:  entry.updatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return entries, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
