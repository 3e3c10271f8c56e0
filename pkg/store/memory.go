package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/leowmjw/go-neurotools/pkg/signals"
)

// MemoryStore implements SpikeStore in memory
type MemoryStore struct {
	mu        sync.RWMutex
	lists     map[string]*signals.SpikeList
	summaries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:     make(map[string]*signals.SpikeList),
		summaries: make(map[string][]byte),
	}
}

// Put stores a copy of sl under key
func (m *MemoryStore) Put(ctx context.Context, key string, sl *signals.SpikeList) error {
	if sl == nil {
		return signals.ErrNilTrain
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists[key] = sl.Copy()
	return nil
}

// Get returns a copy of the list stored under key
func (m *MemoryStore) Get(ctx context.Context, key string) (*signals.SpikeList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sl, ok := m.lists[key]
	if !ok {
		return nil, fmt.Errorf("spike list %q: %w", key, ErrNotFound)
	}
	return sl.Copy(), nil
}

// Delete removes the list stored under key
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lists[key]; !ok {
		return fmt.Errorf("spike list %q: %w", key, ErrNotFound)
	}
	delete(m.lists, key)
	return nil
}

func (m *MemoryStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for _, key := range slices.Sorted(maps.Keys(m.lists)) {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (m *MemoryStore) PutSummary(ctx context.Context, key string, summary []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summaries[key] = slices.Clone(summary)
	return nil
}

func (m *MemoryStore) GetSummary(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary, ok := m.summaries[key]
	if !ok {
		return nil, fmt.Errorf("summary %q: %w", key, ErrNotFound)
	}
	return slices.Clone(summary), nil
}
