package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultMaxCost bounds the in-process cache to 64 MiB of page bodies.
const DefaultMaxCost = 64 << 20

// Memory is an in-process cache backed by ristretto.
type Memory struct {
	store *ristretto.Cache[string, []byte]
	ttl   time.Duration

	mu    sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

// NewMemory creates a Memory cache. Non-positive maxCost uses DefaultMaxCost;
// a zero ttl keeps entries until evicted.
func NewMemory(maxCost int64, ttl time.Duration) (*Memory, error) {
	if maxCost <= 0 {
		maxCost = DefaultMaxCost
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Memory{store: store, ttl: ttl, gens: make(map[string]uint64)}, nil
}

func (m *Memory) Versioned(_ context.Context, scope, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("%d/%s#%d|%s", m.epoch, scope, m.gens[scope], key)
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	return m.store.Get(key)
}

func (m *Memory) Set(_ context.Context, key string, value []byte) {
	m.store.SetWithTTL(key, value, int64(len(value)), m.ttl)
	m.store.Wait()
}

func (m *Memory) Invalidate(_ context.Context, scopes ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, scope := range scopes {
		m.gens[scope]++
	}
}

// Clear drops every entry and starts a new epoch.
func (m *Memory) Clear(context.Context) {
	m.mu.Lock()
	m.epoch++
	m.gens = make(map[string]uint64)
	m.mu.Unlock()
	m.store.Clear()
}

func (m *Memory) Close() error {
	m.store.Close()
	return nil
}
