package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/yhun1542/emarknews-stable/internal/logger"
)

// Store is the key-value contract shared by all cache tiers. Reads report a
// miss instead of an error: a broken backend must degrade to cache-miss,
// never to request failure. Writes are best-effort.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// Layer namespaces keep the three cache layers independent, so a cold
// enrichment cache does not force a source re-fetch.
const (
	LayerSource     = "src"
	LayerEnrichment = "enr"
	LayerSection    = "sec"
)

type memoryItem struct {
	value      []byte
	expiresAt  time.Time
	lastAccess time.Time
}

// Memory is a bounded in-process Store. When the entry count exceeds the
// bound, the least recently read entries are evicted.
type Memory struct {
	mu         sync.RWMutex
	items      map[string]memoryItem
	maxEntries int
}

func NewMemory(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	m := &Memory{
		items:      make(map[string]memoryItem),
		maxEntries: maxEntries,
	}

	// Sweep expired items every few minutes
	go m.cleanupLoop()

	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[key]
	if !exists {
		return nil, false
	}
	if time.Now().After(item.expiresAt) {
		delete(m.items, key)
		return nil, false
	}

	item.lastAccess = time.Now()
	m.items[key] = item
	return item.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.items[key] = memoryItem{
		value:      value,
		expiresAt:  now.Add(ttl),
		lastAccess: now,
	}

	if len(m.items) > m.maxEntries {
		m.evictLocked()
	}
}

// evictLocked removes expired entries first, then the least recently read
// entries until the store fits the bound again.
func (m *Memory) evictLocked() {
	now := time.Now()
	for key, item := range m.items {
		if now.After(item.expiresAt) {
			delete(m.items, key)
		}
	}

	for len(m.items) > m.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for key, item := range m.items {
			if oldestKey == "" || item.lastAccess.Before(oldest) {
				oldestKey = key
				oldest = item.lastAccess
			}
		}
		delete(m.items, oldestKey)
	}
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.Lock()
		now := time.Now()
		for key, item := range m.items {
			if now.After(item.expiresAt) {
				delete(m.items, key)
			}
		}
		m.mu.Unlock()
	}
}

// Tiered namespaces a Store by layer and handles JSON encoding. All
// components talk to the cache through this type.
type Tiered struct {
	store Store
}

func NewTiered(store Store) *Tiered {
	return &Tiered{store: store}
}

func (t *Tiered) key(layer, key string) string {
	return layer + ":" + key
}

// GetJSON decodes a cached value into out and reports whether it was found.
// Decode failures count as misses.
func (t *Tiered) GetJSON(ctx context.Context, layer, key string, out interface{}) bool {
	raw, ok := t.store.Get(ctx, t.key(layer, key))
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		logger.Warn("cache entry undecodable, treating as miss", "layer", layer, "key", key, "error", err)
		return false
	}
	return true
}

// SetJSON encodes and stores a value. Failures are logged, never returned.
func (t *Tiered) SetJSON(ctx context.Context, layer, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache value not encodable, skipping write", "layer", layer, "key", key, "error", err)
		return
	}
	t.store.Set(ctx, t.key(layer, key), raw, ttl)
}

// ContentKey hashes arbitrary text into a cache key, used for enrichment
// result caching keyed by input content.
func ContentKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
