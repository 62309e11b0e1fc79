package cache

import (
	"bytes"
	"context"
	"path"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/types"
	"github.com/voyagekit/tripcache/utils"
)

// entryOverhead is the rough per-entry bookkeeping cost used by the
// footprint estimate.
const entryOverhead = 96

type MemoryConfig struct {
	MaxEntries int `json:"max_entries" yaml:"max_entries"`
}

// MemoryStore is the in-process backend: a mutex-guarded map, suitable for
// single-instance deployments only. It must never be shared across process
// boundaries; multi-instance deployments need the redis backend for
// correctness, not just performance.
type MemoryStore struct {
	logger types.Logger
	config *MemoryConfig
	data   map[string]*types.CacheEntry
	mu     sync.RWMutex
}

func NewMemoryStore(ctx context.Context, logger types.Logger, config *types.CacheConfig) (types.Store, error) {
	memConfig := &MemoryConfig{
		MaxEntries: 10000,
	}

	if config.Config != nil {
		err := utils.UnmarshalConfig(config.Config, memConfig)
		if err != nil {
			return nil, types.WrapError(err, "failed to unmarshal memory store config")
		}
	}

	return &MemoryStore{
		logger: logger,
		config: memConfig,
		data:   make(map[string]*types.CacheEntry),
	}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	now := time.Now()

	m.mu.RLock()
	entry, exists := m.data[key]
	if !exists {
		m.mu.RUnlock()
		return nil, false
	}

	if entry.Expired(now) {
		m.mu.RUnlock()

		// Lazy deletion; re-check under the write lock in case a
		// concurrent Set replaced the entry in between.
		m.mu.Lock()
		if entry, exists := m.data[key]; exists && entry.Expired(now) {
			delete(m.data, key)
		}
		m.mu.Unlock()

		return nil, false
	}

	// Hand out a copy; a caller mutating the result must not corrupt
	// the stored entry.
	value := make([]byte, len(entry.Value))
	copy(value, entry.Value)
	m.mu.RUnlock()

	return value, true
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, opts types.SetOptions) (bool, error) {
	if key == "" {
		return false, types.ErrCacheKeyEmpty
	}

	now := time.Now()
	entry := &types.CacheEntry{
		Key:         key,
		Value:       value,
		ContentType: opts.ContentType,
		CreatedAt:   now,
	}
	if opts.TTL > 0 {
		entry.ExpiresAt = now.Add(opts.TTL)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.data[key]
	if exists && existing.Expired(now) {
		delete(m.data, key)
		exists = false
	}

	switch opts.Mode {
	case types.SetIfAbsent:
		if exists {
			return false, nil
		}
	case types.SetIfPresent:
		if !exists {
			return false, nil
		}
	}

	if !exists && m.config.MaxEntries > 0 && len(m.data) >= m.config.MaxEntries {
		m.evictOneLocked()
	}

	m.data[key] = entry
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		return false, nil
	}

	delete(m.data, key)
	return true, nil
}

func (m *MemoryStore) InvalidatePattern(_ context.Context, pattern string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.data {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return removed, types.WrapError(err, "invalid invalidation pattern")
		}
		if matched {
			delete(m.data, key)
			removed++
		}
	}

	return removed, nil
}

func (m *MemoryStore) GetMulti(_ context.Context, keys []string) [][]byte {
	now := time.Now()
	results := make([][]byte, len(keys))

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, key := range keys {
		entry, exists := m.data[key]
		if !exists {
			continue
		}
		if entry.Expired(now) {
			delete(m.data, key)
			continue
		}
		value := make([]byte, len(entry.Value))
		copy(value, entry.Value)
		results[i] = value
	}

	return results
}

func (m *MemoryStore) SetMulti(_ context.Context, items []types.BatchItem) error {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if item.Key == "" {
			return types.ErrCacheKeyEmpty
		}

		entry := &types.CacheEntry{
			Key:         item.Key,
			Value:       item.Value,
			ContentType: item.ContentType,
			CreatedAt:   now,
		}
		if item.TTL > 0 {
			entry.ExpiresAt = now.Add(item.TTL)
		}

		if _, exists := m.data[item.Key]; !exists && m.config.MaxEntries > 0 && len(m.data) >= m.config.MaxEntries {
			m.evictOneLocked()
		}

		m.data[item.Key] = entry
	}

	return nil
}

func (m *MemoryStore) IncrBy(_ context.Context, key string, delta int64, expiry time.Duration) (int64, error) {
	if key == "" {
		return 0, types.ErrCacheKeyEmpty
	}

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var current int64
	if entry, exists := m.data[key]; exists && !entry.Expired(now) {
		parsed, err := strconv.ParseInt(utils.BytesToString(entry.Value), 10, 64)
		if err != nil {
			return 0, types.WrapError(err, "counter key holds non-integer value")
		}
		current = parsed
	}

	current += delta

	entry := &types.CacheEntry{
		Key:       key,
		Value:     []byte(strconv.FormatInt(current, 10)),
		CreatedAt: now,
	}
	if expiry > 0 {
		entry.ExpiresAt = now.Add(expiry)
	}
	m.data[key] = entry

	return current, nil
}

func (m *MemoryStore) CompareAndDelete(_ context.Context, key string, expect []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.data[key]
	if !exists || entry.Expired(time.Now()) {
		return false, nil
	}

	if !bytes.Equal(entry.Value, expect) {
		return false, nil
	}

	delete(m.data, key)
	return true, nil
}

func (m *MemoryStore) KeyCount(_ context.Context) (int64, error) {
	now := time.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, entry := range m.data {
		if !entry.Expired(now) {
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) FootprintBytes(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for key, entry := range m.data {
		total += int64(len(key) + len(entry.Value) + entryOverhead)
	}

	return total, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]*types.CacheEntry)
	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]*types.CacheEntry)
	return nil
}

// SweepExpired removes every expired entry in one pass. Called by the
// janitor; Get handles stragglers lazily in between sweeps.
func (m *MemoryStore) SweepExpired() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.data {
		if entry.Expired(now) {
			delete(m.data, key)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Debug("Expired entries swept", zap.Int("removed", removed))
	}

	return removed
}

// evictOneLocked drops the oldest entry by creation time (FIFO). Caller
// holds the write lock.
func (m *MemoryStore) evictOneLocked() {
	var victimKey string
	var victimTime time.Time

	for key, entry := range m.data {
		if victimKey == "" || entry.CreatedAt.Before(victimTime) {
			victimKey = key
			victimTime = entry.CreatedAt
		}
	}

	if victimKey != "" {
		delete(m.data, victimKey)
	}
}
