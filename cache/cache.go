package cache

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/types"
	"github.com/voyagekit/tripcache/utils"
)

// NoExpiry pins an entry for the backend's lifetime regardless of its
// content category.
const NoExpiry = -1

// BatchEntry is one write in a batch set.
type BatchEntry struct {
	Key         string
	Value       interface{}
	TTL         time.Duration
	ContentType types.ContentType
}

// Cache is the facade over a backend store. It owns serialization, the
// content-category TTL policy and sampled statistics; callers deal in keys
// and Go values, never in stored bytes.
type Cache struct {
	ctx     context.Context
	logger  types.Logger
	store   types.Store
	codec   *Codec
	stats   *StatsCollector
	policy  *TTLPolicy
	janitor *Janitor
	enabled bool
	running int32
}

func New(ctx context.Context, logger types.Logger, store types.Store, config *types.CacheConfig) (*Cache, error) {
	overrides := make(map[string]time.Duration, len(config.TTLOverrides))
	for name, ttl := range config.TTLOverrides {
		overrides[name] = ttl.Std()
	}

	policy, err := NewTTLPolicy(overrides)
	if err != nil {
		return nil, err
	}

	sampler := NewRateSampler(config.SampleRate)
	stats := NewStatsCollector(store, logger, sampler, config.StatsWindow.Std())

	return &Cache{
		ctx:     ctx,
		logger:  logger,
		store:   store,
		codec:   NewCodec(config.CompressionThreshold),
		stats:   stats,
		policy:  policy,
		enabled: config.Enabled,
	}, nil
}

func (c *Cache) Start() error {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return types.ErrAlreadyRunning
	}

	if c.janitor != nil {
		if err := c.janitor.Start(); err != nil {
			atomic.StoreInt32(&c.running, 0)
			return err
		}
	}

	c.logger.Info("Cache started")
	return nil
}

func (c *Cache) Stop() error {
	if !atomic.CompareAndSwapInt32(&c.running, 1, 0) {
		return types.ErrNotRunning
	}

	if c.janitor != nil {
		c.janitor.Stop()
	}

	c.logger.Info("Cache stopped")
	return nil
}

func (c *Cache) IsRunning() bool {
	return atomic.LoadInt32(&c.running) == 1
}

// Get loads the entry under key into dest. It returns false on a miss, and
// treats an undecodable entry as a miss after dropping it, so one corrupt
// write cannot wedge a key forever.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if !c.enabled || key == "" {
		return false
	}

	raw, found := c.store.Get(ctx, key)
	if !found {
		c.stats.RecordMiss(ctx)
		return false
	}

	payload, _, err := c.codec.Decode(raw)
	if err == nil {
		err = utils.UnmarshalAny(payload, dest)
	}
	if err != nil {
		c.logger.Warn("Dropping undecodable cache entry",
			zap.String("key", key),
			zap.Error(err))
		_, _ = c.store.Delete(ctx, key)
		c.stats.RecordMiss(ctx)
		return false
	}

	c.stats.RecordHit(ctx)
	return true
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, opts types.SetOptions) error {
	if !c.enabled {
		return nil
	}
	if key == "" {
		return types.ErrCacheKeyEmpty
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = types.ContentDaily
	}

	payload, err := utils.Marshal(value)
	if err != nil {
		return types.Errorf(types.ErrSerializationFailed, "%v", err)
	}

	encoded, err := c.codec.Encode(payload, contentType)
	if err != nil {
		return err
	}

	_, err = c.store.Set(ctx, key, encoded, types.SetOptions{
		TTL:  c.policy.Resolve(opts.TTL, contentType),
		Mode: opts.Mode,
	})
	if err != nil {
		return err
	}

	c.stats.RecordSet(ctx)
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	removed, err := c.store.Delete(ctx, key)
	if err != nil {
		return false, err
	}

	if removed {
		c.stats.RecordDelete(ctx)
	}

	return removed, nil
}

func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if !c.enabled {
		return 0, nil
	}

	return c.store.InvalidatePattern(ctx, pattern)
}

// BatchGet fetches the given keys in one backend round trip and returns the
// decoded payloads of the keys that were present.
func (c *Cache) BatchGet(ctx context.Context, keys []string) map[string][]byte {
	results := make(map[string][]byte, len(keys))
	if !c.enabled || len(keys) == 0 {
		return results
	}

	for i, raw := range c.store.GetMulti(ctx, keys) {
		if raw == nil {
			c.stats.RecordMiss(ctx)
			continue
		}

		payload, _, err := c.codec.Decode(raw)
		if err != nil {
			c.stats.RecordMiss(ctx)
			continue
		}

		results[keys[i]] = payload
		c.stats.RecordHit(ctx)
	}

	return results
}

// BatchSet writes all entries in one backend round trip. The batch shares a
// fate: a backend failure means none of the entries are reported written.
func (c *Cache) BatchSet(ctx context.Context, entries []BatchEntry) error {
	if !c.enabled || len(entries) == 0 {
		return nil
	}

	items := make([]types.BatchItem, 0, len(entries))
	for _, entry := range entries {
		if entry.Key == "" {
			return types.ErrCacheKeyEmpty
		}

		contentType := entry.ContentType
		if contentType == "" {
			contentType = types.ContentDaily
		}

		payload, err := utils.Marshal(entry.Value)
		if err != nil {
			return types.Errorf(types.ErrSerializationFailed, "key %s: %v", entry.Key, err)
		}

		encoded, err := c.codec.Encode(payload, contentType)
		if err != nil {
			return err
		}

		items = append(items, types.BatchItem{
			Key:         entry.Key,
			Value:       encoded,
			TTL:         c.policy.Resolve(entry.TTL, contentType),
			ContentType: contentType,
		})
	}

	if err := c.store.SetMulti(ctx, items); err != nil {
		return err
	}

	for range items {
		c.stats.RecordSet(ctx)
	}

	return nil
}

func (c *Cache) GetStats(ctx context.Context) types.CacheStats {
	return c.stats.Snapshot(ctx)
}

func (c *Cache) ResetStats(ctx context.Context) error {
	return c.stats.Reset(ctx)
}

func (c *Cache) NewLock(name string, opts ...LockOption) (*Lock, error) {
	return NewLock(c.store, c.logger, name, opts...)
}

func (c *Cache) Enabled() bool {
	return c.enabled
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

func (c *Cache) Close() error {
	return c.store.Close()
}
