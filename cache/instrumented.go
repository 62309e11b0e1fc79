package cache

import (
	"context"
	"time"

	"github.com/voyagekit/tripcache/types"
)

var operationDurationBuckets = []float64{0.0001, 0.001, 0.01, 0.1, 1.0}

// instrumentedStore decorates a backend with operation counters and latency
// histograms. The wrapped store never sees the difference.
type instrumentedStore struct {
	store   types.Store
	metrics types.MetricsManager
}

func newInstrumentedStore(store types.Store, metrics types.MetricsManager) types.Store {
	return &instrumentedStore{
		store:   store,
		metrics: metrics,
	}
}

func (i *instrumentedStore) observe(operation string, started time.Time, result string) {
	i.metrics.Counter("cache_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	}).Inc()

	i.metrics.Histogram("cache_operation_duration_seconds", operationDurationBuckets, map[string]string{
		"operation": operation,
	}).ObserveDuration(started)
}

func (i *instrumentedStore) Get(ctx context.Context, key string) ([]byte, bool) {
	started := time.Now()
	value, found := i.store.Get(ctx, key)

	result := "miss"
	if found {
		result = "hit"
	}
	i.observe("get", started, result)

	return value, found
}

func (i *instrumentedStore) Set(ctx context.Context, key string, value []byte, opts types.SetOptions) (bool, error) {
	started := time.Now()
	stored, err := i.store.Set(ctx, key, value, opts)
	i.observe("set", started, resultLabel(err))
	return stored, err
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) (bool, error) {
	started := time.Now()
	removed, err := i.store.Delete(ctx, key)
	i.observe("delete", started, resultLabel(err))
	return removed, err
}

func (i *instrumentedStore) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	started := time.Now()
	removed, err := i.store.InvalidatePattern(ctx, pattern)
	i.observe("invalidate_pattern", started, resultLabel(err))
	return removed, err
}

func (i *instrumentedStore) GetMulti(ctx context.Context, keys []string) [][]byte {
	started := time.Now()
	values := i.store.GetMulti(ctx, keys)
	i.observe("get_multi", started, "success")
	return values
}

func (i *instrumentedStore) SetMulti(ctx context.Context, items []types.BatchItem) error {
	started := time.Now()
	err := i.store.SetMulti(ctx, items)
	i.observe("set_multi", started, resultLabel(err))
	return err
}

func (i *instrumentedStore) IncrBy(ctx context.Context, key string, delta int64, expiry time.Duration) (int64, error) {
	started := time.Now()
	value, err := i.store.IncrBy(ctx, key, delta, expiry)
	i.observe("incr_by", started, resultLabel(err))
	return value, err
}

func (i *instrumentedStore) CompareAndDelete(ctx context.Context, key string, expect []byte) (bool, error) {
	started := time.Now()
	removed, err := i.store.CompareAndDelete(ctx, key, expect)
	i.observe("compare_and_delete", started, resultLabel(err))
	return removed, err
}

func (i *instrumentedStore) KeyCount(ctx context.Context) (int64, error) {
	return i.store.KeyCount(ctx)
}

func (i *instrumentedStore) FootprintBytes(ctx context.Context) (int64, error) {
	return i.store.FootprintBytes(ctx)
}

func (i *instrumentedStore) Clear(ctx context.Context) error {
	started := time.Now()
	err := i.store.Clear(ctx)
	i.observe("clear", started, resultLabel(err))
	return err
}

func (i *instrumentedStore) Ping(ctx context.Context) error {
	return i.store.Ping(ctx)
}

func (i *instrumentedStore) Close() error {
	return i.store.Close()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
