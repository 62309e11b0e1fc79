package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/logger"
)

type alwaysSampler struct{}

func (alwaysSampler) Sample() bool { return true }

type neverSampler struct{}

func (neverSampler) Sample() bool { return false }

func TestRateSampler_Bounds(t *testing.T) {
	always := NewRateSampler(1.0)
	for i := 0; i < 100; i++ {
		assert.True(t, always.Sample())
	}

	never := NewRateSampler(0)
	for i := 0; i < 100; i++ {
		assert.False(t, never.Sample())
	}

	// Out-of-range rates clamp instead of panicking.
	assert.True(t, NewRateSampler(2).Sample())
	assert.False(t, NewRateSampler(-1).Sample())
}

func TestStatsCollector_SnapshotOnIdleCache(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	collector := NewStatsCollector(store, logger.NewZapWrapper(zap.NewNop()), alwaysSampler{}, time.Hour)

	stats := collector.Snapshot(ctx)
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.HitRatio)

	// Reading statistics must not create the counter keys it reports on.
	count, err := store.KeyCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStatsCollector_Snapshot(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	collector := NewStatsCollector(store, logger.NewZapWrapper(zap.NewNop()), alwaysSampler{}, time.Hour)

	for i := 0; i < 3; i++ {
		collector.RecordHit(ctx)
	}
	collector.RecordMiss(ctx)
	collector.RecordSet(ctx)
	collector.RecordSet(ctx)
	collector.RecordDelete(ctx)

	stats := collector.Snapshot(ctx)
	assert.Equal(t, uint64(3), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(2), stats.Sets)
	assert.Equal(t, uint64(1), stats.Deletes)
	assert.InDelta(t, 0.75, stats.HitRatio, 0.0001)
}

func TestStatsCollector_ZeroTrafficRatio(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	collector := NewStatsCollector(store, logger.NewZapWrapper(zap.NewNop()), alwaysSampler{}, time.Hour)

	stats := collector.Snapshot(context.Background())
	assert.Equal(t, float64(0), stats.HitRatio)
}

func TestStatsCollector_SamplerGatesRecording(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	collector := NewStatsCollector(store, logger.NewZapWrapper(zap.NewNop()), neverSampler{}, time.Hour)

	for i := 0; i < 10; i++ {
		collector.RecordHit(ctx)
	}

	stats := collector.Snapshot(ctx)
	assert.Equal(t, uint64(0), stats.Hits)
}

func TestStatsCollector_Reset(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	collector := NewStatsCollector(store, logger.NewZapWrapper(zap.NewNop()), alwaysSampler{}, time.Hour)
	collector.RecordHit(ctx)
	collector.RecordMiss(ctx)

	require.NoError(t, collector.Reset(ctx))

	stats := collector.Snapshot(ctx)
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}
