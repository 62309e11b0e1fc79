package cache

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/types"
	"github.com/voyagekit/tripcache/utils"
)

const (
	statsHitsKey    = "stats:hits"
	statsMissesKey  = "stats:misses"
	statsSetsKey    = "stats:sets"
	statsDeletesKey = "stats:deletes"

	DefaultStatsWindow = 7 * 24 * time.Hour
)

// Sampler decides whether a single event is recorded.
type Sampler interface {
	Sample() bool
}

// RateSampler records events with fixed probability. Rate 1 records
// everything, rate 0 records nothing.
type RateSampler struct {
	mu   sync.Mutex
	rate float64
	rng  *rand.Rand
}

func NewRateSampler(rate float64) *RateSampler {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}

	return &RateSampler{
		rate: rate,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *RateSampler) Sample() bool {
	if s.rate >= 1 {
		return true
	}
	if s.rate <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < s.rate
}

// StatsCollector keeps sampled hit, miss, set and delete counters in the
// store itself, under a bounded window so abandoned counters age out.
// Counter write failures are logged at debug and swallowed; statistics
// never interfere with cache traffic.
type StatsCollector struct {
	store   types.Store
	logger  types.Logger
	sampler Sampler
	window  time.Duration
}

func NewStatsCollector(store types.Store, logger types.Logger, sampler Sampler, window time.Duration) *StatsCollector {
	if window <= 0 {
		window = DefaultStatsWindow
	}

	return &StatsCollector{
		store:   store,
		logger:  logger,
		sampler: sampler,
		window:  window,
	}
}

func (s *StatsCollector) RecordHit(ctx context.Context)    { s.record(ctx, statsHitsKey) }
func (s *StatsCollector) RecordMiss(ctx context.Context)   { s.record(ctx, statsMissesKey) }
func (s *StatsCollector) RecordSet(ctx context.Context)    { s.record(ctx, statsSetsKey) }
func (s *StatsCollector) RecordDelete(ctx context.Context) { s.record(ctx, statsDeletesKey) }

func (s *StatsCollector) record(ctx context.Context, key string) {
	if !s.sampler.Sample() {
		return
	}

	if _, err := s.store.IncrBy(ctx, key, 1, s.window); err != nil {
		s.logger.Debug("Failed to record cache statistic",
			zap.String("key", key),
			zap.Error(err))
	}
}

func (s *StatsCollector) Snapshot(ctx context.Context) types.CacheStats {
	stats := types.CacheStats{
		Hits:    s.readCounter(ctx, statsHitsKey),
		Misses:  s.readCounter(ctx, statsMissesKey),
		Sets:    s.readCounter(ctx, statsSetsKey),
		Deletes: s.readCounter(ctx, statsDeletesKey),
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}

	if count, err := s.store.KeyCount(ctx); err == nil {
		stats.KeyCount = count
	}

	if footprint, err := s.store.FootprintBytes(ctx); err == nil {
		stats.SizeMB = float64(footprint) / (1024 * 1024)
	}

	return stats
}

func (s *StatsCollector) Reset(ctx context.Context) error {
	for _, key := range []string{statsHitsKey, statsMissesKey, statsSetsKey, statsDeletesKey} {
		if _, err := s.store.Delete(ctx, key); err != nil {
			return types.WrapError(err, "failed to reset cache statistics")
		}
	}
	return nil
}

// readCounter parses the raw counter value both backends store as decimal
// text. A plain Get keeps a snapshot of an idle cache from creating the
// counter keys it is about to report on.
func (s *StatsCollector) readCounter(ctx context.Context, key string) uint64 {
	value, ok := s.store.Get(ctx, key)
	if !ok {
		return 0
	}
	parsed, err := strconv.ParseInt(utils.BytesToString(value), 10, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return uint64(parsed)
}
