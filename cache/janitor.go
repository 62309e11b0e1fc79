package cache

import (
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/types"
)

// Sweeper removes expired entries and reports how many were dropped.
// Backends with native expiry do not need one.
type Sweeper interface {
	SweepExpired() int
}

// Janitor periodically sweeps a backend that only expires entries lazily on
// read, so keys that are never read again still get reclaimed.
type Janitor struct {
	logger   types.Logger
	sweeper  Sweeper
	interval string
	cron     *cron.Cron
	running  int32
}

func NewJanitor(logger types.Logger, sweeper Sweeper, interval string) *Janitor {
	if interval == "" {
		interval = "5m"
	}

	return &Janitor{
		logger:   logger,
		sweeper:  sweeper,
		interval: interval,
	}
}

func (j *Janitor) Start() error {
	if !atomic.CompareAndSwapInt32(&j.running, 0, 1) {
		return types.ErrAlreadyRunning
	}

	j.cron = cron.New()

	_, err := j.cron.AddFunc("@every "+j.interval, func() {
		swept := j.sweeper.SweepExpired()
		if swept > 0 {
			j.logger.Debug("Swept expired cache entries", zap.Int("count", swept))
		}
	})
	if err != nil {
		atomic.StoreInt32(&j.running, 0)
		return types.WrapError(err, "failed to schedule cache sweep")
	}

	j.cron.Start()
	j.logger.Info("Cache janitor started", zap.String("interval", j.interval))
	return nil
}

func (j *Janitor) Stop() {
	if !atomic.CompareAndSwapInt32(&j.running, 1, 0) {
		return
	}

	// Stop returns a context that is done once the running sweep finishes.
	<-j.cron.Stop().Done()

	j.logger.Info("Cache janitor stopped")
}
