package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/voyagekit/tripcache/types"
)

// Manager aggregates liveness probes of the service's dependencies. Probes
// run concurrently; one slow dependency must not delay the report of the
// others beyond the shared check timeout.
type Manager struct {
	logger       types.Logger
	checkers     map[string]types.HealthChecker
	startTime    time.Time
	checkTimeout time.Duration
	mu           sync.RWMutex
}

func NewManager(logger types.Logger) *Manager {
	return &Manager{
		logger:       logger,
		checkers:     make(map[string]types.HealthChecker),
		startTime:    time.Now(),
		checkTimeout: 5 * time.Second,
	}
}

func (hm *Manager) RegisterChecker(name string, checker types.HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hm.checkers[name] = checker
}

func (hm *Manager) Check(ctx context.Context) types.HealthReport {
	hm.mu.RLock()
	checkers := make(map[string]types.HealthChecker, len(hm.checkers))
	for name, checker := range hm.checkers {
		checkers[name] = checker
	}
	hm.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, hm.checkTimeout)
	defer cancel()

	results := make(map[string]types.HealthCheck, len(checkers))
	var resultsMu sync.Mutex

	g, gCtx := errgroup.WithContext(checkCtx)
	for name, checker := range checkers {
		name, checker := name, checker
		g.Go(func() error {
			result := hm.runCheck(gCtx, name, checker)

			resultsMu.Lock()
			results[name] = result
			resultsMu.Unlock()

			// Failures are reflected in the report, not propagated, so
			// every probe always runs to completion.
			return nil
		})
	}
	_ = g.Wait()

	return types.HealthReport{
		Status:  overallStatus(results),
		Version: BuildVersion(),
		Uptime:  time.Since(hm.startTime),
		Checks:  results,
	}
}

func (hm *Manager) runCheck(ctx context.Context, name string, checker types.HealthChecker) types.HealthCheck {
	started := time.Now()
	err := checker.HealthCheck(ctx)

	check := types.HealthCheck{
		Name:      name,
		Status:    types.HealthStatusHealthy,
		Duration:  time.Since(started),
		CheckedAt: started,
	}

	if err != nil {
		check.Status = types.HealthStatusUnhealthy
		check.Error = err.Error()

		hm.logger.Warn("Health check failed",
			zap.String("check", name),
			zap.Error(err))
	}

	return check
}

func overallStatus(checks map[string]types.HealthCheck) types.HealthStatus {
	if len(checks) == 0 {
		return types.HealthStatusHealthy
	}

	failed := 0
	for _, check := range checks {
		if check.Status != types.HealthStatusHealthy {
			failed++
		}
	}

	switch {
	case failed == 0:
		return types.HealthStatusHealthy
	case failed == len(checks):
		return types.HealthStatusUnhealthy
	default:
		return types.HealthStatusDegraded
	}
}
