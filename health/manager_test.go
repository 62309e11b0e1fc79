package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/logger"
	"github.com/voyagekit/tripcache/types"
)

func TestManager_NoCheckersIsHealthy(t *testing.T) {
	hm := NewManager(logger.NewZapWrapper(zap.NewNop()))

	report := hm.Check(context.Background())
	assert.Equal(t, types.HealthStatusHealthy, report.Status)
	assert.Empty(t, report.Checks)
	assert.NotEmpty(t, report.Version.BuildInfo)
}

func TestManager_AggregatesCheckResults(t *testing.T) {
	hm := NewManager(logger.NewZapWrapper(zap.NewNop()))

	hm.RegisterChecker("cache", types.HealthCheckerFunc(func(ctx context.Context) error {
		return nil
	}))
	hm.RegisterChecker("upstream", types.HealthCheckerFunc(func(ctx context.Context) error {
		return errors.New("connection refused")
	}))

	report := hm.Check(context.Background())
	assert.Equal(t, types.HealthStatusDegraded, report.Status)
	assert.Equal(t, types.HealthStatusHealthy, report.Checks["cache"].Status)
	assert.Equal(t, types.HealthStatusUnhealthy, report.Checks["upstream"].Status)
	assert.Equal(t, "connection refused", report.Checks["upstream"].Error)
}

func TestManager_AllFailingIsUnhealthy(t *testing.T) {
	hm := NewManager(logger.NewZapWrapper(zap.NewNop()))

	hm.RegisterChecker("cache", types.HealthCheckerFunc(func(ctx context.Context) error {
		return errors.New("down")
	}))

	report := hm.Check(context.Background())
	assert.Equal(t, types.HealthStatusUnhealthy, report.Status)
}
