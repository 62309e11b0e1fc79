package types

import (
	"context"
	"time"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthChecker probes one dependency. Implementations must respect the
// context deadline; a slow probe counts as a failed one.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

type HealthCheck struct {
	Name      string        `json:"name"`
	Status    HealthStatus  `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	CheckedAt time.Time     `json:"checked_at"`
}

type HealthReport struct {
	Status  HealthStatus           `json:"status"`
	Version VersionInfo            `json:"version"`
	Uptime  time.Duration          `json:"uptime"`
	Checks  map[string]HealthCheck `json:"checks"`
}
