package metrics

import (
	"context"

	"github.com/voyagekit/tripcache/types"
)

var customMetricsCreators = make(map[string]types.MetricsManagerCreator)

func RegisterMetricsManager(metricsManagerName string, creator types.MetricsManagerCreator) {
	customMetricsCreators[metricsManagerName] = creator
}

func NewMetricsManager(ctx context.Context, config types.ConfigManager, logger types.Logger) (types.MetricsManager, error) {
	metricsConfig := config.GetConfig().Metrics

	if metricsConfig == nil || !metricsConfig.Enabled {
		return NewNoopMetrics(), nil
	}

	switch metricsConfig.Type {
	case "prometheus", "":
		return NewPrometheusMetrics(ctx, logger, metricsConfig)
	default:
		if creator, exists := customMetricsCreators[metricsConfig.Type]; exists {
			return creator(metricsConfig)
		}
		return nil, types.Errorf(types.ErrMetricsTypeUnknown, "type: %s", metricsConfig.Type)
	}
}
