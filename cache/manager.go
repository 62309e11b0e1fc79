package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/types"
)

var (
	customStoreCreators = make(map[string]types.StoreCreator)
	customStoresMu      sync.RWMutex
)

// RegisterStore makes a custom backend available to NewCacheManager under
// the given name.
func RegisterStore(name string, creator types.StoreCreator) {
	customStoresMu.Lock()
	defer customStoresMu.Unlock()
	customStoreCreators[name] = creator
}

// NewCacheManager builds the cache facade from configuration: it selects
// the backend, wires metrics instrumentation around it and attaches the
// janitor when the backend needs active expiry.
func NewCacheManager(ctx context.Context, configManager types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (*Cache, error) {
	config := configManager.GetConfig().Cache

	if config == nil || !config.Enabled {
		return nil, types.ErrCacheIsDisabled
	}

	store, err := createStore(ctx, logger, config)
	if err != nil {
		return nil, err
	}

	sweeper, _ := store.(Sweeper)

	if metrics != nil {
		store = newInstrumentedStore(store, metrics)
	}

	cacheInstance, err := New(ctx, logger, store, config)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if sweeper != nil {
		cacheInstance.janitor = NewJanitor(logger, sweeper, config.CleanupInterval)
	}

	logger.Info("Cache manager created",
		zap.String("backend", config.Backend),
		zap.String("namespace", config.Namespace))

	return cacheInstance, nil
}

func createStore(ctx context.Context, logger types.Logger, config *types.CacheConfig) (types.Store, error) {
	switch config.Backend {
	case "memory", "":
		return NewMemoryStore(ctx, logger, config)
	case "redis":
		return NewRedisStore(ctx, logger, config)
	default:
		customStoresMu.RLock()
		creator, found := customStoreCreators[config.Backend]
		customStoresMu.RUnlock()

		if found {
			return creator(ctx, logger, config)
		}

		return nil, types.Errorf(types.ErrCacheBackendUnknown, "backend %q", config.Backend)
	}
}
