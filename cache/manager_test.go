package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/logger"
	"github.com/voyagekit/tripcache/types"
)

type stubConfigManager struct {
	config *types.ServiceConfig
}

func (s *stubConfigManager) Load() error                              { return nil }
func (s *stubConfigManager) GetConfig() *types.ServiceConfig          { return s.config }
func (s *stubConfigManager) GetValue(string, interface{}) interface{} { return nil }
func (s *stubConfigManager) GetAs(string, interface{}) error          { return nil }

func newStubConfig(cacheConfig *types.CacheConfig) types.ConfigManager {
	return &stubConfigManager{
		config: &types.ServiceConfig{
			Name:    "tripcache-test",
			Version: "0.0.1",
			Cache:   cacheConfig,
		},
	}
}

func TestNewCacheManager_MemoryBackend(t *testing.T) {
	log := logger.NewZapWrapper(zap.NewNop())

	c, err := NewCacheManager(context.Background(), newStubConfig(&types.CacheConfig{
		Enabled:         true,
		Backend:         "memory",
		Namespace:       "test",
		SampleRate:      1.0,
		CleanupInterval: "1m",
	}), log, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", types.SetOptions{}))

	var loaded string
	assert.True(t, c.Get(ctx, "k", &loaded))

	// The memory backend gets a janitor for active expiry.
	require.NoError(t, c.Start())
	assert.True(t, c.IsRunning())
	require.NoError(t, c.Stop())
}

func TestNewCacheManager_Disabled(t *testing.T) {
	log := logger.NewZapWrapper(zap.NewNop())

	_, err := NewCacheManager(context.Background(), newStubConfig(&types.CacheConfig{
		Enabled: false,
	}), log, nil)
	assert.ErrorIs(t, err, types.ErrCacheIsDisabled)
}

func TestNewCacheManager_UnknownBackend(t *testing.T) {
	log := logger.NewZapWrapper(zap.NewNop())

	_, err := NewCacheManager(context.Background(), newStubConfig(&types.CacheConfig{
		Enabled: true,
		Backend: "memcached",
	}), log, nil)
	require.Error(t, err)
	assert.True(t, types.IsError(err, types.ErrCacheBackendUnknown))
}

func TestNewCacheManager_CustomBackend(t *testing.T) {
	log := logger.NewZapWrapper(zap.NewNop())

	RegisterStore("fake", func(ctx context.Context, logger types.Logger, config *types.CacheConfig) (types.Store, error) {
		return NewMemoryStore(ctx, logger, config)
	})

	c, err := NewCacheManager(context.Background(), newStubConfig(&types.CacheConfig{
		Enabled:    true,
		Backend:    "fake",
		SampleRate: 1.0,
	}), log, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(context.Background(), "k", "v", types.SetOptions{}))
}

func TestNewCacheManager_InvalidTTLOverride(t *testing.T) {
	log := logger.NewZapWrapper(zap.NewNop())

	_, err := NewCacheManager(context.Background(), newStubConfig(&types.CacheConfig{
		Enabled:      true,
		Backend:      "memory",
		TTLOverrides: map[string]types.Duration{"nonsense": types.Duration(time.Hour)},
	}), log, nil)
	require.Error(t, err)
	assert.True(t, types.IsError(err, types.ErrContentTypeInvalid))
}
