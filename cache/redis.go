package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/types"
	"github.com/voyagekit/tripcache/utils"
)

type RedisConfig struct {
	Host               string        `json:"host" yaml:"host"`
	Port               int           `json:"port" yaml:"port"`
	Password           string        `json:"password" yaml:"password"`
	DB                 int           `json:"db" yaml:"db"`
	PoolSize           int           `json:"pool_size" yaml:"pool_size"`
	MinIdleConnections int           `json:"min_idle_connections" yaml:"min_idle_connections"`
	DialTimeout        time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout" yaml:"write_timeout"`
	OpTimeout          time.Duration `json:"op_timeout" yaml:"op_timeout"`
	ScanCount          int64         `json:"scan_count" yaml:"scan_count"`
}

// releaseScript deletes a key only when it still holds the expected value.
// One atomic server-side step, so a stale lock holder can never delete a
// lease that was re-acquired by someone else.
var releaseScript = redis.NewScript(
	`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`)

// RedisStore is the distributed backend. Every operation is bounded by
// OpTimeout and fails open: connectivity errors are logged at warning and
// surface as a miss or a failed write, never as a hard failure.
type RedisStore struct {
	logger    types.Logger
	config    *RedisConfig
	namespace string
	client    *redis.Client
	healthy   int32
}

func NewRedisStore(ctx context.Context, logger types.Logger, config *types.CacheConfig) (types.Store, error) {
	redisConfig := &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		Password:           "",
		DB:                 0,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		OpTimeout:          2 * time.Second,
		ScanCount:          1000,
	}

	if config.Config != nil {
		err := utils.UnmarshalConfig(config.Config, redisConfig)
		if err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis store config")
		}
	}

	store := &RedisStore{
		logger:    logger,
		config:    redisConfig,
		namespace: config.Namespace,
	}

	store.client = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password:     redisConfig.Password,
		DB:           redisConfig.DB,
		PoolSize:     redisConfig.PoolSize,
		MinIdleConns: redisConfig.MinIdleConnections,
		DialTimeout:  redisConfig.DialTimeout,
		ReadTimeout:  redisConfig.ReadTimeout,
		WriteTimeout: redisConfig.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisConfig.DialTimeout)
	defer cancel()

	if err := store.client.Ping(pingCtx).Err(); err != nil {
		return nil, types.WrapError(err, "failed to connect to redis")
	}

	atomic.StoreInt32(&store.healthy, 1)

	return store, nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	if err := r.ensure(opCtx); err != nil {
		return nil, false
	}

	result, err := r.client.Get(opCtx, r.fullKey(key)).Bytes()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return nil, false
		}
		r.fail("get", key, err)
		return nil, false
	}

	return result, true
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, opts types.SetOptions) (bool, error) {
	if key == "" {
		return false, types.ErrCacheKeyEmpty
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	if err := r.ensure(opCtx); err != nil {
		return false, err
	}

	fullKey := r.fullKey(key)
	ttl := opts.TTL
	if ttl < 0 {
		ttl = 0
	}

	switch opts.Mode {
	case types.SetIfAbsent:
		stored, err := r.client.SetNX(opCtx, fullKey, value, ttl).Result()
		if err != nil {
			r.fail("setnx", key, err)
			return false, types.WrapError(err, "failed to set cache entry")
		}
		return stored, nil
	case types.SetIfPresent:
		stored, err := r.client.SetXX(opCtx, fullKey, value, ttl).Result()
		if err != nil {
			r.fail("setxx", key, err)
			return false, types.WrapError(err, "failed to set cache entry")
		}
		return stored, nil
	default:
		if err := r.client.Set(opCtx, fullKey, value, ttl).Err(); err != nil {
			r.fail("set", key, err)
			return false, types.WrapError(err, "failed to set cache entry")
		}
		return true, nil
	}
}

func (r *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	if err := r.ensure(opCtx); err != nil {
		return false, err
	}

	removed, err := r.client.Del(opCtx, r.fullKey(key)).Result()
	if err != nil {
		r.fail("delete", key, err)
		return false, types.WrapError(err, "failed to delete cache key")
	}

	return removed > 0, nil
}

// InvalidatePattern walks the namespaced keyspace with SCAN, so a large
// invalidation never blocks the server, and unlinks matches in pipelined
// batches.
func (r *RedisStore) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	pingCtx, cancel := r.opContext(ctx)
	err := r.ensure(pingCtx)
	cancel()
	if err != nil {
		return 0, err
	}

	fullPattern := r.fullKey(pattern)
	removed := 0
	var cursor uint64

	for {
		opCtx, cancel := r.opContext(ctx)
		keys, next, err := r.client.Scan(opCtx, cursor, fullPattern, r.config.ScanCount).Result()
		cancel()
		if err != nil {
			r.fail("scan", pattern, err)
			return removed, types.WrapError(err, "failed to scan keys")
		}

		if len(keys) > 0 {
			opCtx, cancel := r.opContext(ctx)
			pipe := r.client.Pipeline()
			cmds := make([]*redis.IntCmd, 0, len(keys))
			for _, key := range keys {
				cmds = append(cmds, pipe.Unlink(opCtx, key))
			}
			_, err := pipe.Exec(opCtx)
			cancel()
			if err != nil {
				r.fail("unlink", pattern, err)
				return removed, types.WrapError(err, "failed to unlink keys")
			}
			// Sum the per-command results; a key that expired between
			// SCAN and UNLINK must not count as removed.
			for _, cmd := range cmds {
				removed += int(cmd.Val())
			}
		}

		if next == 0 {
			break
		}
		cursor = next
	}

	return removed, nil
}

func (r *RedisStore) GetMulti(ctx context.Context, keys []string) [][]byte {
	results := make([][]byte, len(keys))
	if len(keys) == 0 {
		return results
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	if err := r.ensure(opCtx); err != nil {
		return results
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Get(opCtx, r.fullKey(key))
	}

	// A pipeline-level failure reports every key as a miss; there is no
	// per-key retry inside one batch.
	if _, err := pipe.Exec(opCtx); err != nil && !types.IsError(err, redis.Nil) {
		r.fail("mget", "", err)
		return results
	}

	for i, cmd := range cmds {
		value, err := cmd.Bytes()
		if err != nil {
			continue
		}
		results[i] = value
	}

	return results
}

func (r *RedisStore) SetMulti(ctx context.Context, items []types.BatchItem) error {
	if len(items) == 0 {
		return nil
	}

	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	if err := r.ensure(opCtx); err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	for _, item := range items {
		if item.Key == "" {
			return types.ErrCacheKeyEmpty
		}
		ttl := item.TTL
		if ttl < 0 {
			ttl = 0
		}
		pipe.Set(opCtx, r.fullKey(item.Key), item.Value, ttl)
	}

	if _, err := pipe.Exec(opCtx); err != nil {
		r.fail("mset", "", err)
		return types.WrapError(err, "failed to write cache batch")
	}

	return nil
}

func (r *RedisStore) IncrBy(ctx context.Context, key string, delta int64, expiry time.Duration) (int64, error) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	if err := r.ensure(opCtx); err != nil {
		return 0, err
	}

	pipe := r.client.Pipeline()
	incr := pipe.IncrBy(opCtx, r.fullKey(key), delta)
	if expiry > 0 {
		pipe.Expire(opCtx, r.fullKey(key), expiry)
	}

	if _, err := pipe.Exec(opCtx); err != nil {
		r.fail("incrby", key, err)
		return 0, types.WrapError(err, "failed to increment counter")
	}

	return incr.Val(), nil
}

func (r *RedisStore) CompareAndDelete(ctx context.Context, key string, expect []byte) (bool, error) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	if err := r.ensure(opCtx); err != nil {
		return false, err
	}

	result, err := releaseScript.Run(opCtx, r.client, []string{r.fullKey(key)}, expect).Int64()
	if err != nil {
		r.fail("cad", key, err)
		return false, types.WrapError(err, "failed to compare-and-delete key")
	}

	return result == 1, nil
}

func (r *RedisStore) KeyCount(ctx context.Context) (int64, error) {
	pingCtx, cancel := r.opContext(ctx)
	err := r.ensure(pingCtx)
	cancel()
	if err != nil {
		return 0, err
	}

	var count int64
	var cursor uint64

	for {
		opCtx, cancel := r.opContext(ctx)
		keys, next, err := r.client.Scan(opCtx, cursor, r.fullKey("*"), r.config.ScanCount).Result()
		cancel()
		if err != nil {
			r.fail("scan", "*", err)
			return count, types.WrapError(err, "failed to count keys")
		}

		count += int64(len(keys))
		if next == 0 {
			break
		}
		cursor = next
	}

	return count, nil
}

// FootprintBytes scales the server's used_memory by this namespace's share
// of the keyspace. An approximation, not an accounting.
func (r *RedisStore) FootprintBytes(ctx context.Context) (int64, error) {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	if err := r.ensure(opCtx); err != nil {
		return 0, err
	}

	info, err := r.client.Info(opCtx, "memory").Result()
	if err != nil {
		r.fail("info", "", err)
		return 0, types.WrapError(err, "failed to read memory info")
	}

	usedMemory := parseInfoInt(info, "used_memory")
	if usedMemory == 0 {
		return 0, nil
	}

	dbSize, err := r.client.DBSize(opCtx).Result()
	if err != nil || dbSize == 0 {
		return 0, nil
	}

	nsCount, err := r.KeyCount(ctx)
	if err != nil {
		return 0, err
	}

	return usedMemory * nsCount / dbSize, nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	_, err := r.InvalidatePattern(ctx, "*")
	return err
}

func (r *RedisStore) Ping(ctx context.Context) error {
	opCtx, cancel := r.opContext(ctx)
	defer cancel()

	return r.client.Ping(opCtx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) fullKey(key string) string {
	if r.namespace != "" {
		return r.namespace + ":" + key
	}
	return key
}

func (r *RedisStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.config.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.config.OpTimeout)
}

// ensure verifies connection liveness before a logical operation, but only
// after a previous failure marked the connection suspect; the healthy path
// costs one atomic load.
func (r *RedisStore) ensure(ctx context.Context) error {
	if atomic.LoadInt32(&r.healthy) == 1 {
		return nil
	}

	if err := r.client.Ping(ctx).Err(); err != nil {
		return types.Errorf(types.ErrCacheConnectionFailed, "%v", err)
	}

	atomic.StoreInt32(&r.healthy, 1)
	r.logger.Info("Redis connection re-established")
	return nil
}

func (r *RedisStore) fail(op, key string, err error) {
	atomic.StoreInt32(&r.healthy, 0)
	r.logger.Warn("Redis operation failed",
		zap.String("operation", op),
		zap.String("key", key),
		zap.Error(err))
}

func parseInfoInt(info, field string) int64 {
	for _, line := range strings.Split(info, "\r\n") {
		if strings.HasPrefix(line, field+":") {
			value, err := strconv.ParseInt(strings.TrimPrefix(line, field+":"), 10, 64)
			if err != nil {
				return 0
			}
			return value
		}
	}
	return 0
}
