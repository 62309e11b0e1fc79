package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/logger"
	"github.com/voyagekit/tripcache/types"
)

func newTestLock(t *testing.T, store types.Store, name string, opts ...LockOption) *Lock {
	t.Helper()

	lock, err := NewLock(store, logger.NewZapWrapper(zap.NewNop()), name, opts...)
	require.NoError(t, err)
	return lock
}

func TestLock_RequiresName(t *testing.T) {
	store := newTestMemoryStore(t, 0)

	_, err := NewLock(store, logger.NewZapWrapper(zap.NewNop()), "")
	assert.ErrorIs(t, err, types.ErrLockNameEmpty)
}

func TestLock_MutualExclusion(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	first := newTestLock(t, store, "sync-itinerary")
	second := newTestLock(t, store, "sync-itinerary",
		WithMaxRetries(1), WithRetryDelay(5*time.Millisecond))

	require.True(t, first.Acquire(ctx))
	assert.False(t, second.Acquire(ctx), "held lock must not be acquired twice")

	assert.True(t, first.Release(ctx))
	assert.True(t, second.Acquire(ctx))
	assert.True(t, second.Release(ctx))
}

func TestLock_ConcurrentAcquireSingleWinner(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	const contenders = 16
	locks := make([]*Lock, contenders)
	for i := range locks {
		locks[i] = newTestLock(t, store, "rebuild-index", WithMaxRetries(0))
	}

	var acquired int32
	start := make(chan struct{})
	var wg sync.WaitGroup

	for _, lock := range locks {
		wg.Add(1)
		go func(l *Lock) {
			defer wg.Done()
			<-start
			if l.Acquire(ctx) {
				atomic.AddInt32(&acquired, 1)
			}
		}(lock)
	}

	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, acquired, "exactly one contender may hold the lock")
}

func TestLock_DifferentNamesDoNotContend(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	first := newTestLock(t, store, "job-a")
	second := newTestLock(t, store, "job-b", WithMaxRetries(0))

	require.True(t, first.Acquire(ctx))
	assert.True(t, second.Acquire(ctx))
}

func TestLock_ReleaseWithoutAcquire(t *testing.T) {
	store := newTestMemoryStore(t, 0)

	lock := newTestLock(t, store, "never-held")
	assert.False(t, lock.Release(context.Background()))
}

func TestLock_ExpiredLeaseCannotBeReleased(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	first := newTestLock(t, store, "expiring", WithLockTTL(20*time.Millisecond))
	require.True(t, first.Acquire(ctx))

	time.Sleep(40 * time.Millisecond)

	// The lease expired and another instance took it over; the stale
	// holder must not delete the new lease.
	second := newTestLock(t, store, "expiring", WithMaxRetries(0))
	require.True(t, second.Acquire(ctx))

	assert.False(t, first.Release(ctx))
	assert.True(t, second.Release(ctx))
}

func TestLock_RetryEventuallyAcquires(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	first := newTestLock(t, store, "contended", WithLockTTL(30*time.Millisecond))
	require.True(t, first.Acquire(ctx))

	// Outlives the first holder's TTL through retries.
	second := newTestLock(t, store, "contended",
		WithMaxRetries(10), WithRetryDelay(10*time.Millisecond))
	assert.True(t, second.Acquire(ctx))
}

func TestLock_WithLock(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	lock := newTestLock(t, store, "guarded")

	executed := false
	err := lock.WithLock(ctx, func(ctx context.Context) error {
		executed = true

		// The lease is visible to other contenders while fn runs.
		contender := newTestLock(t, store, "guarded", WithMaxRetries(0))
		assert.False(t, contender.Acquire(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, executed)

	// Released on return.
	contender := newTestLock(t, store, "guarded", WithMaxRetries(0))
	assert.True(t, contender.Acquire(ctx))
}

func TestLock_WithLockReportsContention(t *testing.T) {
	store := newTestMemoryStore(t, 0)
	ctx := context.Background()

	holder := newTestLock(t, store, "busy")
	require.True(t, holder.Acquire(ctx))

	contender := newTestLock(t, store, "busy",
		WithMaxRetries(1), WithRetryDelay(time.Millisecond))

	err := contender.WithLock(ctx, func(ctx context.Context) error {
		t.Fatal("must not run while the lock is held elsewhere")
		return nil
	})
	assert.ErrorIs(t, err, types.ErrLockNotAcquired)
}
