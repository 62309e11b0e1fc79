package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/types"
)

const (
	DefaultLockTTL        = 30 * time.Second
	DefaultLockRetryDelay = 100 * time.Millisecond
	DefaultLockMaxRetries = 10
)

// Lock is a best-effort distributed mutex on top of the store. Each
// acquisition writes a unique token, and release deletes the key only when
// the token still matches, so an expired holder cannot release a lease
// re-acquired by another process.
type Lock struct {
	store      types.Store
	logger     types.Logger
	name       string
	key        string
	ttl        time.Duration
	retryDelay time.Duration
	maxRetries int
	token      []byte
}

type LockOption func(*Lock)

func WithLockTTL(ttl time.Duration) LockOption {
	return func(l *Lock) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithRetryDelay(delay time.Duration) LockOption {
	return func(l *Lock) {
		if delay > 0 {
			l.retryDelay = delay
		}
	}
}

func WithMaxRetries(retries int) LockOption {
	return func(l *Lock) {
		if retries >= 0 {
			l.maxRetries = retries
		}
	}
}

func NewLock(store types.Store, logger types.Logger, name string, opts ...LockOption) (*Lock, error) {
	if name == "" {
		return nil, types.ErrLockNameEmpty
	}

	lock := &Lock{
		store:      store,
		logger:     logger,
		name:       name,
		key:        "lock:" + name,
		ttl:        DefaultLockTTL,
		retryDelay: DefaultLockRetryDelay,
		maxRetries: DefaultLockMaxRetries,
	}

	for _, opt := range opts {
		opt(lock)
	}

	return lock, nil
}

// Acquire attempts to take the lock, retrying with a fixed delay up to the
// configured attempt budget. It returns false when every attempt loses the
// race or the context ends first.
func (l *Lock) Acquire(ctx context.Context) bool {
	for attempt := 0; attempt <= l.maxRetries; attempt++ {
		token := []byte(fmt.Sprintf("%s:%d", uuid.NewString(), time.Now().UnixNano()))

		acquired, err := l.store.Set(ctx, l.key, token, types.SetOptions{
			TTL:  l.ttl,
			Mode: types.SetIfAbsent,
		})
		if err != nil {
			l.logger.Warn("Lock acquisition attempt failed",
				zap.String("lock", l.name),
				zap.Error(err))
		} else if acquired {
			l.token = token
			return true
		}

		if attempt == l.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(l.retryDelay):
		}
	}

	return false
}

// Release frees the lock if this instance still owns it. Returns false when
// the lease already expired or was taken over.
func (l *Lock) Release(ctx context.Context) bool {
	if l.token == nil {
		return false
	}

	released, err := l.store.CompareAndDelete(ctx, l.key, l.token)
	if err != nil {
		l.logger.Warn("Lock release failed",
			zap.String("lock", l.name),
			zap.Error(err))
		return false
	}

	l.token = nil

	if !released {
		l.logger.Debug("Lock already expired or taken over",
			zap.String("lock", l.name))
	}

	return released
}

// WithLock runs fn while holding the lock. The release uses a fresh
// short-lived context so fn cancelling its own context cannot leave the
// lease dangling until the TTL.
func (l *Lock) WithLock(ctx context.Context, fn func(ctx context.Context) error) error {
	if !l.Acquire(ctx) {
		return types.Errorf(types.ErrLockNotAcquired, "lock %q", l.name)
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.Release(releaseCtx)
	}()

	return fn(ctx)
}
