package cache

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/voyagekit/tripcache/types"
)

// OperationFunc produces the value the cache stands in front of.
type OperationFunc func(ctx context.Context) (interface{}, error)

// Call describes one invocation of a cached operation. Query and the
// arguments make up the cache key; SkipCache forces a fresh execution
// without touching the stored entry.
type Call struct {
	Query     string
	Args      []interface{}
	KV        map[string]interface{}
	SkipCache bool
}

// Operation wraps a named function with read-through caching. A cache or
// backend failure degrades to calling the function directly.
type Operation struct {
	cache       *Cache
	name        string
	contentType types.ContentType
	ttl         time.Duration
	excluded    map[string]struct{}
}

type OperationOption func(*Operation)

// WithContentType pins the operation's content category instead of
// classifying each query.
func WithContentType(contentType types.ContentType) OperationOption {
	return func(o *Operation) {
		o.contentType = contentType
	}
}

func WithTTL(ttl time.Duration) OperationOption {
	return func(o *Operation) {
		o.ttl = ttl
	}
}

// WithExcludedKeys names keyword arguments that do not influence the result,
// such as trace identifiers, so they do not fragment the key space.
func WithExcludedKeys(keys ...string) OperationOption {
	return func(o *Operation) {
		for _, key := range keys {
			o.excluded[key] = struct{}{}
		}
	}
}

func (c *Cache) NewOperation(name string, opts ...OperationOption) *Operation {
	op := &Operation{
		cache:    c,
		name:     name,
		excluded: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(op)
	}

	return op
}

// Do executes the operation through the cache. dest receives the result on
// both the hit and the miss path. Empty results are returned to the caller
// but never stored, so a transient upstream outage cannot poison the cache.
func (o *Operation) Do(ctx context.Context, call Call, dest interface{}, fn OperationFunc) error {
	if !o.cache.enabled || call.SkipCache {
		return o.execute(ctx, call, dest, fn, false)
	}

	key := o.buildKey(call)
	if o.cache.Get(ctx, key, dest) {
		return nil
	}

	return o.execute(ctx, call, dest, fn, true)
}

func (o *Operation) execute(ctx context.Context, call Call, dest interface{}, fn OperationFunc, store bool) error {
	result, err := fn(ctx)
	if err != nil {
		return err
	}

	if assignErr := assign(dest, result); assignErr != nil {
		return assignErr
	}

	if !store || isEmptyResult(result) {
		return nil
	}

	contentType := o.contentType
	if contentType == "" && o.ttl == 0 {
		contentType = Classify(call.Query, nil)
	}

	setErr := o.cache.Set(ctx, o.buildKey(call), result, types.SetOptions{
		TTL:         o.ttl,
		ContentType: contentType,
	})
	if setErr != nil {
		o.cache.logger.Warn("Failed to store operation result",
			zap.String("operation", o.name),
			zap.Error(setErr))
	}

	return nil
}

func (o *Operation) buildKey(call Call) string {
	kv := call.KV
	if len(o.excluded) > 0 && len(kv) > 0 {
		kv = make(map[string]interface{}, len(call.KV))
		for name, value := range call.KV {
			if _, skip := o.excluded[name]; !skip {
				kv[name] = value
			}
		}
	}

	return GenerateKey(o.name, call.Query, call.Args, kv)
}

// assign copies result into the pointer dest without a serialization round
// trip when the types line up.
func assign(dest, result interface{}) error {
	if dest == nil {
		return nil
	}

	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr || destValue.IsNil() {
		return types.Errorf(types.ErrSerializationFailed, "destination must be a non-nil pointer")
	}

	resultValue := reflect.ValueOf(result)
	if result == nil {
		destValue.Elem().Set(reflect.Zero(destValue.Elem().Type()))
		return nil
	}

	if !resultValue.Type().AssignableTo(destValue.Elem().Type()) {
		return types.Errorf(types.ErrSerializationFailed,
			"cannot assign %T to %s", result, destValue.Elem().Type())
	}

	destValue.Elem().Set(resultValue)
	return nil
}

// isEmptyResult reports values that carry no information worth caching.
func isEmptyResult(result interface{}) bool {
	if result == nil {
		return true
	}

	switch v := result.(type) {
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}

	value := reflect.ValueOf(result)
	switch value.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return value.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return value.IsNil()
	}

	return false
}
