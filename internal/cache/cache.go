package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Cache is the handle the services use. It wraps a Store and makes every
// store failure non-fatal: an unreachable cache means slower responses, never
// failed ones.
//
// KNOWN GAPS:
//   - Two requests missing the same key at the same moment both run the
//     compute function. Compute functions must therefore be free of side
//     effects; the duplicate work is wasted, but the result is the same.
//   - A compute that started before a write committed can Set its result
//     after the write's invalidation cleared the namespace. That stale entry
//     is served until its TTL runs out, so TTLs stay short.
type Cache struct {
	store  Store
	logger *slog.Logger
}

// New creates a Cache backed by store.
func New(store Store, logger *slog.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// GetOrCompute returns the cached value of (namespace, key) or, on a miss,
// calls compute, stores its result for ttl and returns it.
//
// It is a function rather than a method because Go methods cannot have
// their own type parameters.
func GetOrCompute[T any](ctx context.Context, c *Cache, namespace, key string, ttl time.Duration,
	compute func(context.Context) (T, error)) (T, error) {

	if raw, found, err := c.store.Get(ctx, namespace, key); err != nil {
		c.logger.Warn("cache read failed, computing value",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
	} else if found {
		var cached T
		err := json.Unmarshal(raw, &cached)
		if err == nil {
			return cached, nil
		}
		c.logger.Warn("discarding undecodable cache entry",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
	}

	value, err := compute(ctx)
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache value not encodable",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
		return value, nil
	}
	if err := c.store.Set(ctx, namespace, key, raw, ttl); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("namespace", namespace),
			slog.String("error", err.Error()),
		)
	}

	return value, nil
}

// Clear evicts a whole namespace.
func (c *Cache) Clear(ctx context.Context, namespace string) error {
	return c.store.Clear(ctx, namespace)
}

// Remove evicts key (and its subkeys) from namespace.
func (c *Cache) Remove(ctx context.Context, namespace, key string) error {
	return c.store.Remove(ctx, namespace, key)
}
