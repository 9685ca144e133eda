package cache

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// GetOrCompute returns the cached value for ns/key, or calls produce and
// caches its result with ttl. produce runs at most once per call and a
// failing produce leaves the cache untouched. Concurrent callers are not
// coalesced. Cache failures are returned or logged according to the cache's
// ErrorPolicy.
func GetOrCompute[T any](ctx context.Context, c *Cache, ns, key string, ttl time.Duration, produce func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	cached, found, err := Get[T](ctx, c, ns, key)
	switch {
	case err != nil && c.policy != PolicySuppress:
		return zero, err
	case err != nil:
		logrus.Warnf("Ignoring cache read failure for %s/%s: %v", ns, key, err)
	case found:
		return cached, nil
	}

	value, err := produce(ctx)
	if err != nil {
		return zero, err
	}

	if err := c.Set(ctx, ns, key, value, ttl); err != nil {
		if c.policy != PolicySuppress {
			return zero, err
		}
		logrus.Warnf("Ignoring cache write failure for %s/%s: %v", ns, key, err)
	}

	return value, nil
}
