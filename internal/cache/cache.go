// Handles get-or-compute caching on top of the storage layer.
//
// Each cache namespace is a single storage record holding every key of the
// namespace plus one expiry timestamp that covers all of them.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iTrooz/componentcache/internal/storage"
)

// ErrorPolicy decides what GetOrCompute does with cache read/write failures.
type ErrorPolicy string

const (
	// PolicySurface returns cache failures to the caller.
	PolicySurface ErrorPolicy = "surface"
	// PolicySuppress logs cache failures and carries on as if the cache missed.
	PolicySuppress ErrorPolicy = "suppress"
)

// ParseErrorPolicy converts a configuration value. Empty means PolicySurface.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "", PolicySurface:
		return PolicySurface, nil
	case PolicySuppress:
		return PolicySuppress, nil
	}
	return "", fmt.Errorf("unknown cache error policy %q", s)
}

// File is the content stored for one cache namespace.
type File struct {
	Data map[string]json.RawMessage `json:"data"`
	// ExpiredAtInMilliseconds is a unix timestamp in milliseconds; nil never
	// expires.
	ExpiredAtInMilliseconds *int64 `json:"expiredAtInMilliseconds"`
}

// Expired reports whether the whole file is expired at now.
func (f File) Expired(now time.Time) bool {
	return f.ExpiredAtInMilliseconds != nil && *f.ExpiredAtInMilliseconds <= now.UnixMilli()
}

// ExpiresAt returns the expiry time, if any.
func (f File) ExpiresAt() (time.Time, bool) {
	if f.ExpiredAtInMilliseconds == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*f.ExpiredAtInMilliseconds), true
}

// Keys returns the stored keys in sorted order, expired or not.
func (f File) Keys() []string {
	keys := make([]string, 0, len(f.Data))
	for k := range f.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cache is a TTL cache persisted through a storage.Store under
// storage.NamespaceCache. It holds no locks; concurrent writers to the same
// namespace race and the last write wins.
type Cache struct {
	store  *storage.Store
	policy ErrorPolicy
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithErrorPolicy sets the policy used by GetOrCompute.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(c *Cache) {
		c.policy = p
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache writing through store.
func New(store *storage.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		policy: PolicySurface,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FileKey is the logical storage key of a cache namespace.
func FileKey(ns string) string {
	return "cache-" + ns + ".json"
}

// Get returns the value stored under key. found is false when the key is
// absent, holds null, or when the namespace file is expired; expired data is
// left in place.
func Get[T any](ctx context.Context, c *Cache, ns, key string) (value T, found bool, err error) {
	file, err := c.reload(ctx, ns)
	if err != nil {
		return value, false, err
	}

	if file.Expired(c.now()) {
		logrus.Debugf("Cache namespace %s expired, ignoring key %s", ns, key)
		return value, false, nil
	}

	raw, ok := file.Data[key]
	if !ok || isNull(raw) {
		return value, false, nil
	}

	if err := json.Unmarshal(raw, &value); err != nil {
		var zero T
		return zero, false, fmt.Errorf("%w: cache %s key %s: %w", storage.ErrCorrupt, ns, key, err)
	}

	logrus.Debugf("Cache hit for %s/%s", ns, key)
	return value, true, nil
}

// Set stores value under key and replaces the expiry of the whole namespace:
// now+ttl when ttl is positive, never otherwise.
func (c *Cache) Set(ctx context.Context, ns, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value %s/%s: %w", ns, key, err)
	}

	file, err := c.reload(ctx, ns)
	if err != nil {
		return err
	}

	file.Data[key] = raw
	file.ExpiredAtInMilliseconds = nil
	if ttl > 0 {
		expiresAt := c.now().Add(ttl).UnixMilli()
		file.ExpiredAtInMilliseconds = &expiresAt
	}

	if err := c.persist(ctx, ns, file); err != nil {
		return err
	}

	logrus.Debugf("Cached %s/%s (ttl %s)", ns, key, ttl)
	return nil
}

// Inspect returns the namespace file as Get would see it.
func (c *Cache) Inspect(ctx context.Context, ns string) (File, error) {
	return c.reload(ctx, ns)
}

// reload reads the namespace file, initializing an empty one when absent, and
// writes it back.
func (c *Cache) reload(ctx context.Context, ns string) (File, error) {
	var file File

	rec, err := storage.Read[File](ctx, c.store, storage.NamespaceCache, FileKey(ns))
	switch {
	case err == nil:
		file = rec.Content
	case errors.Is(err, storage.ErrNotFound):
		logrus.Debugf("Initializing cache namespace %s", ns)
	default:
		return File{}, fmt.Errorf("failed to load cache namespace %s: %w", ns, err)
	}

	if file.Data == nil {
		file.Data = map[string]json.RawMessage{}
	}

	if err := c.persist(ctx, ns, file); err != nil {
		return File{}, err
	}
	return file, nil
}

func (c *Cache) persist(ctx context.Context, ns string, file File) error {
	rec := storage.Record[File]{Filename: FileKey(ns), Content: file}
	if err := storage.Write(ctx, c.store, storage.NamespaceCache, rec); err != nil {
		return fmt.Errorf("failed to save cache namespace %s: %w", ns, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
