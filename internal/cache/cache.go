// Package cache provides a file-backed TTL cache. Each entry lives in its own
// JSON file under the cache directory. The cache is a best-effort
// optimization: reads never fail (corruption degrades to a miss) and write
// failures are logged, not raised.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// KeyFunc derives the storage key (file basename) for a logical identifier.
// Flavors fix their own derivation: response caches hash the URL, list caches
// append a fixed suffix.
type KeyFunc func(id string) string

// Metadata describes a stored entry without deserializing its payload.
type Metadata struct {
	CachedAt time.Time     `json:"cached_at"`
	Age      time.Duration `json:"age"`
	Expired  bool          `json:"expired"`
}

// entry is the on-disk representation: one file per identifier.
type entry struct {
	CachedAt   string          `json:"cached_at"`
	Identifier string          `json:"identifier"`
	Data       json.RawMessage `json:"data"`
}

// Cache stores values of one declared type, keyed by identifier, with expiry.
type Cache[T any] struct {
	dir string
	ttl time.Duration
	key KeyFunc
	log *zap.Logger
}

// New creates a cache rooted at dir with the given TTL and key derivation.
// A TTL of zero means entries expire as soon as any measurable time has
// elapsed since the write.
func New[T any](dir string, ttl time.Duration, key KeyFunc) *Cache[T] {
	return &Cache[T]{
		dir: dir,
		ttl: ttl,
		key: key,
		log: zap.L().With(zap.String("component", "cache")),
	}
}

// Get returns the cached value for id. forceRefresh bypasses storage entirely
// and always reports a miss. Missing, expired, or malformed entries are
// misses; malformed entries additionally emit a warning. Get never fails.
func (c *Cache[T]) Get(id string, forceRefresh bool) (T, bool) {
	var zero T
	if forceRefresh {
		return zero, false
	}

	e, cachedAt, ok := c.read(id)
	if !ok {
		return zero, false
	}
	if c.expired(cachedAt) {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		c.log.Warn("cache entry payload malformed, treating as miss",
			zap.String("id", id), zap.Error(err))
		return zero, false
	}
	return v, true
}

// Set serializes v and stores it with cached_at = now, overwriting any prior
// entry. I/O and serialization failures are logged, never returned.
func (c *Cache[T]) Set(id string, v T) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("cache write skipped: marshal payload",
			zap.String("id", id), zap.Error(err))
		return
	}

	e := entry{
		CachedAt:   time.Now().UTC().Format(time.RFC3339Nano),
		Identifier: id,
		Data:       data,
	}
	raw, err := json.Marshal(e)
	if err != nil {
		c.log.Warn("cache write skipped: marshal entry",
			zap.String("id", id), zap.Error(err))
		return
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.log.Warn("cache write failed: create dir",
			zap.String("dir", c.dir), zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path(id), raw, 0o644); err != nil {
		c.log.Warn("cache write failed",
			zap.String("id", id), zap.Error(err))
	}
}

// Clear removes the entry for id if present; no-op otherwise.
func (c *Cache[T]) Clear(id string) {
	if err := os.Remove(c.path(id)); err != nil && !os.IsNotExist(err) {
		c.log.Warn("cache clear failed", zap.String("id", id), zap.Error(err))
	}
}

// IsValid reports whether an unexpired entry exists for id. It agrees exactly
// with Get: IsValid(id) == (Get(id, false) hit).
func (c *Cache[T]) IsValid(id string) bool {
	e, cachedAt, ok := c.read(id)
	if !ok || c.expired(cachedAt) {
		return false
	}
	var v T
	return json.Unmarshal(e.Data, &v) == nil
}

// GetMetadata returns read-only introspection of the entry for id, or false
// when no parseable entry exists. Expiry uses the same duration comparison
// as Get and IsValid.
func (c *Cache[T]) GetMetadata(id string) (Metadata, bool) {
	_, cachedAt, ok := c.read(id)
	if !ok {
		return Metadata{}, false
	}
	return Metadata{
		CachedAt: cachedAt,
		Age:      time.Since(cachedAt),
		Expired:  c.expired(cachedAt),
	}, true
}

// read loads and parses the on-disk entry. Corruption is a warning + miss.
func (c *Cache[T]) read(id string) (entry, time.Time, bool) {
	raw, err := os.ReadFile(c.path(id))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("cache read failed", zap.String("id", id), zap.Error(err))
		}
		return entry{}, time.Time{}, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.log.Warn("cache entry malformed, treating as miss",
			zap.String("id", id), zap.Error(err))
		return entry{}, time.Time{}, false
	}

	cachedAt, err := time.Parse(time.RFC3339Nano, e.CachedAt)
	if err != nil {
		c.log.Warn("cache entry timestamp malformed, treating as miss",
			zap.String("id", id), zap.String("cached_at", e.CachedAt))
		return entry{}, time.Time{}, false
	}
	return e, cachedAt, true
}

// expired compares with full duration precision: an entry is valid iff
// now - cached_at <= ttl. With ttl == 0 any measurable elapsed time expires
// the entry.
func (c *Cache[T]) expired(cachedAt time.Time) bool {
	return time.Since(cachedAt) > c.ttl
}

func (c *Cache[T]) path(id string) string {
	return filepath.Join(c.dir, c.key(id)+".json")
}
