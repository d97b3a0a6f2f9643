package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"
)

// URLKey returns the SHA-256 hex digest of a URL for use as a storage key.
// Hashing keeps arbitrary query strings filesystem-safe and stable.
func URLKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", h)
}

// ListKey appends the fixed list suffix to a logical name.
func ListKey(id string) string {
	return id + "_urls"
}

// NewResponseCache caches raw response bodies keyed by SHA-256 of the
// request URL.
func NewResponseCache(dir string, ttl time.Duration) *Cache[json.RawMessage] {
	return New[json.RawMessage](dir, ttl, URLKey)
}

// NewListCache caches URL lists keyed by a logical name with a fixed suffix.
func NewListCache(dir string, ttl time.Duration) *Cache[[]string] {
	return New[[]string](dir, ttl, ListKey)
}
