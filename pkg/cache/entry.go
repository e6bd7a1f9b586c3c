package cache

import (
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
)

// DefaultTTL is used when a fetcher is configured without one.
const DefaultTTL = 10 * time.Minute

// Entry represents a cached batch.
type Entry struct {
	// Batch is the cached fetch result
	Batch pagination.Batch `json:"batch"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`

	// CachedAt is when the batch was stored
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry wraps batch with an expiry ttl from now.
func NewEntry(batch pagination.Batch, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Batch:    batch,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
