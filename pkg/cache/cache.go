// Package cache provides response caching for repeated archive inspection.
//
// Scanning a large repository archive's central directory is cheap but not
// free; commands that inspect the same archives repeatedly (inspect, diff,
// report) memoize their catalogs here, keyed by an archive signature that
// changes whenever the file on disk does.
//
// # Backends
//
// Three implementations of [Cache] are provided:
//   - [FileCache]: JSON entries under a directory, the CLI default
//   - [RedisCache]: shared Redis instance for teams mirroring the same archives
//   - [NullCache]: caching disabled (--no-cache)
//
// # Keys
//
// Keys are produced by a [Keyer] so that key layout stays in one place.
// [ScopedKeyer] prefixes every key, which keeps shared Redis databases tidy.
package cache

import (
	"context"
	"time"
)

// TTL values for cached data.
const (
	// TTLCatalog is how long a scanned archive catalog stays valid. The key
	// already embeds the archive's size and mtime, so entries only expire to
	// bound disk usage, not for correctness.
	TTLCatalog = 7 * 24 * time.Hour
)

// Cache is the interface implemented by all cache backends.
//
// Get returns (data, true, nil) on a hit and (nil, false, nil) on a miss;
// errors are reserved for backend failures. A ttl of 0 in Set stores the
// entry without expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer generates cache keys for the data repomerge caches.
type Keyer interface {
	// CatalogKey generates the key for a scanned archive catalog. sig is the
	// archive's file signature (see [Signature]); suffix is the member
	// filename suffix the scan selected on.
	CatalogKey(sig, suffix string) string
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// CatalogKey generates a key for an archive catalog.
func (k *DefaultKeyer) CatalogKey(sig, suffix string) string {
	return hashKey("catalog", sig, suffix)
}
