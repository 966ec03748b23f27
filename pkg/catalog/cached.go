package catalog

import (
	"context"
	"encoding/json"

	"repomerge/pkg/archive"
	"repomerge/pkg/cache"
)

// CachedScan is [Scan] memoized under the archive's file signature. A
// signature covers path, size, and mtime, so a rewritten archive misses and
// is rescanned. The bool result reports whether the catalog came from the
// cache.
func CachedScan(ctx context.Context, c cache.Cache, keyer cache.Keyer, path, suffix string) (*Catalog, bool, error) {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if suffix == "" {
		suffix = archive.DefaultSuffix
	}

	sig, sigErr := cache.Signature(path)
	if sigErr != nil {
		// Unreadable archives fail in Scan with the proper error code.
		cat, err := Scan(path, suffix)
		return cat, false, err
	}
	key := keyer.CatalogKey(sig, suffix)

	if data, hit, err := c.Get(ctx, key); err == nil && hit {
		var cached Catalog
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, true, nil
		}
		// A corrupt entry falls through to a rescan.
	}

	cat, err := Scan(path, suffix)
	if err != nil {
		return nil, false, err
	}
	if data, err := json.Marshal(cat); err == nil {
		_ = c.Set(ctx, key, data, cache.TTLCatalog)
	}
	return cat, false, nil
}
