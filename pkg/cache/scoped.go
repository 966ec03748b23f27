package cache

// ScopedKeyer wraps a Keyer with a prefix. Shared Redis databases use this
// to keep repomerge keys in their own namespace:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "repomerge:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// CatalogKey generates a prefixed key for an archive catalog.
func (k *ScopedKeyer) CatalogKey(sig, suffix string) string {
	return k.prefix + k.inner.CatalogKey(sig, suffix)
}
