package cache

// ScopedKeyer wraps a Keyer with a prefix so that several datasets or
// users can share one backend without colliding.
//
// Example usage:
//
//	// Keys for a shared Redis instance
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "stipple:v1:")
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

// DotsKey generates a prefixed key for dot set caching.
func (k *ScopedKeyer) DotsKey(inputHash string, opts DotsKeyOpts) string {
	return k.prefix + k.inner.DotsKey(inputHash, opts)
}
