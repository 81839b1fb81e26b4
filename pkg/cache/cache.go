// Package cache stores generated dot sets between runs.
//
// Generation is deterministic for a given image and parameter set, so the
// pipeline keys each [dots.Set] on the input hash plus every option that
// influences placement and reuses the stored bytes on a hit.
//
// # Backends
//
//   - [FileCache]: one file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for several machines
//   - [NullCache]: never stores anything (--no-cache)
//
// Any backend can be wrapped with [Compress] to store zstd frames.
//
// # Keys
//
// A [Keyer] turns inputs into cache keys. [DefaultKeyer] hashes the options
// with SHA-256; [ScopedKeyer] adds a namespace prefix.
//
// [dots.Set]: github.com/matzehuels/stipple/pkg/dots.Set
package cache

import (
	"context"
	"time"
)

// TTL values for cached entries.
const (
	// TTLDots is how long a generated dot set stays cached.
	TTLDots = 30 * 24 * time.Hour
)

// Cache is a byte store with optional expiry. A missing or expired entry is
// reported as a miss (false, nil), never as an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// DotsKey returns the key of a dot set generated from the image whose
	// content hash is inputHash.
	DotsKey(inputHash string, opts DotsKeyOpts) string
}

// DotsKeyOpts lists every option that changes a generated dot set.
type DotsKeyOpts struct {
	// Loading
	Width     int     `json:"width,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
	Grayscale bool    `json:"grayscale,omitempty"`

	// Generation
	Policy          string  `json:"policy"`
	MinDiameter     float64 `json:"min_diameter"`
	MaxDiameter     float64 `json:"max_diameter,omitempty"`
	DensityFactor   float64 `json:"density_factor"`
	Threshold       float64 `json:"threshold"`
	Invert          bool    `json:"invert,omitempty"`
	SamplesPerPixel int     `json:"samples_per_pixel"`
	DPI             float64 `json:"dpi"`
	TargetWidth     float64 `json:"target_width,omitempty"`
	Unit            string  `json:"unit"`
	Seed            uint64  `json:"seed"`
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// DotsKey implements Keyer.
func (DefaultKeyer) DotsKey(inputHash string, opts DotsKeyOpts) string {
	return hashKey("dots", inputHash, opts)
}
