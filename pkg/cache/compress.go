package cache

import (
	"context"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Compressed stores zstd frames in an underlying cache. Dot sets are mostly
// float64 coordinates on a regular lattice, which compress well.
type Compressed struct {
	inner Cache

	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	err  error
}

// Compress wraps inner so that values are compressed on Set and
// decompressed on Get.
func Compress(inner Cache) *Compressed {
	return &Compressed{inner: inner}
}

func (c *Compressed) init() error {
	c.once.Do(func() {
		c.enc, c.err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if c.err != nil {
			return
		}
		c.dec, c.err = zstd.NewReader(nil)
	})
	return c.err
}

// Get retrieves and decompresses a value. A value that is not a valid zstd
// frame is deleted and reported as a miss.
func (c *Compressed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	if err := c.init(); err != nil {
		return nil, false, err
	}
	out, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		_ = c.inner.Delete(ctx, key)
		return nil, false, nil
	}
	return out, true, nil
}

// Set compresses data and stores it.
func (c *Compressed) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.init(); err != nil {
		return err
	}
	return c.inner.Set(ctx, key, c.enc.EncodeAll(data, nil), ttl)
}

// Delete removes a value from the underlying cache.
func (c *Compressed) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

// Close releases the codec and closes the underlying cache.
func (c *Compressed) Close() error {
	if c.dec != nil {
		c.dec.Close()
	}
	if c.enc != nil {
		_ = c.enc.Close()
	}
	return c.inner.Close()
}

var _ Cache = (*Compressed)(nil)
