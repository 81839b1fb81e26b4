package encode

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/observability"
)

// DotWriter renders one text format into a batch buffer.
type DotWriter interface {
	WriteHeader(buf *bytes.Buffer)
	WriteDot(buf *bytes.Buffer, d dots.Dot)
	WriteTrailer(buf *bytes.Buffer)
}

type flusher interface{ Flush() error }

type syncer interface{ Sync() error }

// BatchWriter streams dots to a sink in bounded batches. Each batch is
// rendered into a reused buffer, written with a single Write call and then
// flushed (and optionally synced) before the next batch is rendered.
type BatchWriter struct {
	w    io.Writer
	size int
	sync bool
	buf  bytes.Buffer

	flushed int
	batches int
	written int64

	// OnBatch, when set, is called after every committed batch.
	OnBatch func(flushed int, written int64)
}

// NewBatchWriter returns a writer that commits size dots at a time.
func NewBatchWriter(w io.Writer, size int, sync bool) *BatchWriter {
	return &BatchWriter{w: w, size: max(1, size), sync: sync}
}

// Flushed returns the number of dots committed to the sink.
func (b *BatchWriter) Flushed() int { return b.flushed }

// Batches returns the number of committed dot batches.
func (b *BatchWriter) Batches() int { return b.batches }

// Written returns the number of bytes accepted by the sink.
func (b *BatchWriter) Written() int64 { return b.written }

// Stream writes the header, every dot in batches, and the trailer.
// It stops at the first write failure or when ctx is done; bytes committed
// before that point are left as they are.
func (b *BatchWriter) Stream(ctx context.Context, ds []dots.Dot, dw DotWriter) error {
	dw.WriteHeader(&b.buf)
	if err := b.commit(0); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write header")
	}

	for start := 0; start < len(ds); start += b.size {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(errors.ErrCodeCanceled, err, "canceled after %d of %d dots", b.flushed, len(ds))
		}
		end := min(start+b.size, len(ds))
		for _, d := range ds[start:end] {
			dw.WriteDot(&b.buf, d)
		}
		if err := b.commit(end - start); err != nil {
			return errors.Wrap(errors.ErrCodeIO, err, "write batch %d", b.batches+1)
		}
		b.batches++
		if b.OnBatch != nil {
			b.OnBatch(b.flushed, b.written)
		}
	}

	dw.WriteTrailer(&b.buf)
	if err := b.commit(0); err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "write trailer")
	}
	return nil
}

func (b *BatchWriter) commit(n int) error {
	if b.buf.Len() > 0 {
		m, err := b.w.Write(b.buf.Bytes())
		b.written += int64(m)
		b.buf.Reset()
		if err != nil {
			return err
		}
	}
	if f, ok := b.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	if s, ok := b.w.(syncer); ok && b.sync {
		if err := s.Sync(); err != nil {
			return err
		}
	}
	b.flushed += n
	return nil
}

// vectorEncoder drives a format-specific DotWriter through a BatchWriter.
type vectorEncoder struct {
	format    Format
	opts      options
	newWriter func(set dots.Set, o options) DotWriter
}

func (e *vectorEncoder) Format() Format { return e.format }

func (e *vectorEncoder) Encode(ctx context.Context, w io.Writer, set dots.Set) (stats Stats, err error) {
	stats = Stats{Format: e.format, Dots: set.Len()}
	if err := set.Validate(); err != nil {
		return stats, err
	}

	hooks := observability.Encode()
	hooks.OnEncodeStart(ctx, string(e.format), set.Len())
	start := time.Now()

	bw := NewBatchWriter(w, e.opts.batchSize, e.opts.sync)
	bw.OnBatch = func(flushed int, written int64) {
		hooks.OnBatch(ctx, string(e.format), flushed, written)
	}
	err = bw.Stream(ctx, set.Dots, e.newWriter(set, e.opts))

	stats.Flushed = bw.Flushed()
	stats.Batches = bw.Batches()
	stats.Bytes = bw.Written()
	stats.Duration = time.Since(start)
	hooks.OnEncodeComplete(ctx, string(e.format), stats.Flushed, stats.Bytes, stats.Duration, err)
	return stats, err
}
