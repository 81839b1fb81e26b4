package pipeline

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stipple/pkg/cache"
	"github.com/matzehuels/stipple/pkg/dots"
	"github.com/matzehuels/stipple/pkg/encode"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/observability"
	"github.com/matzehuels/stipple/pkg/pixels"
	"github.com/matzehuels/stipple/pkg/stipple"
)

// keyTypeDots labels dot-set cache events for observability hooks.
const keyTypeDots = "dots"

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Input is a loaded but not yet decoded image.
type Input struct {
	Path string
	Data []byte
	Hash string
}

// Execute runs the complete load → generate → encode pipeline with caching.
// On an encode failure the result is still returned so callers can report
// which files were written and how far the failed ones got.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	opts.Logger = opts.Logger.With("run", uuid.NewString())

	result := &Result{
		Files:  make(map[encode.Format]string),
		Failed: make(map[encode.Format]error),
	}

	// Stage 1: Load
	loadStart := time.Now()
	in, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.InputHash = in.Hash
	result.Stats.LoadTime = time.Since(loadStart)

	opts.Logger.Info("loaded image",
		"path", in.Path,
		"bytes", len(in.Data),
		"duration", result.Stats.LoadTime)

	// Stage 2: Generate
	genStart := time.Now()
	set, hit, err := r.GenerateWithCacheInfo(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	result.Set = set
	result.Stats.GenerateTime = time.Since(genStart)
	result.Stats.DotCount = set.Len()
	result.CacheInfo.DotsHit = hit

	opts.Logger.Info("generated dots",
		"policy", opts.Params.Policy,
		"dots", set.Len(),
		"cached", hit,
		"duration", result.Stats.GenerateTime)

	// Stage 3: Encode
	encStart := time.Now()
	formats, stats, errs, err := r.encodeAll(ctx, set, opts)
	if err != nil {
		return nil, err
	}
	result.Encodes = stats
	result.Stats.EncodeTime = time.Since(encStart)
	for i, f := range formats {
		if errs[i] != nil {
			result.Failed[f] = errs[i]
			continue
		}
		result.Files[f] = opts.OutputPath(f)
	}
	if err := stderrors.Join(errs...); err != nil {
		return result, err
	}

	opts.Logger.Info("encoded outputs",
		"formats", opts.Formats,
		"duration", result.Stats.EncodeTime)

	return result, nil
}

// Load reads the input image. The bytes are hashed for cache lookups and
// decoded only when generation misses the cache.
func (r *Runner) Load(ctx context.Context, opts Options) (*Input, error) {
	if err := opts.ValidateForLoad(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCanceled, err, "load %s", opts.Input)
	}

	data, err := os.ReadFile(opts.Input)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", opts.Input)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", opts.Input)
	}
	return &Input{Path: opts.Input, Data: data, Hash: cache.Hash(data)}, nil
}

// GenerateWithCacheInfo produces the dot set for in, consulting the cache
// first unless opts.Refresh is set. It reports whether the set came from
// the cache.
func (r *Runner) GenerateWithCacheInfo(ctx context.Context, in *Input, opts Options) (dots.Set, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForGenerate(); err != nil {
		return dots.Set{}, false, err
	}

	cacheKey := r.Keyer.DotsKey(in.Hash, opts.DotsKeyOpts())
	hooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		data, hit, err := r.Cache.Get(ctx, cacheKey)
		if err != nil {
			opts.Logger.Debug("cache read failed", "err", err)
		}
		if err == nil && hit {
			var set dots.Set
			if err := set.UnmarshalBinary(data); err == nil {
				hooks.OnCacheHit(ctx, keyTypeDots)
				return set, true, nil // Cache hit
			}
			// If deserialization fails, fall through to regenerate
			opts.Logger.Debug("discarding unreadable cache entry", "key", cacheKey)
		}
		hooks.OnCacheMiss(ctx, keyTypeDots)
	}

	grid, err := pixels.Decode(bytes.NewReader(in.Data), filepath.Ext(in.Path), opts.LoadOptions())
	if err != nil {
		return dots.Set{}, false, err
	}
	opts.Logger.Debug("decoded image", "width", grid.Width, "height", grid.Height)

	set, err := stipple.Generate(ctx, grid, opts.Params)
	if err != nil {
		return dots.Set{}, false, err
	}

	// Cache the result
	if data, err := set.MarshalBinary(); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.TTLDots); err != nil {
			opts.Logger.Warn("cache write failed", "err", err)
		} else {
			hooks.OnCacheSet(ctx, keyTypeDots, len(data))
		}
	}

	return set, false, nil // Cache miss
}

// Generate is a convenience wrapper that calls GenerateWithCacheInfo and discards the cache hit info.
func (r *Runner) Generate(ctx context.Context, in *Input, opts Options) (dots.Set, error) {
	set, _, err := r.GenerateWithCacheInfo(ctx, in, opts)
	return set, err
}

// Encode writes set to opts.OutputPath for every requested format. Encoders
// run concurrently, bounded by opts.Workers, and share set read-only. A
// failing encoder does not stop the others; all failures are joined.
// The returned stats follow opts.Formats order.
func (r *Runner) Encode(ctx context.Context, set dots.Set, opts Options) ([]encode.Stats, error) {
	_, stats, errs, err := r.encodeAll(ctx, set, opts)
	if err != nil {
		return nil, err
	}
	return stats, stderrors.Join(errs...)
}

// encodeAll runs one encoder per format and keeps each format's error
// apart. err reports invalid options only.
func (r *Runner) encodeAll(ctx context.Context, set dots.Set, opts Options) ([]encode.Format, []encode.Stats, []error, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForEncode(); err != nil {
		return nil, nil, nil, err
	}
	formats, err := encode.ParseFormats(opts.Formats)
	if err != nil {
		return nil, nil, nil, err
	}

	stats := make([]encode.Stats, len(formats))
	errs := make([]error, len(formats))

	var g errgroup.Group
	g.SetLimit(max(1, opts.Workers))
	for i, f := range formats {
		g.Go(func() error {
			stats[i], errs[i] = r.encodeFile(ctx, set, f, opts)
			return nil
		})
	}
	_ = g.Wait()

	return formats, stats, errs, nil
}

// EncodeTo writes set to w in format f.
func (r *Runner) EncodeTo(ctx context.Context, w io.Writer, set dots.Set, f encode.Format, opts Options) (encode.Stats, error) {
	r.applyLogger(&opts)
	opts.SetGenerateDefaults()
	opts.SetEncodeDefaults()

	enc, err := encode.New(f, opts.EncodeOptions(set)...)
	if err != nil {
		return encode.Stats{Format: f, Dots: set.Len()}, err
	}
	st, err := enc.Encode(ctx, w, set)
	if err != nil {
		opts.Logger.Error("encode failed",
			"format", f,
			"flushed", st.Flushed,
			"dots", st.Dots,
			"err", err)
		return st, err
	}
	opts.Logger.Info("encoded",
		"format", f,
		"dots", st.Dots,
		"batches", st.Batches,
		"bytes", st.Bytes,
		"duration", st.Duration)
	return st, nil
}

func (r *Runner) encodeFile(ctx context.Context, set dots.Set, f encode.Format, opts Options) (encode.Stats, error) {
	path := opts.OutputPath(f)
	empty := encode.Stats{Format: f, Dots: set.Len()}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return empty, errors.Wrap(errors.ErrCodeIO, err, "create directory for %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return empty, errors.Wrap(errors.ErrCodeIO, err, "create %s", path)
	}
	sink := newFileSink(file)

	st, err := r.EncodeTo(ctx, sink, set, f, opts)
	if ferr := sink.Flush(); ferr != nil && err == nil {
		err = errors.Wrap(errors.ErrCodeIO, ferr, "flush %s", path)
	}
	if cerr := file.Close(); cerr != nil && err == nil {
		err = errors.Wrap(errors.ErrCodeIO, cerr, "close %s", path)
	}
	return st, err
}

// fileSink buffers writes to a file. It exposes Flush and Sync so the
// batch writer can commit each batch to disk.
type fileSink struct {
	*bufio.Writer
	f *os.File
}

func newFileSink(f *os.File) *fileSink {
	return &fileSink{Writer: bufio.NewWriterSize(f, 64<<10), f: f}
}

// Sync flushes buffered bytes and syncs the file.
func (s *fileSink) Sync() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.f.Sync()
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
