package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/stipple/pkg/observability"
)

// syncBuffer guards a bytes.Buffer shared with the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerBasic(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "Testing...")
	s.Start()
	time.Sleep(3 * spinnerInterval)
	s.Stop()

	if !strings.Contains(out.String(), "Testing...") {
		t.Errorf("spinner output = %q, want message", out.String())
	}
	if s.Cancelled() {
		t.Error("Stop() should not count as cancellation")
	}
}

func TestSpinnerSetMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "first")
	s.Start()
	s.SetMessage("second")
	time.Sleep(3 * spinnerInterval)
	s.Stop()

	if got := s.Message(); got != "second" {
		t.Errorf("Message() = %q, want %q", got, "second")
	}
	if !strings.Contains(out.String(), "second") {
		t.Errorf("spinner output = %q, want updated message", out.String())
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinner(ctx, io.Discard, "Testing with context...")
	s.Start()
	cancel()
	time.Sleep(2 * spinnerInterval)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerStopIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), io.Discard, "Testing idempotent stop...")
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner(context.Background(), io.Discard, "never started")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked on a spinner that was never started")
	}
}

func TestTrackEncodes(t *testing.T) {
	defer observability.Reset()

	s := newSpinner(context.Background(), io.Discard, "Rendering")
	restore := trackEncodes(s, "in.png")

	ctx := context.Background()
	hooks := observability.Encode()
	hooks.OnEncodeStart(ctx, "svg", 100)
	hooks.OnEncodeStart(ctx, "plt", 100)
	hooks.OnBatch(ctx, "svg", 40, 1024)
	hooks.OnEncodeComplete(ctx, "plt", 100, 2048, time.Millisecond, nil)

	if got, want := s.Message(), "Encoding in.png: 140/200 dots (2 formats)"; got != want {
		t.Errorf("Message() = %q, want %q", got, want)
	}

	restore()
	if _, ok := observability.Encode().(*encodeProgress); ok {
		t.Error("restore() left the progress hooks installed")
	}
}
