package extract

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/savagelysubtle/archivum/internal/record"
)

func TestExtractMany_OrderPreserved(t *testing.T) {
	ext := &fakeExtractor{
		name: "txt",
		extractFn: func(ctx context.Context, path string) (Fields, error) {
			return Fields{"preview": path}, nil
		},
	}
	reg := NewRegistry()
	reg.Register(Wildcard, ext, 1.0, "")

	paths := make([]string, 5)
	for i := range paths {
		paths[i] = writeTestFile(t, "doc.txt", strings.Repeat("x", i+1))
	}
	// A missing file in the middle must degrade only its own slot.
	paths[2] = filepath.Join(t.TempDir(), "missing.txt")

	engine := quietEngine(reg)
	results := engine.ExtractMany(context.Background(), paths, 3)

	if len(results) != len(paths) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(paths))
	}
	for i, rec := range results {
		if rec == nil {
			t.Fatalf("results[%d] is nil", i)
		}
		if rec.Path != paths[i] {
			t.Errorf("results[%d].Path = %q, want %q", i, rec.Path, paths[i])
		}
	}
	if results[2].Error != "file not found" {
		t.Errorf("results[2].Error = %q, want %q", results[2].Error, "file not found")
	}
	for _, i := range []int{0, 1, 3, 4} {
		if !results[i].Complete {
			t.Errorf("results[%d].Complete = false, error: %q", i, results[i].Error)
		}
		if results[i].Preview != paths[i] {
			t.Errorf("results[%d].Preview = %q, want %q", i, results[i].Preview, paths[i])
		}
	}
}

func TestExtractMany_RespectsConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int64
	ext := &fakeExtractor{
		name: "slow",
		extractFn: func(ctx context.Context, path string) (Fields, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			inFlight.Add(-1)
			return Fields{}, nil
		},
	}
	reg := NewRegistry()
	reg.Register(Wildcard, ext, 1.0, "")

	paths := make([]string, 8)
	for i := range paths {
		paths[i] = writeTestFile(t, "doc.txt", "content")
	}

	engine := quietEngine(reg)
	results := engine.ExtractMany(context.Background(), paths, 2)

	if len(results) != 8 {
		t.Fatalf("len(results) = %d, want 8", len(results))
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrent extractions = %d, want <= 2", got)
	}
	if got := ext.calls.Load(); got != 8 {
		t.Errorf("total calls = %d, want 8", got)
	}
}

func TestExtractMany_ZeroLimitUsesDefault(t *testing.T) {
	ext := &fakeExtractor{name: "txt"}
	reg := NewRegistry()
	reg.Register(Wildcard, ext, 1.0, "")

	paths := []string{
		writeTestFile(t, "a.txt", "a"),
		writeTestFile(t, "b.txt", "b"),
	}

	engine := quietEngine(reg)
	results := engine.ExtractMany(context.Background(), paths, 0)

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	for i, rec := range results {
		if !rec.Complete {
			t.Errorf("results[%d].Complete = false, error: %q", i, rec.Error)
		}
	}
}

func TestExtractMany_EmptyPaths(t *testing.T) {
	engine := quietEngine(NewRegistry())
	if got := engine.ExtractMany(context.Background(), nil, 4); got != nil {
		t.Errorf("ExtractMany(nil) = %v, want nil", got)
	}
}

func TestExtractMany_CanceledContext(t *testing.T) {
	ext := &fakeExtractor{name: "txt"}
	reg := NewRegistry()
	reg.Register(Wildcard, ext, 1.0, "")

	paths := []string{
		writeTestFile(t, "a.txt", "a"),
		writeTestFile(t, "b.txt", "b"),
		writeTestFile(t, "c.txt", "c"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := quietEngine(reg)

	var results []*record.Record
	finished := make(chan struct{})
	go func() {
		results = engine.ExtractMany(ctx, paths, 2)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("ExtractMany did not return promptly after cancellation")
	}

	for i, rec := range results {
		if rec == nil {
			t.Fatalf("results[%d] is nil", i)
		}
		if rec.Complete {
			t.Errorf("results[%d].Complete = true, want false under a canceled context", i)
		}
		if !strings.Contains(rec.Error, "extraction canceled") {
			t.Errorf("results[%d].Error = %q, want a canceled marker", i, rec.Error)
		}
	}

	if got := ext.calls.Load(); got != 0 {
		t.Errorf("extractor calls = %d, want 0 under a canceled context", got)
	}
}
