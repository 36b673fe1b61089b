package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/savagelysubtle/archivum/internal/cache"
	"github.com/savagelysubtle/archivum/internal/detect"
	"github.com/savagelysubtle/archivum/internal/record"
)

// Engine coordinates a single file's journey through MIME detection,
// extractor selection, cached or fresh extraction, and field merging.
// Per-file and per-extractor problems degrade the resulting record
// instead of failing the run.
type Engine struct {
	registry *Registry
	cache    cache.Cache
	detector detect.Detector
	timeout  time.Duration
	log      *slog.Logger
}

// New creates an Engine resolving extractors from registry. By default
// it detects MIME types with magic-byte sniffing, runs without a cache,
// and places no deadline on individual extractors.
func New(registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		detector: detect.Magic{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractOne extracts metadata for the file at path. It always returns
// a record: missing files, failed detection, and failing extractors all
// embed their errors in the record, and the completion flag is the only
// verdict on whether the run was clean.
func (e *Engine) ExtractOne(ctx context.Context, path string, opts ...ExtractOption) (rec *record.Record) {
	var o extractOptions
	for _, opt := range opts {
		opt(&o)
	}
	start := time.Now()

	fi, statErr := os.Stat(path)
	if errors.Is(statErr, fs.ErrNotExist) {
		e.log.Error("file not found for extraction", "path", path)
		return record.NotFound(path)
	}

	rec = record.New(path, fi)
	if statErr != nil {
		rec.AddError(fmt.Sprintf("stat failed: %v", statErr))
		fi = nil
	}

	// Anything past this point that blows up must not escape to the
	// caller; the record absorbs it as the one overwriting error.
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("extraction panicked", "path", path, "panic", r)
			rec.Error = fmt.Sprintf("core extraction error: %v", r)
			rec.Complete = false
		}
	}()

	rec.MIMEType = e.resolveMIME(path, &o)

	selected := e.selectExtractors(rec.MIMEType, &o)
	if len(selected) == 0 {
		e.log.Info("no extractors for file", "path", path, "mime_type", rec.MIMEType)
		rec.Complete = true
		return rec
	}

	active := make([]Descriptor, 0, len(selected))
	for _, d := range selected {
		if d.Subtype != "" && !strings.Contains(rec.MIMEType, d.Subtype) {
			e.log.Debug("skipping extractor, subtype mismatch",
				"extractor", d.Capability.Name(), "subtype", d.Subtype, "mime_type", rec.MIMEType)
			continue
		}
		active = append(active, d)
	}

	outcomes := make([]outcome, len(active))
	var g errgroup.Group
	for i, d := range active {
		g.Go(func() error {
			outcomes[i] = e.runExtractor(ctx, d, path, fi, o.content)
			return nil
		})
	}
	_ = g.Wait()

	for _, out := range outcomes {
		if out.errMsg != "" {
			rec.AddError(out.errMsg)
		}
		rec.ExtractionTime += out.elapsed.Seconds()
	}

	// Merge in reverse dispatch order: the first-resolved extractor
	// (highest priority, earliest registration) writes last and wins any
	// contended record field, independent of completion order.
	for i := len(outcomes) - 1; i >= 0; i-- {
		if outcomes[i].fields != nil {
			rec.Merge(outcomes[i].name, outcomes[i].fields)
		}
	}

	rec.Complete = rec.Error == ""
	e.log.Info("extraction finished",
		"path", path,
		"mime_type", rec.MIMEType,
		"extractors", len(active),
		"complete", rec.Complete,
		"seconds", time.Since(start).Seconds(),
	)
	return rec
}

// resolveMIME applies the precedence: explicit override, path-based
// detection, content sniffing when the path answer is generic and
// content is at hand. An undetermined result is reported as "unknown";
// detection problems are never extraction errors.
func (e *Engine) resolveMIME(path string, o *extractOptions) string {
	if o.mimeType != "" {
		return o.mimeType
	}

	var mt string
	if e.detector != nil {
		detected, err := e.detector.DetectPath(path)
		if err != nil {
			e.log.Debug("mime detection failed", "path", path, "error", err)
		}
		mt = detected

		if sniffable(mt) && len(o.content) > 0 {
			if byContent, err := e.detector.DetectBytes(o.content); err == nil && byContent != "" {
				mt = byContent
			}
		}
	}

	if mt == "" {
		return "unknown"
	}
	return mt
}

func (e *Engine) selectExtractors(mimeType string, o *extractOptions) []Descriptor {
	if len(o.extractors) > 0 {
		selected := make([]Descriptor, 0, len(o.extractors))
		for _, c := range o.extractors {
			d := Descriptor{Capability: c, Priority: 1.0}
			if cc, ok := c.(ContentCapability); ok {
				d.Content = cc
			}
			selected = append(selected, d)
		}
		return selected
	}

	if mimeUndetermined(mimeType) {
		selected := e.registry.Resolve(Wildcard)
		if len(selected) > 0 {
			e.log.Debug("using fallback extractors, mime type undetermined", "mime_type", mimeType)
		}
		return selected
	}
	return e.registry.Resolve(mimeType)
}

// mimeUndetermined reports whether mimeType names nothing resolvable.
func mimeUndetermined(mimeType string) bool {
	return mimeType == "" || mimeType == "unknown" || mimeType == "error"
}

// sniffable additionally treats octet-stream as worth a content sniff;
// unlike "unknown" it still resolves through the registry as-is.
func sniffable(mimeType string) bool {
	return mimeUndetermined(mimeType) || mimeType == "application/octet-stream"
}

// cachedElapsedDefault stands in for entries recorded before elapsed
// times were stored with them.
const cachedElapsedDefault = 10 * time.Millisecond

type outcome struct {
	name      string
	fields    map[string]any
	elapsed   time.Duration
	errMsg    string
	fromCache bool
}

// runExtractor produces one extractor's outcome for the file: a cache
// replay when the stored entry matches the file's current state, a
// fresh (optionally deadline-bound) extraction otherwise. Fresh results
// are written back to the cache best-effort.
func (e *Engine) runExtractor(ctx context.Context, d Descriptor, path string, fi os.FileInfo, content []byte) (out outcome) {
	name := d.Capability.Name()
	out.name = name

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("extractor panicked", "extractor", name, "path", path, "panic", r)
			out.errMsg = fmt.Sprintf("unexpected error in %s for %s: %v", name, path, r)
			out.fields = nil
		}
	}()

	// Caching needs a stat snapshot for the key; without one this run
	// neither reads nor writes the cache.
	var key string
	if e.cache != nil && fi != nil {
		key = cacheKey(path, fi.ModTime(), fi.Size(), name, d.Capability.Version())
		entry, err := e.cache.Get(ctx, key)
		switch {
		case err == nil:
			e.log.Debug("cache hit", "extractor", name, "path", path)
			elapsed := entry.Elapsed
			if elapsed == 0 {
				elapsed = cachedElapsedDefault
			}
			return outcome{name: name, fields: entry.Fields, elapsed: elapsed, fromCache: true}
		case !errors.Is(err, cache.ErrNotFound):
			e.log.Warn("cache read failed", "extractor", name, "path", path, "error", err)
		}
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	e.log.Debug("running extractor", "extractor", name, "path", path)
	start := time.Now()
	var fields Fields
	var err error
	if d.Content != nil && content != nil {
		fields, err = d.Content.ExtractWithContent(runCtx, path, content)
	} else {
		fields, err = d.Capability.Extract(runCtx, path)
	}
	out.elapsed = time.Since(start)

	if err != nil {
		out.errMsg = describeFailure(name, path, err)
		e.log.Error("extractor failed", "extractor", name, "path", path, "error", err)
		return out
	}
	if fields == nil {
		e.log.Debug("extractor returned no fields", "extractor", name, "path", path)
		return out
	}
	out.fields = fields

	if key != "" {
		if err := e.cache.Put(ctx, key, cache.Entry{Fields: fields, Elapsed: out.elapsed}); err != nil {
			e.log.Warn("cache write failed", "extractor", name, "path", path, "error", err)
		}
	}
	return out
}

// describeFailure renders an extractor error as the record-facing
// message, classed by failure kind.
func describeFailure(name, path string, err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("extractor %s timed out for %s", name, path)
	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("extractor %s canceled for %s", name, path)
	case errors.Is(err, ErrUnsupported):
		return fmt.Sprintf("extractor %s not supported for %s", name, path)
	case isIOError(err):
		return fmt.Sprintf("i/o error in %s for %s: %v", name, path, err)
	default:
		return fmt.Sprintf("error in %s for %s: %v", name, path, err)
	}
}

func isIOError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr) ||
		errors.Is(err, fs.ErrNotExist) ||
		errors.Is(err, fs.ErrPermission)
}
