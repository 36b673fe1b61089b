package extract

import (
	"log/slog"
	"time"

	"github.com/savagelysubtle/archivum/internal/cache"
	"github.com/savagelysubtle/archivum/internal/detect"
)

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCache wires a cache so repeated extractions of unchanged files
// reuse stored extractor output. Without it every run extracts fresh.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithDetector replaces the default magic-byte MIME detector.
func WithDetector(d detect.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// WithTimeout caps how long any single extractor may run. Expiry counts
// as that extractor failing; siblings keep running. Zero disables the
// cap.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLogger routes engine logging somewhere other than slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// ExtractOption adjusts a single ExtractOne call.
type ExtractOption func(*extractOptions)

type extractOptions struct {
	mimeType   string
	content    []byte
	extractors []Capability
}

// WithMIMEType skips detection and treats the file as mimeType.
func WithMIMEType(mimeType string) ExtractOption {
	return func(o *extractOptions) { o.mimeType = mimeType }
}

// WithContent supplies pre-loaded file content. Detection may sniff it
// when path-based detection is inconclusive, and content-capable
// extractors receive it instead of re-reading the file.
func WithContent(content []byte) ExtractOption {
	return func(o *extractOptions) { o.content = content }
}

// WithExtractors bypasses registry resolution and runs exactly the
// given extractors, in order, with default priority and no subtype
// filtering.
func WithExtractors(caps ...Capability) ExtractOption {
	return func(o *extractOptions) { o.extractors = caps }
}
