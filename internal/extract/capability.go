package extract

import (
	"context"
	"errors"
)

// Fields is the partial field set one extractor contributes to a record.
type Fields map[string]any

// ErrUnsupported signals that an extractor cannot handle the file it was
// given. It aggregates as an extraction failure without aborting the run.
var ErrUnsupported = errors.New("extraction not supported")

// Capability is a single metadata extractor. One instance serves every
// extraction run, so implementations must be safe for concurrent use
// and must not mutate the files they read.
type Capability interface {
	// Name identifies the extractor. Names take part in cache keys and
	// wildcard deduplication, so they must be stable and unique.
	Name() string

	// Version invalidates cached output when extraction logic changes.
	Version() string

	// Extract reads the file at path and returns the fields it derived.
	// Returning nil fields with a nil error is a valid "nothing to
	// contribute" outcome.
	Extract(ctx context.Context, path string) (Fields, error)
}

// ContentCapability is implemented by extractors that can work from
// already-loaded file content, sparing a second disk read. Support is
// resolved once at registration, never probed per call.
type ContentCapability interface {
	Capability
	ExtractWithContent(ctx context.Context, path string, content []byte) (Fields, error)
}
