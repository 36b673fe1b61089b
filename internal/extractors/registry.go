package extractors

import (
	"github.com/savagelysubtle/archivum/internal/extract"
)

// DefaultRegistry wires the built-in extractors. Format-specific
// extractors outrank the generic text pass, and the digest fallback
// runs for every file. maxContentBytes caps how much content the
// text-bearing extractors read; zero applies their defaults.
func DefaultRegistry(maxContentBytes int64) *extract.Registry {
	reg := extract.NewRegistry()
	reg.Register("text/*", Text{MaxContentBytes: maxContentBytes}, 1.0, "")
	reg.Register("text/html", HTML{MaxContentBytes: maxContentBytes}, 5.0, "")
	reg.Register("application/xhtml+xml", HTML{MaxContentBytes: maxContentBytes}, 5.0, "")
	reg.Register("application/pdf", PDF{MaxContentBytes: maxContentBytes}, 5.0, "")
	reg.Register("image/*", Image{}, 1.0, "")
	reg.Register(extract.Wildcard, Digest{}, 0.5, "")
	return reg
}
