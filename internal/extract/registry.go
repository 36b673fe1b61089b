package extract

import (
	"sort"
	"strings"
	"sync"
)

// Wildcard matches any MIME type. Extractors registered under it form
// the fallback tier that still runs when detection comes up empty.
const Wildcard = "*/*"

// Descriptor is a registered extractor together with its selection
// metadata.
type Descriptor struct {
	Capability Capability

	// Content is non-nil when the capability supports direct-content
	// extraction. Resolved by type assertion at registration.
	Content ContentCapability

	// Priority orders extractors within a resolution; higher values run
	// their field merges with precedence.
	Priority float64

	// Subtype, when set, restricts the extractor to MIME types that
	// contain the string (e.g. "json" narrows a text/* registration to
	// JSON-ish types).
	Subtype string
}

// Registry indexes extractors by the MIME type patterns they handle.
// Registration happens at startup; everything afterwards is read-only
// resolution, safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]Descriptor)}
}

// Register adds c under mimeType, which may be an exact type
// ("text/html"), a primary wildcard ("text/*"), or the universal
// Wildcard. Each per-type list stays sorted by descending priority,
// with ties keeping registration order.
func (r *Registry) Register(mimeType string, c Capability, priority float64, subtype string) {
	d := Descriptor{Capability: c, Priority: priority, Subtype: subtype}
	if cc, ok := c.(ContentCapability); ok {
		d.Content = cc
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.byType[mimeType], d)
	sort.SliceStable(list, func(i, j int) bool { return list[i].Priority > list[j].Priority })
	r.byType[mimeType] = list
}

// Resolve returns the extractors selected for mimeType in three tiers:
// exact match, primary wildcard ("text/*" for "text/csv"), then the
// universal fallback. Later tiers never re-add an extractor whose name
// was already selected, and the merged result is ordered by descending
// priority with ties preserving tier and registration order.
func (r *Registry) Resolve(mimeType string) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []Descriptor
	seen := make(map[string]bool)
	addTier := func(key string) {
		for _, d := range r.byType[key] {
			name := d.Capability.Name()
			if seen[name] {
				continue
			}
			seen[name] = true
			found = append(found, d)
		}
	}

	addTier(mimeType)
	if primary := primaryWildcard(mimeType); primary != "" && primary != mimeType {
		addTier(primary)
	}
	if mimeType != Wildcard {
		addTier(Wildcard)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].Priority > found[j].Priority })
	return found
}

func primaryWildcard(mimeType string) string {
	primary, _, ok := strings.Cut(mimeType, "/")
	if !ok || primary == "" {
		return ""
	}
	return primary + "/*"
}

// Registration is one registry row, as reported by introspection
// surfaces (CLI listing, HTTP API, MCP).
type Registration struct {
	MIMEType       string  `json:"mime_type"`
	Name           string  `json:"name"`
	Version        string  `json:"version"`
	Priority       float64 `json:"priority"`
	Subtype        string  `json:"subtype,omitempty"`
	ContentCapable bool    `json:"content_capable"`
}

// Names returns the distinct capability names across every
// registration, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, list := range r.byType {
		for _, d := range list {
			name := d.Capability.Name()
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// All returns every registration sorted by MIME type, then priority
// descending.
func (r *Registry) All() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Registration
	for mimeType, list := range r.byType {
		for _, d := range list {
			out = append(out, Registration{
				MIMEType:       mimeType,
				Name:           d.Capability.Name(),
				Version:        d.Capability.Version(),
				Priority:       d.Priority,
				Subtype:        d.Subtype,
				ContentCapable: d.Content != nil,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MIMEType != out[j].MIMEType {
			return out[i].MIMEType < out[j].MIMEType
		}
		return out[i].Priority > out[j].Priority
	})
	return out
}
