package record

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Record holds the metadata extracted from a single file: identity and
// stat-derived basics, enrichment fields settable by extractors, a
// per-extractor payload map for everything without a dedicated field,
// and the outcome of the extraction run itself.
type Record struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	MIMEType   string    `json:"mime_type,omitempty"`
	Extension  string    `json:"extension,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`

	Preview string `json:"preview,omitempty"`
	Content string `json:"content,omitempty"`

	Tags        []string             `json:"tags,omitempty"`
	Topics      []map[string]float64 `json:"topics,omitempty"`
	Keywords    []string             `json:"keywords,omitempty"`
	Entities    map[string][]string  `json:"entities,omitempty"`
	Language    string               `json:"language,omitempty"`
	ContentType string               `json:"content_type,omitempty"`

	// Payload collects extractor fields that have no dedicated record
	// field, keyed by extractor name so extractors never clobber each
	// other's output.
	Payload map[string]map[string]any `json:"payload,omitempty"`

	// Complete is true only when every selected extractor finished
	// without error. ExtractionTime is the cumulative extractor runtime
	// in seconds; cache hits contribute their recorded runtime.
	Complete       bool    `json:"extraction_complete"`
	ExtractionTime float64 `json:"extraction_time"`
	Error          string  `json:"error,omitempty"`
}

// New builds a record for path. When fi is non-nil, size and timestamps
// are filled from the stat snapshot.
func New(path string, fi os.FileInfo) *Record {
	r := &Record{
		Path:      path,
		Extension: lowerExt(path),
	}
	if fi != nil {
		r.Size = fi.Size()
		r.ModifiedAt = fi.ModTime()
		r.CreatedAt = creationTime(fi)
	}
	return r
}

// NotFound returns the terminal record for a path that does not exist.
// No extractors run against such a record.
func NotFound(path string) *Record {
	return &Record{
		Path:      path,
		Size:      -1,
		MIMEType:  "unknown",
		Extension: lowerExt(path),
		Error:     "file not found",
	}
}

func lowerExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// AddError appends msg to the record's error string. Existing errors are
// never overwritten; failures accumulate "; "-separated in the order
// they are reported.
func (r *Record) AddError(msg string) {
	if r.Error == "" {
		r.Error = msg
		return
	}
	r.Error += "; " + msg
}

// Merge folds one extractor's fields into the record. Keys matching a
// known record field are set directly, coercing JSON-shaped values
// (e.g. []any of strings) where needed. Keys that are unknown, or whose
// value does not coerce, land under Payload[name] instead.
//
// Identity and outcome fields (path, size, timestamps, completion flag,
// extraction time, error) are owned by the extraction run and cannot be
// set through Merge.
func (r *Record) Merge(name string, fields map[string]any) {
	for key, value := range fields {
		if set, ok := setters[key]; ok && set(r, value) {
			continue
		}
		if r.Payload == nil {
			r.Payload = make(map[string]map[string]any)
		}
		if r.Payload[name] == nil {
			r.Payload[name] = make(map[string]any)
		}
		r.Payload[name][key] = value
	}
}

var setters = map[string]func(*Record, any) bool{
	"mime_type":    setString(func(r *Record, s string) { r.MIMEType = s }),
	"extension":    setString(func(r *Record, s string) { r.Extension = s }),
	"preview":      setString(func(r *Record, s string) { r.Preview = s }),
	"content":      setString(func(r *Record, s string) { r.Content = s }),
	"language":     setString(func(r *Record, s string) { r.Language = s }),
	"content_type": setString(func(r *Record, s string) { r.ContentType = s }),
	"tags":         setStrings(func(r *Record, v []string) { r.Tags = v }),
	"keywords":     setStrings(func(r *Record, v []string) { r.Keywords = v }),
	"topics": func(r *Record, v any) bool {
		t, ok := toTopics(v)
		if ok {
			r.Topics = t
		}
		return ok
	},
	"entities": func(r *Record, v any) bool {
		m, ok := toEntities(v)
		if ok {
			r.Entities = m
		}
		return ok
	},
}

func setString(assign func(*Record, string)) func(*Record, any) bool {
	return func(r *Record, v any) bool {
		s, ok := v.(string)
		if !ok {
			return false
		}
		assign(r, s)
		return true
	}
}

func setStrings(assign func(*Record, []string)) func(*Record, any) bool {
	return func(r *Record, v any) bool {
		s, ok := toStrings(v)
		if !ok {
			return false
		}
		assign(r, s)
		return true
	}
}

// toStrings accepts []string directly, or []any whose elements are all
// strings (the shape JSON decoding produces for cached entries).
func toStrings(v any) ([]string, bool) {
	switch val := v.(type) {
	case []string:
		return val, true
	case []any:
		out := make([]string, len(val))
		for i, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

func toTopics(v any) ([]map[string]float64, bool) {
	switch val := v.(type) {
	case []map[string]float64:
		return val, true
	case []any:
		out := make([]map[string]float64, len(val))
		for i, elem := range val {
			switch topic := elem.(type) {
			case map[string]float64:
				out[i] = topic
			case map[string]any:
				m := make(map[string]float64, len(topic))
				for label, weight := range topic {
					f, ok := weight.(float64)
					if !ok {
						return nil, false
					}
					m[label] = f
				}
				out[i] = m
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func toEntities(v any) (map[string][]string, bool) {
	switch val := v.(type) {
	case map[string][]string:
		return val, true
	case map[string]any:
		out := make(map[string][]string, len(val))
		for kind, names := range val {
			s, ok := toStrings(names)
			if !ok {
				return nil, false
			}
			out[kind] = s
		}
		return out, true
	default:
		return nil, false
	}
}
