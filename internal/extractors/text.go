package extractors

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/savagelysubtle/archivum/internal/extract"
)

const (
	defaultPreviewLen      = 100
	defaultMaxContentBytes = 1 << 20
)

// codeExtensions marks extensions whose text/* files are source code
// rather than prose.
var codeExtensions = map[string]bool{
	".c": true, ".cc": true, ".cpp": true, ".cs": true, ".go": true,
	".java": true, ".js": true, ".kt": true, ".lua": true, ".php": true,
	".py": true, ".rb": true, ".rs": true, ".sh": true, ".sql": true,
	".swift": true, ".ts": true,
}

var documentExtensions = map[string]bool{
	".adoc": true, ".markdown": true, ".md": true, ".rst": true, ".tex": true,
}

// Text handles any text/* file: a rune-capped preview, the (capped)
// content itself, and simple shape counts.
type Text struct {
	// PreviewLen caps the preview in runes; zero means the default.
	PreviewLen int
	// MaxContentBytes caps how much of the file is read; zero means the
	// default.
	MaxContentBytes int64
}

func (Text) Name() string    { return "text" }
func (Text) Version() string { return "1.0" }

func (t Text) Extract(ctx context.Context, path string) (extract.Fields, error) {
	data, err := readCapped(path, t.maxBytes())
	if err != nil {
		return nil, err
	}

	text := strings.ToValidUTF8(string(data), "�")
	trimmed := strings.TrimSpace(text)
	return extract.Fields{
		"preview":      previewOf(trimmed, t.previewLen()),
		"content":      text,
		"content_type": classifyText(path),
		"word_count":   len(strings.Fields(trimmed)),
		"line_count":   countLines(text),
	}, nil
}

func (t Text) previewLen() int {
	if t.PreviewLen > 0 {
		return t.PreviewLen
	}
	return defaultPreviewLen
}

func (t Text) maxBytes() int64 {
	if t.MaxContentBytes > 0 {
		return t.MaxContentBytes
	}
	return defaultMaxContentBytes
}

func classifyText(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case codeExtensions[ext]:
		return "code"
	case documentExtensions[ext]:
		return "document"
	default:
		return "text"
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// previewOf returns at most n runes of s, trimmed.
func previewOf(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// readCapped reads at most maxBytes from the file at path.
func readCapped(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
