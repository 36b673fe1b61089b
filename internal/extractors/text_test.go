package extractors

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	return path
}

func TestText_Extract(t *testing.T) {
	path := writeTestFile(t, "notes.txt", "one two three\nfour five\n")

	fields, err := Text{}.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if got := fields["preview"]; got != "one two three\nfour five" {
		t.Errorf("preview = %q, want trimmed content", got)
	}
	if got := fields["content"]; got != "one two three\nfour five\n" {
		t.Errorf("content = %q, want raw content", got)
	}
	if got := fields["word_count"]; got != 5 {
		t.Errorf("word_count = %v, want 5", got)
	}
	if got := fields["line_count"]; got != 2 {
		t.Errorf("line_count = %v, want 2", got)
	}
	if got := fields["content_type"]; got != "text" {
		t.Errorf("content_type = %v, want %q", got, "text")
	}
}

func TestText_ClassifiesByExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"main.go", "code"},
		{"script.PY", "code"},
		{"readme.md", "document"},
		{"notes.txt", "text"},
		{"noext", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTestFile(t, tt.name, "content")
			fields, err := Text{}.Extract(context.Background(), path)
			if err != nil {
				t.Fatalf("Extract returned error: %v", err)
			}
			if got := fields["content_type"]; got != tt.want {
				t.Errorf("content_type = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestText_PreviewCapped(t *testing.T) {
	path := writeTestFile(t, "long.txt", strings.Repeat("word ", 200))

	fields, err := Text{PreviewLen: 10}.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	preview, ok := fields["preview"].(string)
	if !ok {
		t.Fatalf("preview is %T, want string", fields["preview"])
	}
	if got := utf8.RuneCountInString(preview); got != 10 {
		t.Errorf("preview length = %d runes, want 10", got)
	}
}

func TestText_ContentCapped(t *testing.T) {
	path := writeTestFile(t, "big.txt", strings.Repeat("x", 100))

	fields, err := Text{MaxContentBytes: 16}.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if got := len(fields["content"].(string)); got != 16 {
		t.Errorf("content length = %d, want 16", got)
	}
}

func TestText_MissingFile(t *testing.T) {
	_, err := Text{}.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a\n", 1},
		{"a\nb", 2},
		{"a\nb\n", 2},
	}

	for _, tt := range tests {
		if got := countLines(tt.in); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
