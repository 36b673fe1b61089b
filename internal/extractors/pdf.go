package extractors

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/savagelysubtle/archivum/internal/extract"
)

// PDF reports the page count and, when the document allows it, a plain
// text rendering. Text extraction failures degrade to count-only fields
// since scanned and encrypted documents are common.
type PDF struct {
	// MaxContentBytes caps the extracted text; zero means the default.
	MaxContentBytes int64
}

func (PDF) Name() string    { return "pdf" }
func (PDF) Version() string { return "1.0" }

func (p PDF) Extract(ctx context.Context, path string) (extract.Fields, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	fields := extract.Fields{
		"content_type": "document",
		"page_count":   r.NumPage(),
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return fields, nil
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(plain, p.maxBytes())); err != nil {
		return fields, nil
	}
	if text := strings.TrimSpace(buf.String()); text != "" {
		fields["content"] = text
		fields["preview"] = previewOf(text, defaultPreviewLen)
	}
	return fields, nil
}

func (p PDF) maxBytes() int64 {
	if p.MaxContentBytes > 0 {
		return p.MaxContentBytes
	}
	return defaultMaxContentBytes
}
