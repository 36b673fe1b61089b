package extractors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/savagelysubtle/archivum/internal/extract"
)

// Image reads dimensions and format from the image header without
// decoding pixels.
type Image struct{}

func (Image) Name() string    { return "image" }
func (Image) Version() string { return "1.0" }

func (i Image) Extract(ctx context.Context, path string) (extract.Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return i.decode(f)
}

func (i Image) ExtractWithContent(ctx context.Context, path string, content []byte) (extract.Fields, error) {
	return i.decode(bytes.NewReader(content))
}

func (Image) decode(r io.Reader) (extract.Fields, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, extract.ErrUnsupported
		}
		return nil, fmt.Errorf("decoding image header: %w", err)
	}
	return extract.Fields{
		"content_type": "image",
		"width":        cfg.Width,
		"height":       cfg.Height,
		"format":       format,
	}, nil
}
