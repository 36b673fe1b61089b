package detect

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Detector resolves the MIME type of a file. An empty result with a nil
// error means detection was inconclusive; callers decide how to handle
// undetermined types.
type Detector interface {
	DetectPath(path string) (string, error)
	DetectBytes(data []byte) (string, error)
}

// Magic detects MIME types from magic bytes, consulting the filename
// extension table when sniffing comes back inconclusive.
type Magic struct{}

func (Magic) DetectPath(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("sniffing %s: %w", path, err)
	}
	if mt := normalize(mtype); mt != "" {
		return mt, nil
	}
	// Octet-stream from the sniffer means "no idea"; an extension match
	// beats giving up.
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return stripParams(byExt), nil
	}
	return "", nil
}

func (Magic) DetectBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	return normalize(mimetype.Detect(data)), nil
}

func normalize(mtype *mimetype.MIME) string {
	if mtype == nil {
		return ""
	}
	mt := stripParams(mtype.String())
	// The sniffer reports "application/octet-stream" when it cannot
	// detect, which is not a real answer.
	if mt == "application/octet-stream" {
		return ""
	}
	return mt
}

// stripParams drops parameters like "; charset=utf-8" so results can be
// compared as plain type/subtype strings.
func stripParams(mt string) string {
	if idx := strings.Index(mt, ";"); idx >= 0 {
		mt = mt[:idx]
	}
	return strings.TrimSpace(mt)
}
