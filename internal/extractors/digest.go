package extractors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/savagelysubtle/archivum/internal/extract"
)

// Digest computes a SHA-256 content hash for any file. Registered on
// the universal fallback so every file yields at least an identity.
type Digest struct{}

func (Digest) Name() string    { return "digest" }
func (Digest) Version() string { return "1.0" }

func (Digest) Extract(ctx context.Context, path string) (extract.Fields, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}
	return extract.Fields{
		"sha256":       hex.EncodeToString(h.Sum(nil)),
		"hashed_bytes": n,
	}, nil
}
