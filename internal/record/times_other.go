//go:build !linux && !darwin

package record

import (
	"os"
	"time"
)

// creationTime is unavailable on this platform; the record's created_at
// stays unset.
func creationTime(os.FileInfo) time.Time {
	return time.Time{}
}
