//go:build darwin

package record

import (
	"os"
	"syscall"
	"time"
)

// creationTime returns the file's birth time, which macOS tracks natively.
func creationTime(fi os.FileInfo) time.Time {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(st.Birthtimespec.Sec), int64(st.Birthtimespec.Nsec))
}
