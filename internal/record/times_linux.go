//go:build linux

package record

import (
	"os"
	"syscall"
	"time"
)

// creationTime returns the closest thing Linux offers to a creation
// timestamp: the inode change time from the underlying stat.
func creationTime(fi os.FileInfo) time.Time {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return time.Time{}
	}
	return time.Unix(int64(st.Ctim.Sec), int64(st.Ctim.Nsec))
}
