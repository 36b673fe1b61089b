package extract

import (
	"fmt"
	"time"
)

const cacheKeyPrefix = "meta::"

// cacheKey builds the composite key for one (file state, extractor)
// pair. Any change to the file's mtime or size produces a fresh key, as
// does bumping the extractor version; stale entries simply stop being
// read rather than needing invalidation.
func cacheKey(path string, mtime time.Time, size int64, name, version string) string {
	return fmt.Sprintf("%s%s|%d|%d|%s|%s", cacheKeyPrefix, path, mtime.UnixNano(), size, name, version)
}
