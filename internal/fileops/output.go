// Package fileops implements the non-interactive, collision-avoiding file
// creation SHUMZU uses when writing decoded output: unlike a stat-then-open
// check, which races another process between the check and the create,
// O_EXCL makes the filesystem itself the single source of truth.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shumzu/shumzu/internal/errs"
	"github.com/shumzu/shumzu/internal/util"
)

// maxSuffixAttempts bounds the "_1", "_2", ... retry loop so a stuck
// directory (permissions, a full disk) fails fast instead of spinning.
const maxSuffixAttempts = 1000

// CreateNewFile creates path for exclusive writing. If path already
// exists, it retries with a "_<k>" suffix inserted before the extension
// ("out.txt" -> "out_1.txt" -> "out_2.txt" ...) until it finds a name no
// other file currently holds. The open itself is atomic per attempt, so
// two processes racing to create the same base name can never clobber
// each other's output.
func CreateNewFile(path string) (*os.File, string, error) {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	candidate := path
	for attempt := 0; attempt <= maxSuffixAttempts; attempt++ {
		if attempt > 0 {
			candidate = fmt.Sprintf("%s_%d%s", base, attempt, ext)
		}
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, candidate, nil
		}
		if !os.IsExist(err) {
			return nil, "", errs.Wrap(fmt.Errorf("%w: %v", errs.ErrIO, err), "create output file")
		}
	}
	return nil, "", errs.Wrap(fmt.Errorf("%w: exhausted %d name collisions for %s", errs.ErrIO, maxSuffixAttempts, path), "create output file")
}

// WriteChunked writes data to f in MiB-sized slices drawn from the shared
// buffer pool, rather than handing the whole (potentially large)
// reassembled file to a single Write call. Mirrors the chunked-copy shape
// used elsewhere for large payloads, so GC pressure from one giant Write's
// internal copies doesn't scale with file size.
func WriteChunked(f *os.File, data []byte) error {
	for len(data) > 0 {
		buf := util.GetMiBBuffer()
		n := copy(buf, data)
		_, err := f.Write(buf[:n])
		util.PutMiBBuffer(buf)
		if err != nil {
			return errs.Wrap(fmt.Errorf("%w: %v", errs.ErrIO, err), "write output file")
		}
		data = data[n:]
	}
	return nil
}
