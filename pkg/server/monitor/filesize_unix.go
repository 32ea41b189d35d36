//go:build !windows

package monitor

import (
	"os"
	"syscall"
)

// getActualFileSize returns allocated blocks rather than logical size, so
// sparse badger value logs are counted for what they occupy.
func getActualFileSize(path string, info os.FileInfo) (int64, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.Size(), nil
	}
	return stat.Blocks * 512, nil
}
