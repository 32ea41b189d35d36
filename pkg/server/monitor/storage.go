package monitor

import (
	"io/fs"
	"path/filepath"
	"sync"
	"time"
)

// usageCacheTTL bounds how stale a reported usage figure can be
const usageCacheTTL = 10 * time.Second

// StorageMonitor reports how much disk the badger data directory occupies.
// Usage is cached so the ingest path does not walk the directory on every request.
type StorageMonitor struct {
	dataDir  string
	maxBytes int64

	mu        sync.Mutex
	cached    int64
	lastCheck time.Time
	now       func() time.Time
}

// StorageUsage is the JSON shape served by /v1/storage
type StorageUsage struct {
	UsedBytes      int64   `json:"used_bytes"`
	MaxBytes       int64   `json:"max_bytes"`
	UtilizationPct float64 `json:"utilization_percent,omitempty"`
	Full           bool    `json:"full"`
}

// NewStorageMonitor creates a monitor for dataDir. maxBytes <= 0 disables the limit.
func NewStorageMonitor(dataDir string, maxBytes int64) *StorageMonitor {
	return &StorageMonitor{
		dataDir:  dataDir,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// GetUsage returns current storage usage in bytes (cached for usageCacheTTL).
func (sm *StorageMonitor) GetUsage() (int64, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := sm.now()
	if !sm.lastCheck.IsZero() && now.Sub(sm.lastCheck) < usageCacheTTL {
		return sm.cached, nil
	}

	used, err := dirUsage(sm.dataDir)
	if err != nil {
		return 0, err
	}
	sm.cached = used
	sm.lastCheck = now
	return used, nil
}

// GetLimit returns the configured storage limit in bytes.
func (sm *StorageMonitor) GetLimit() int64 {
	return sm.maxBytes
}

// Usage combines current usage with the limit
func (sm *StorageMonitor) Usage() (StorageUsage, error) {
	used, err := sm.GetUsage()
	if err != nil {
		return StorageUsage{}, err
	}
	u := StorageUsage{UsedBytes: used, MaxBytes: sm.maxBytes}
	if sm.maxBytes > 0 {
		u.UtilizationPct = float64(used) / float64(sm.maxBytes) * 100
		u.Full = used >= sm.maxBytes
	}
	return u, nil
}

// dirUsage sums the on-disk size of every file under root. Files whose
// allocation cannot be read count at their logical size.
func dirUsage(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if n, err := getActualFileSize(path, info); err == nil {
			total += n
		} else {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
