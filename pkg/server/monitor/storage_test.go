package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStorageMonitor_GetUsage(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "badger"), 0o755); err != nil {
		t.Fatalf("Failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "badger", "000001.vlog"), make([]byte, 8192), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	sm := NewStorageMonitor(dir, 1<<30)
	usage, err := sm.GetUsage()
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if usage < 8192 {
		t.Errorf("GetUsage() = %d, want at least 8192", usage)
	}
	if got := sm.GetLimit(); got != 1<<30 {
		t.Errorf("GetLimit() = %d, want %d", got, 1<<30)
	}
}

func TestStorageMonitor_CachesUsage(t *testing.T) {
	dir := t.TempDir()
	sm := NewStorageMonitor(dir, 0)

	before, err := sm.GetUsage()
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "late.sst"), make([]byte, 4096), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	after, err := sm.GetUsage()
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if before != after {
		t.Errorf("Expected cached usage %d, got %d", before, after)
	}
}

func TestStorageMonitor_CacheExpires(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sm := NewStorageMonitor(dir, 0)
	sm.now = func() time.Time { return now }

	if _, err := sm.GetUsage(); err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "late.sst"), make([]byte, 4096), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	now = now.Add(usageCacheTTL)
	usage, err := sm.GetUsage()
	if err != nil {
		t.Fatalf("GetUsage() error = %v", err)
	}
	if usage < 4096 {
		t.Errorf("Expected refreshed usage of at least 4096, got %d", usage)
	}
}

func TestStorageMonitor_Usage(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "000001.vlog"), make([]byte, 8192), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	full, err := NewStorageMonitor(dir, 1024).Usage()
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if !full.Full || full.UtilizationPct < 100 {
		t.Errorf("Expected full storage, got %+v", full)
	}

	unlimited, err := NewStorageMonitor(dir, 0).Usage()
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if unlimited.Full || unlimited.UtilizationPct != 0 {
		t.Errorf("Expected no limit reporting, got %+v", unlimited)
	}
}

func TestStorageMonitor_MissingDir(t *testing.T) {
	sm := NewStorageMonitor(filepath.Join(t.TempDir(), "missing"), 1<<30)
	if _, err := sm.GetUsage(); err == nil {
		t.Error("GetUsage() should fail for a missing directory")
	}
}
