package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/nicktill/tinyslice/pkg/storage"
)

const (
	keySize            = 16
	slowQueryThreshold = 5 * time.Second
	checkEvery         = 1000
)

// Storage implements storage.Storage using BadgerDB (LSM tree)
type Storage struct {
	db *badger.DB
}

// Config holds BadgerDB configuration
type Config struct {
	// Path to store database files
	Path string

	// InMemory mode (for testing)
	InMemory bool

	// MaxMemoryMB limits BadgerDB memory usage in MB (0 = laptop-friendly default)
	MaxMemoryMB int64
}

// New creates a BadgerDB storage backend
func New(cfg Config) (*Storage, error) {
	opts := badger.DefaultOptions(cfg.Path).WithLogger(nil)

	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}

	// 16 MB memtable is the floor for decent write throughput
	memTableSize := int64(16 * 1024 * 1024)
	if cfg.MaxMemoryMB > 0 {
		memTableSize = cfg.MaxMemoryMB * 1024 * 1024 / 3
	}

	// Block and index caches grow without bound unless capped
	blockCacheSize := memTableSize / 2
	indexCacheSize := memTableSize / 4

	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithMemTableSize(memTableSize).
		WithNumMemtables(3).
		WithBlockCacheSize(blockCacheSize).
		WithIndexCacheSize(indexCacheSize).
		WithMaxLevels(4).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithNumCompactors(1).
		WithValueLogMaxEntries(5000).
		WithValueLogFileSize(64 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Storage{db: db}, nil
}

// Write stores points in a single transaction.
// Points of the same series with the same timestamp overwrite each other.
func (s *Storage) Write(ctx context.Context, points []storage.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Update(func(txn *badger.Txn) error {
			for i, p := range points {
				if i%100 == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				value, err := json.Marshal(p)
				if err != nil {
					return fmt.Errorf("failed to encode point: %w", err)
				}
				if err := txn.Set(makeKey(p.Name, p.Labels, p.Timestamp), value); err != nil {
					return fmt.Errorf("failed to write point: %w", err)
				}
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("write operation cancelled: %w", ctx.Err())
	}
}

// Query retrieves points matching the request, oldest first
func (s *Storage) Query(ctx context.Context, req storage.QueryRequest) ([]storage.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type queryResult struct {
		points []storage.Point
		err    error
	}
	done := make(chan queryResult, 1)

	go func() {
		var res queryResult
		start := time.Now()
		var iterCount int

		res.err = s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchSize = 100

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				iterCount++
				if iterCount%checkEvery == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				// Time filter on the key avoids decoding values out of range
				if _, ts := parseKey(it.Item().Key()); ts.Before(req.Start) || !ts.Before(req.End) {
					continue
				}

				err := it.Item().Value(func(val []byte) error {
					var p storage.Point
					if err := json.Unmarshal(val, &p); err != nil {
						return fmt.Errorf("failed to decode point: %w", err)
					}
					if req.Matches(p) {
						res.points = append(res.points, p)
					}
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})

		if elapsed := time.Since(start); elapsed > slowQueryThreshold {
			log.Printf("⚠️  Slow query completed in %v (%d iterations, %d results)", elapsed, iterCount, len(res.points))
		}
		done <- res
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		sort.SliceStable(res.points, func(i, j int) bool {
			return res.points[i].Timestamp.Before(res.points[j].Timestamp)
		})
		if req.Limit > 0 && len(res.points) > req.Limit {
			res.points = res.points[:req.Limit]
		}
		return res.points, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("query operation cancelled: %w", ctx.Err())
	}
}

// Delete removes points matching the options
func (s *Storage) Delete(ctx context.Context, opts storage.DeleteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- s.db.Update(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			// Values are only needed to filter by metric name
			iterOpts.PrefetchValues = len(opts.MetricNames) > 0

			it := txn.NewIterator(iterOpts)
			defer it.Close()

			var keysToDelete [][]byte
			var iterCount int

			for it.Rewind(); it.Valid(); it.Next() {
				iterCount++
				if iterCount%checkEvery == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				item := it.Item()
				if _, ts := parseKey(item.Key()); !ts.Before(opts.Before) {
					continue
				}

				if len(opts.MetricNames) > 0 {
					var p storage.Point
					if err := item.Value(func(val []byte) error {
						return json.Unmarshal(val, &p)
					}); err != nil {
						return fmt.Errorf("failed to decode point: %w", err)
					}
					if !opts.Matches(p) {
						continue
					}
				}

				keysToDelete = append(keysToDelete, item.KeyCopy(nil))
			}

			for _, key := range keysToDelete {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("delete operation cancelled: %w", ctx.Err())
	}
}

// Close shuts down BadgerDB cleanly
func (s *Storage) Close() error {
	return s.db.Close()
}

// RunGC runs BadgerDB's value log garbage collection.
// discardRatio: rewrite a file if this fraction of it can be discarded (0.5 = 50%).
// badger.ErrNoRewrite means there was nothing to reclaim.
func (s *Storage) RunGC(discardRatio float64) error {
	return s.db.RunValueLogGC(discardRatio)
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type statsResult struct {
		stats *storage.Stats
		err   error
	}
	done := make(chan statsResult, 1)

	go func() {
		stats := &storage.Stats{}

		err := s.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false

			it := txn.NewIterator(opts)
			defer it.Close()

			series := make(map[uint64]struct{})
			var iterCount int

			for it.Rewind(); it.Valid(); it.Next() {
				iterCount++
				if iterCount%checkEvery == 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					default:
					}
				}

				hash, ts := parseKey(it.Item().Key())
				series[hash] = struct{}{}
				stats.TotalPoints++

				if stats.OldestPoint.IsZero() || ts.Before(stats.OldestPoint) {
					stats.OldestPoint = ts
				}
				if stats.NewestPoint.IsZero() || ts.After(stats.NewestPoint) {
					stats.NewestPoint = ts
				}
			}

			stats.TotalSeries = uint64(len(series))
			return nil
		})

		if err == nil {
			lsmSize, vlogSize := s.db.Size()
			stats.SizeBytes = uint64(lsmSize + vlogSize)
		}
		done <- statsResult{stats: stats, err: err}
	}()

	select {
	case res := <-done:
		return res.stats, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("stats operation cancelled: %w", ctx.Err())
	}
}

// makeKey creates a sortable key: [series hash (8 bytes)][timestamp (8 bytes)]
func makeKey(name string, labels map[string]string, ts time.Time) []byte {
	key := make([]byte, keySize)
	binary.BigEndian.PutUint64(key[0:8], xxhash.Sum64String(storage.SeriesKey(name, labels)))
	binary.BigEndian.PutUint64(key[8:16], uint64(ts.UnixNano()))
	return key
}

// parseKey extracts the series hash and timestamp from a storage key
func parseKey(key []byte) (uint64, time.Time) {
	if len(key) < keySize {
		return 0, time.Time{}
	}
	hash := binary.BigEndian.Uint64(key[0:8])
	ts := time.Unix(0, int64(binary.BigEndian.Uint64(key[8:16])))
	return hash, ts
}
