package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nicktill/tinyslice/pkg/storage"
)

// pointSize is a rough per-point size estimate for Stats
const pointSize = 100

// Storage stores points in memory. Data is lost on restart.
// Used for tests and the render command.
type Storage struct {
	points []storage.Point
	mu     sync.RWMutex
}

// New creates an in-memory storage backend
func New() *Storage {
	return &Storage{
		points: make([]storage.Point, 0, 1024),
	}
}

// Write stores points in memory
func (s *Storage) Write(ctx context.Context, points []storage.Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = append(s.points, points...)
	return nil
}

// Query retrieves points matching the request, oldest first
func (s *Storage) Query(ctx context.Context, req storage.QueryRequest) ([]storage.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var results []storage.Point
	for _, p := range s.points {
		if req.Matches(p) {
			results = append(results, p)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp.Before(results[j].Timestamp)
	})
	if req.Limit > 0 && len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

// Delete removes points matching the options
func (s *Storage) Delete(ctx context.Context, opts storage.DeleteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]storage.Point, 0, len(s.points))
	for _, p := range s.points {
		if !opts.Matches(p) {
			kept = append(kept, p)
		}
	}
	s.points = kept
	return nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}

// Stats returns storage statistics
func (s *Storage) Stats(ctx context.Context) (*storage.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &storage.Stats{
		TotalPoints: uint64(len(s.points)),
		SizeBytes:   uint64(len(s.points)) * pointSize,
	}
	if len(s.points) == 0 {
		return stats, nil
	}

	series := make(map[string]struct{})
	oldest := s.points[0].Timestamp
	newest := s.points[0].Timestamp
	for _, p := range s.points {
		series[storage.SeriesKey(p.Name, p.Labels)] = struct{}{}
		if p.Timestamp.Before(oldest) {
			oldest = p.Timestamp
		}
		if p.Timestamp.After(newest) {
			newest = p.Timestamp
		}
	}

	stats.TotalSeries = uint64(len(series))
	stats.OldestPoint = oldest
	stats.NewestPoint = newest
	return stats, nil
}
