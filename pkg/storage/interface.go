package storage

import (
	"context"
	"sort"
	"strings"
	"time"
)

// Point is a single observation of a named metric with dimension labels
type Point struct {
	Name      string            `json:"name"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Storage defines the interface for point storage backends.
// Implementations: memory (testing, render), badger (production)
type Storage interface {
	// Write stores points
	Write(ctx context.Context, points []Point) error

	// Query retrieves points within a time range
	Query(ctx context.Context, req QueryRequest) ([]Point, error)

	// Delete removes points matching the options
	Delete(ctx context.Context, opts DeleteOptions) error

	// Close cleanly shuts down the storage
	Close() error

	// Stats returns storage statistics
	Stats(ctx context.Context) (*Stats, error)
}

// QueryRequest specifies what points to retrieve
type QueryRequest struct {
	// Time range, start inclusive, end exclusive
	Start time.Time
	End   time.Time

	// Filter by metric name (optional)
	MetricNames []string

	// Filter by labels (optional)
	Labels map[string]string

	// Limit number of results (0 = no limit)
	Limit int
}

// Matches reports whether a point satisfies the request filters
func (req QueryRequest) Matches(p Point) bool {
	if p.Timestamp.Before(req.Start) || !p.Timestamp.Before(req.End) {
		return false
	}

	if len(req.MetricNames) > 0 {
		found := false
		for _, name := range req.MetricNames {
			if p.Name == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for k, v := range req.Labels {
		if p.Labels == nil || p.Labels[k] != v {
			return false
		}
	}
	return true
}

// DeleteOptions selects points to delete
type DeleteOptions struct {
	// Before deletes points strictly older than this time
	Before time.Time

	// MetricNames restricts deletion to these metrics (optional)
	MetricNames []string
}

// Matches reports whether a point should be deleted
func (o DeleteOptions) Matches(p Point) bool {
	if !p.Timestamp.Before(o.Before) {
		return false
	}
	if len(o.MetricNames) == 0 {
		return true
	}
	for _, name := range o.MetricNames {
		if p.Name == name {
			return true
		}
	}
	return false
}

// Stats provides storage health and usage info
type Stats struct {
	TotalPoints uint64    `json:"total_points"`
	TotalSeries uint64    `json:"total_series"`
	SizeBytes   uint64    `json:"size_bytes"`
	OldestPoint time.Time `json:"oldest_point"`
	NewestPoint time.Time `json:"newest_point"`
}

// SeriesKey creates a deterministic string key for a series (name plus sorted labels)
func SeriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	return b.String()
}
