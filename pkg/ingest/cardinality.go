package ingest

import (
	"strings"
	"sync"
	"time"

	"github.com/nicktill/tinyslice/pkg/storage"
)

// CardinalityTracker tracks unique series to enforce cardinality limits.
// Series not seen for a day are forgotten so memory stays bounded.
type CardinalityTracker struct {
	mu sync.Mutex

	// metric name -> number of series
	seriesCount map[string]int
	totalSeries int

	// series key -> last seen
	seriesSeen  map[string]time.Time
	lastCleanup time.Time

	now func() time.Time
}

const (
	seriesRetentionPeriod = 24 * time.Hour
	cleanupInterval       = 1 * time.Hour
)

// NewCardinalityTracker creates a new cardinality tracker
func NewCardinalityTracker() *CardinalityTracker {
	return &CardinalityTracker{
		seriesCount: make(map[string]int),
		seriesSeen:  make(map[string]time.Time),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Check reports whether accepting this point would exceed a cardinality limit
func (c *CardinalityTracker) Check(p storage.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()

	if _, exists := c.seriesSeen[storage.SeriesKey(p.Name, p.Labels)]; exists {
		return nil
	}
	if c.totalSeries >= MaxUniqueSeries {
		return ErrCardinalityLimit
	}
	if c.seriesCount[p.Name] >= MaxSeriesPerMetric {
		return ErrMetricCardinalityLimit
	}
	return nil
}

// Record marks a point's series as seen. Call it after the write succeeded.
func (c *CardinalityTracker) Record(p storage.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := storage.SeriesKey(p.Name, p.Labels)
	_, existed := c.seriesSeen[key]
	c.seriesSeen[key] = c.now()

	if !existed {
		c.seriesCount[p.Name]++
		c.totalSeries++
	}
}

// cleanupLocked forgets series not seen within seriesRetentionPeriod.
// MUST be called with lock held.
func (c *CardinalityTracker) cleanupLocked() {
	now := c.now()
	if now.Sub(c.lastCleanup) < cleanupInterval {
		return
	}
	c.lastCleanup = now
	cutoff := now.Add(-seriesRetentionPeriod)

	removed := 0
	for key, lastSeen := range c.seriesSeen {
		if lastSeen.Before(cutoff) {
			delete(c.seriesSeen, key)
			removed++
		}
	}
	if removed > 0 {
		c.rebuildCountsLocked()
	}
}

// rebuildCountsLocked recalculates series counts from seriesSeen.
// MUST be called with lock held.
func (c *CardinalityTracker) rebuildCountsLocked() {
	c.seriesCount = make(map[string]int)
	c.totalSeries = 0

	for key := range c.seriesSeen {
		name := key
		if idx := strings.IndexByte(key, ','); idx >= 0 {
			name = key[:idx]
		}
		c.seriesCount[name]++
		c.totalSeries++
	}
}

// Stats returns current cardinality statistics
func (c *CardinalityTracker) Stats() CardinalityStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var maxMetric string
	var maxCount int
	for name, count := range c.seriesCount {
		if count > maxCount || (count == maxCount && name < maxMetric) {
			maxCount = count
			maxMetric = name
		}
	}

	return CardinalityStats{
		TotalSeries:     c.totalSeries,
		UniqueMetrics:   len(c.seriesCount),
		MaxSeriesMetric: maxMetric,
		MaxSeriesCount:  maxCount,
		SeriesLimit:     MaxUniqueSeries,
		PerMetricLimit:  MaxSeriesPerMetric,
		UtilizationPct:  float64(c.totalSeries) / float64(MaxUniqueSeries) * 100,
	}
}

// CardinalityStats provides cardinality usage information
type CardinalityStats struct {
	TotalSeries     int     `json:"total_series"`
	UniqueMetrics   int     `json:"unique_metrics"`
	MaxSeriesMetric string  `json:"max_series_metric"`
	MaxSeriesCount  int     `json:"max_series_count"`
	SeriesLimit     int     `json:"series_limit"`
	PerMetricLimit  int     `json:"per_metric_limit"`
	UtilizationPct  float64 `json:"utilization_percent"`
}
