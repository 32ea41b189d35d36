// Package export dumps raw points for backup and restores them.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/nicktill/tinyslice/pkg/storage"
)

// BackupVersion is written into every JSON backup
const BackupVersion = "1.0"

// Exporter writes stored points in backup formats
type Exporter struct {
	storage storage.Storage
}

// NewExporter creates a new exporter
func NewExporter(store storage.Storage) *Exporter {
	return &Exporter{storage: store}
}

// Options select the points to export
type Options struct {
	Start       time.Time
	End         time.Time
	MetricNames []string          // nil = all metrics
	Labels      map[string]string // nil = no label filtering
}

// Metadata describes a JSON backup
type Metadata struct {
	ExportedAt time.Time `json:"exported_at"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	PointCount int       `json:"point_count"`
	Version    string    `json:"version"`
}

// Backup is the JSON backup document. Its "points" member has the same shape
// as an ingest request, so a backup can also be posted to /v1/ingest in chunks.
type Backup struct {
	Metadata Metadata        `json:"metadata"`
	Points   []storage.Point `json:"points"`
}

// Result contains stats about an export
type Result struct {
	PointsExported int       `json:"points_exported"`
	TimeRange      string    `json:"time_range"`
	Format         string    `json:"format"`
	ExportedAt     time.Time `json:"exported_at"`
}

func (e *Exporter) query(ctx context.Context, opts Options) ([]storage.Point, error) {
	points, err := e.storage.Query(ctx, storage.QueryRequest{
		Start:       opts.Start,
		End:         opts.End,
		MetricNames: opts.MetricNames,
		Labels:      opts.Labels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	return points, nil
}

func newResult(format string, n int, opts Options) *Result {
	return &Result{
		PointsExported: n,
		TimeRange:      fmt.Sprintf("%s to %s", opts.Start.Format(time.RFC3339), opts.End.Format(time.RFC3339)),
		Format:         format,
		ExportedAt:     time.Now(),
	}
}

// ExportToJSON writes a Backup document
func (e *Exporter) ExportToJSON(ctx context.Context, w io.Writer, opts Options) (*Result, error) {
	points, err := e.query(ctx, opts)
	if err != nil {
		return nil, err
	}

	res := newResult("json", len(points), opts)
	backup := Backup{
		Metadata: Metadata{
			ExportedAt: res.ExportedAt,
			StartTime:  opts.Start,
			EndTime:    opts.End,
			PointCount: len(points),
			Version:    BackupVersion,
		},
		Points: points,
	}
	if backup.Points == nil {
		backup.Points = []storage.Point{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return res, nil
}

// ExportToCSV writes one record per point: timestamp, name, value, then one
// column per label key seen in the export, sorted
func (e *Exporter) ExportToCSV(ctx context.Context, w io.Writer, opts Options) (*Result, error) {
	points, err := e.query(ctx, opts)
	if err != nil {
		return nil, err
	}

	cw := csv.NewWriter(w)
	labelKeys := collectLabelKeys(points)

	header := append([]string{"timestamp", "name", "value"}, labelKeys...)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(header))
	for _, p := range points {
		record[0] = p.Timestamp.UTC().Format(time.RFC3339Nano)
		record[1] = p.Name
		record[2] = strconv.FormatFloat(p.Value, 'f', -1, 64)
		for i, key := range labelKeys {
			record[3+i] = p.Labels[key]
		}
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return newResult("csv", len(points), opts), nil
}

// collectLabelKeys gathers all unique label keys and returns them sorted
func collectLabelKeys(points []storage.Point) []string {
	keySet := make(map[string]bool)
	for _, p := range points {
		for key := range p.Labels {
			keySet[key] = true
		}
	}

	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
