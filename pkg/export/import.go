package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nicktill/tinyslice/pkg/ingest"
	"github.com/nicktill/tinyslice/pkg/storage"
)

// MaxImportBatchSize is the maximum number of points written at once
const MaxImportBatchSize = 5000

// Importer restores points from JSON backups
type Importer struct {
	storage storage.Storage
	now     func() time.Time
}

// NewImporter creates a new importer
func NewImporter(store storage.Storage) *Importer {
	return &Importer{storage: store, now: time.Now}
}

// ImportResult contains stats about an import
type ImportResult struct {
	PointsImported int       `json:"points_imported"`
	BatchesWritten int       `json:"batches_written"`
	TimeRange      string    `json:"time_range"`
	ImportedAt     time.Time `json:"imported_at"`
	Errors         []string  `json:"errors,omitempty"`
}

// ImportFromJSON restores a Backup. Invalid points are skipped and reported
// in Errors; valid ones are written in batches.
func (im *Importer) ImportFromJSON(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var backup Backup
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	now := im.now()
	result := &ImportResult{ImportedAt: now, TimeRange: "empty"}

	valid := make([]storage.Point, 0, len(backup.Points))
	for i, p := range backup.Points {
		if err := im.validate(p, now); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("point %d: %v", i, err))
			continue
		}
		valid = append(valid, p)
	}
	if len(valid) == 0 {
		return result, nil
	}

	for i := 0; i < len(valid); i += MaxImportBatchSize {
		end := i + MaxImportBatchSize
		if end > len(valid) {
			end = len(valid)
		}
		if err := im.storage.Write(ctx, valid[i:end]); err != nil {
			return nil, fmt.Errorf("failed to write batch %d: %w", result.BatchesWritten, err)
		}
		result.BatchesWritten++
	}

	minTime, maxTime := valid[0].Timestamp, valid[0].Timestamp
	for _, p := range valid {
		if p.Timestamp.Before(minTime) {
			minTime = p.Timestamp
		}
		if p.Timestamp.After(maxTime) {
			maxTime = p.Timestamp
		}
	}
	result.PointsImported = len(valid)
	result.TimeRange = fmt.Sprintf("%s to %s", minTime.Format(time.RFC3339), maxTime.Format(time.RFC3339))
	return result, nil
}

// validate applies the ingest limits plus timestamp sanity checks
func (im *Importer) validate(p storage.Point, now time.Time) error {
	if err := ingest.ValidatePoint(p); err != nil {
		return err
	}
	if p.Timestamp.IsZero() {
		return fmt.Errorf("timestamp cannot be zero")
	}
	if p.Timestamp.Before(now.Add(-10 * 365 * 24 * time.Hour)) {
		return fmt.Errorf("timestamp too far in past: %s", p.Timestamp)
	}
	if p.Timestamp.After(now.Add(24 * time.Hour)) {
		return fmt.Errorf("timestamp too far in future: %s", p.Timestamp)
	}
	return nil
}
