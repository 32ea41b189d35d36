package ingest

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/nicktill/tinyslice/pkg/storage"
)

func TestValidatePoint(t *testing.T) {
	tests := []struct {
		name    string
		point   storage.Point
		wantErr error
	}{
		{
			name:  "valid point",
			point: storage.Point{Name: "clicks", Value: 1, Labels: map[string]string{"country": "US"}, Timestamp: time.Now()},
		},
		{
			name:    "empty metric name",
			point:   storage.Point{Value: 1},
			wantErr: ErrMetricNameEmpty,
		},
		{
			name:    "metric name too long",
			point:   storage.Point{Name: strings.Repeat("x", MaxMetricNameLength+1)},
			wantErr: ErrMetricNameTooLong,
		},
		{
			name:    "NaN value",
			point:   storage.Point{Name: "clicks", Value: math.NaN()},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "infinite value",
			point:   storage.Point{Name: "clicks", Value: math.Inf(1)},
			wantErr: ErrInvalidValue,
		},
		{
			name:    "too many labels",
			point:   storage.Point{Name: "clicks", Labels: generateLabels(MaxLabelsPerPoint + 1)},
			wantErr: ErrTooManyLabels,
		},
		{
			name:    "empty label key",
			point:   storage.Point{Name: "clicks", Labels: map[string]string{"": "x"}},
			wantErr: ErrLabelKeyEmpty,
		},
		{
			name:    "label key too long",
			point:   storage.Point{Name: "clicks", Labels: map[string]string{strings.Repeat("k", MaxLabelKeyLength+1): "v"}},
			wantErr: ErrLabelKeyTooLong,
		},
		{
			name:    "label value too long",
			point:   storage.Point{Name: "clicks", Labels: map[string]string{"k": strings.Repeat("v", MaxLabelValueLength+1)}},
			wantErr: ErrLabelValueTooLong,
		},
		{
			name:  "max valid labels",
			point: storage.Point{Name: "clicks", Labels: generateLabels(MaxLabelsPerPoint)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePoint(tt.point)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidatePoint() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidatePoint() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCardinalityTracker(t *testing.T) {
	tracker := NewCardinalityTracker()

	p1 := storage.Point{Name: "clicks", Labels: map[string]string{"country": "US"}}
	if err := tracker.Check(p1); err != nil {
		t.Errorf("Check() failed for new series: %v", err)
	}
	tracker.Record(p1)

	if err := tracker.Check(p1); err != nil {
		t.Errorf("Check() failed for existing series: %v", err)
	}

	p2 := storage.Point{Name: "clicks", Labels: map[string]string{"country": "FR"}}
	if err := tracker.Check(p2); err != nil {
		t.Errorf("Check() failed for new series: %v", err)
	}
	tracker.Record(p2)
	tracker.Record(p2)

	stats := tracker.Stats()
	if stats.TotalSeries != 2 {
		t.Errorf("Expected 2 total series, got %d", stats.TotalSeries)
	}
	if stats.UniqueMetrics != 1 {
		t.Errorf("Expected 1 unique metric, got %d", stats.UniqueMetrics)
	}
	if stats.MaxSeriesMetric != "clicks" || stats.MaxSeriesCount != 2 {
		t.Errorf("Unexpected max series %q=%d", stats.MaxSeriesMetric, stats.MaxSeriesCount)
	}
}

func TestCardinalityTracker_PerMetricLimit(t *testing.T) {
	tracker := NewCardinalityTracker()

	for i := 0; i < MaxSeriesPerMetric; i++ {
		p := storage.Point{Name: "clicks", Labels: map[string]string{"id": fmt.Sprint(i)}}
		if err := tracker.Check(p); err != nil {
			t.Fatalf("Check() failed at %d/%d: %v", i, MaxSeriesPerMetric, err)
		}
		tracker.Record(p)
	}

	err := tracker.Check(storage.Point{Name: "clicks", Labels: map[string]string{"id": "new"}})
	if err != ErrMetricCardinalityLimit {
		t.Errorf("Expected ErrMetricCardinalityLimit, got %v", err)
	}

	if err := tracker.Check(storage.Point{Name: "revenue", Labels: map[string]string{"id": "1"}}); err != nil {
		t.Errorf("Check() failed for different metric: %v", err)
	}
}

func TestCardinalityTracker_ForgetsStaleSeries(t *testing.T) {
	tracker := NewCardinalityTracker()
	now := time.Now()
	tracker.now = func() time.Time { return now }

	tracker.Record(storage.Point{Name: "clicks", Labels: map[string]string{"country": "US"}})

	now = now.Add(seriesRetentionPeriod + cleanupInterval + time.Minute)
	tracker.Record(storage.Point{Name: "clicks", Labels: map[string]string{"country": "FR"}})
	if err := tracker.Check(storage.Point{Name: "revenue"}); err != nil {
		t.Fatalf("Check() failed: %v", err)
	}

	stats := tracker.Stats()
	if stats.TotalSeries != 1 {
		t.Errorf("Expected stale series to be forgotten, got %d series", stats.TotalSeries)
	}
}

func generateLabels(n int) map[string]string {
	labels := make(map[string]string, n)
	for i := 0; i < n; i++ {
		labels[fmt.Sprintf("label%d", i)] = "value"
	}
	return labels
}
