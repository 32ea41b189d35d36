package ingest

import (
	"fmt"
	"math"

	"github.com/nicktill/tinyslice/pkg/storage"
)

// Cardinality and validation limits
const (
	// Per-point limits
	MaxLabelsPerPoint   = 20   // Maximum labels (dimensions) per point
	MaxLabelKeyLength   = 256  // Maximum label key length
	MaxLabelValueLength = 1024 // Maximum label value length
	MaxMetricNameLength = 256  // Maximum metric name length

	// Global limits
	MaxUniqueSeries     = 100000 // Maximum unique series
	MaxSeriesPerMetric  = 10000  // Maximum series per metric name
	MaxPointsPerRequest = 1000   // Maximum points in a single ingest request
)

var (
	// ErrTooManyLabels is returned when a point has too many labels
	ErrTooManyLabels = fmt.Errorf("too many labels (max %d)", MaxLabelsPerPoint)

	// ErrLabelKeyTooLong is returned when a label key is too long
	ErrLabelKeyTooLong = fmt.Errorf("label key too long (max %d chars)", MaxLabelKeyLength)

	// ErrLabelKeyEmpty is returned for a label with an empty key
	ErrLabelKeyEmpty = fmt.Errorf("label key cannot be empty")

	// ErrLabelValueTooLong is returned when a label value is too long
	ErrLabelValueTooLong = fmt.Errorf("label value too long (max %d chars)", MaxLabelValueLength)

	// ErrMetricNameTooLong is returned when a metric name is too long
	ErrMetricNameTooLong = fmt.Errorf("metric name too long (max %d chars)", MaxMetricNameLength)

	// ErrMetricNameEmpty is returned when a metric name is empty
	ErrMetricNameEmpty = fmt.Errorf("metric name cannot be empty")

	// ErrInvalidValue is returned for NaN or infinite values
	ErrInvalidValue = fmt.Errorf("value must be a finite number")

	// ErrCardinalityLimit is returned when the total series limit is exceeded
	ErrCardinalityLimit = fmt.Errorf("cardinality limit exceeded (max %d unique series)", MaxUniqueSeries)

	// ErrMetricCardinalityLimit is returned when a single metric's series limit is exceeded
	ErrMetricCardinalityLimit = fmt.Errorf("metric cardinality limit exceeded (max %d series per metric)", MaxSeriesPerMetric)

	// ErrStorageFull is returned when the data directory has reached its size limit
	ErrStorageFull = fmt.Errorf("storage limit reached")

	// ErrTooManyPoints is returned when an ingest request contains too many points
	ErrTooManyPoints = fmt.Errorf("too many points in request (max %d)", MaxPointsPerRequest)
)

// ValidatePoint checks a point against the name, label and value limits
func ValidatePoint(p storage.Point) error {
	if p.Name == "" {
		return ErrMetricNameEmpty
	}
	if len(p.Name) > MaxMetricNameLength {
		return fmt.Errorf("%w: %q has %d chars", ErrMetricNameTooLong, p.Name, len(p.Name))
	}
	if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
		return fmt.Errorf("%w: metric %q", ErrInvalidValue, p.Name)
	}

	if len(p.Labels) > MaxLabelsPerPoint {
		return fmt.Errorf("%w: metric %q has %d labels", ErrTooManyLabels, p.Name, len(p.Labels))
	}
	for k, v := range p.Labels {
		if k == "" {
			return fmt.Errorf("%w: metric %q", ErrLabelKeyEmpty, p.Name)
		}
		if len(k) > MaxLabelKeyLength {
			return fmt.Errorf("%w: key %q in metric %q", ErrLabelKeyTooLong, k, p.Name)
		}
		if len(v) > MaxLabelValueLength {
			return fmt.Errorf("%w: value for key %q in metric %q", ErrLabelValueTooLong, k, p.Name)
		}
	}

	return nil
}
