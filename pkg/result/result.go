package result

import (
	"time"

	"github.com/nicktill/tinyslice/pkg/dimension"
)

// DimensionColumn is a result column backed by a dimension
type DimensionColumn struct {
	Dimension *dimension.Dimension
}

// Name returns the column name (the dimension's API name)
func (c DimensionColumn) Name() string {
	return c.Dimension.APIName
}

// MetricColumn is a result column holding metric values
type MetricColumn struct {
	Name string
}

// Schema describes the columns present in a result set
type Schema struct {
	DimensionColumns []DimensionColumn
	MetricColumns    []MetricColumn
}

// MetricColumn finds a metric column by name
func (s *Schema) MetricColumn(name string) (MetricColumn, bool) {
	for _, c := range s.MetricColumns {
		if c.Name == name {
			return c, true
		}
	}
	return MetricColumn{}, false
}

// DimensionEntry pairs a dimension column with the row it resolved to
type DimensionEntry struct {
	Column DimensionColumn
	Row    dimension.Row
}

// Result is one output row: a timestamp, dimension rows and metric values
type Result struct {
	Timestamp  time.Time
	Dimensions []DimensionEntry
	Metrics    map[string]interface{}
}

// DimensionRow returns the row for a dimension, if the result carries it
func (r *Result) DimensionRow(d *dimension.Dimension) (dimension.Row, bool) {
	for _, e := range r.Dimensions {
		if e.Column.Dimension == d {
			return e.Row, true
		}
	}
	return nil, false
}

// MetricValue returns the value of a metric column, nil if absent
func (r *Result) MetricValue(c MetricColumn) interface{} {
	return r.Metrics[c.Name]
}
