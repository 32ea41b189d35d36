package response

import (
	"io"
	"sync/atomic"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/dimension"
	"github.com/nicktill/tinyslice/pkg/interval"
	"github.com/nicktill/tinyslice/pkg/pagination"
	"github.com/nicktill/tinyslice/pkg/result"
)

// DimensionFields is the ordered list of fields requested for one dimension.
// An empty list means only the key is shown.
type DimensionFields struct {
	Dimension *dimension.Dimension
	Fields    []dimension.Field
}

// APIMetricColumn is a requested metric. Column is nil when the result set
// has no such metric; its values are then written as null.
type APIMetricColumn struct {
	Name   string
	Column *result.MetricColumn
}

// Options carries everything a response needs besides the result set
type Options struct {
	// MetricNames are the requested metrics, in output order
	MetricNames []string

	// DimensionFields are the requested dimensions, in output order
	DimensionFields []DimensionFields

	// Format selects the writer. Empty means the selector's default.
	Format Format

	MissingIntervals  interval.List
	VolatileIntervals interval.List // nil when not reported

	// Pagination is nil when the response is not paginated
	Pagination      *pagination.Pagination
	PaginationLinks []pagination.Link

	// TimeLayout is the Go layout for dateTime and interval values (default config.OutputDateFormat)
	TimeLayout string

	// PartialData enables missing-interval reporting
	PartialData bool

	// Namer is the shared column name cache (default: a private one)
	Namer *ColumnNamer

	// Selector maps formats to writers (default: NewSelector())
	Selector *Selector
}

// Data is one response: a result set plus how to present it.
// It can be written exactly once.
type Data struct {
	resultSet  result.ResultSet
	apiMetrics []APIMetricColumn
	fields     []DimensionFields
	// requested fields plus the key, for sidecar entries
	sidecarFields map[*dimension.Dimension][]dimension.Field

	format            Format
	missingIntervals  interval.List
	volatileIntervals interval.List
	pagination        *pagination.Pagination
	paginationLinks   []pagination.Link
	timeLayout        string
	partialData       bool

	namer    *ColumnNamer
	selector *Selector

	written atomic.Bool
	rows    int
}

// NewData prepares a response for a result set
func NewData(rs result.ResultSet, opts Options) *Data {
	d := &Data{
		resultSet:         rs,
		fields:            opts.DimensionFields,
		sidecarFields:     make(map[*dimension.Dimension][]dimension.Field, len(opts.DimensionFields)),
		format:            opts.Format,
		missingIntervals:  opts.MissingIntervals,
		volatileIntervals: opts.VolatileIntervals,
		pagination:        opts.Pagination,
		paginationLinks:   opts.PaginationLinks,
		timeLayout:        opts.TimeLayout,
		partialData:       opts.PartialData,
		namer:             opts.Namer,
		selector:          opts.Selector,
	}
	if d.timeLayout == "" {
		d.timeLayout = config.OutputDateFormat
	}
	if d.namer == nil {
		d.namer = NewColumnNamer()
	}
	if d.selector == nil {
		d.selector = NewSelector()
	}

	for _, df := range opts.DimensionFields {
		if df.Dimension == nil {
			continue
		}
		d.sidecarFields[df.Dimension] = withKeyField(df.Dimension, df.Fields)
	}

	d.apiMetrics = apiMetricColumns(rs.Schema(), opts.MetricNames)
	return d
}

// withKeyField returns a copy of fields with the dimension key appended when
// missing. The caller's slice is never modified.
func withKeyField(d *dimension.Dimension, fields []dimension.Field) []dimension.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]dimension.Field, len(fields), len(fields)+1)
	copy(out, fields)
	for _, f := range fields {
		if f == d.Key {
			return out
		}
	}
	return append(out, d.Key)
}

// apiMetricColumns intersects the requested names with the schema, keeping
// requested order and de-duplicating names. Unknown names are kept without a column.
func apiMetricColumns(schema *result.Schema, names []string) []APIMetricColumn {
	seen := make(map[string]bool, len(names))
	cols := make([]APIMetricColumn, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		col := APIMetricColumn{Name: name}
		if mc, ok := schema.MetricColumn(name); ok {
			col.Column = &mc
		}
		cols = append(cols, col)
	}
	return cols
}

// Write encodes the whole response to w in the requested format.
// It must be called once; later calls return ErrAlreadyWritten.
func (d *Data) Write(w io.Writer) error {
	if !d.written.CompareAndSwap(false, true) {
		return ErrAlreadyWritten
	}

	writer, err := d.selector.Select(d.format)
	if err != nil {
		return err
	}
	return writer.Write(w, d)
}

// Format returns the format the response will be written in
func (d *Data) Format() Format {
	return d.selector.Resolve(d.format)
}

// ContentType returns the HTTP content type of the response
func (d *Data) ContentType() string {
	return d.Format().ContentType()
}

// ResultSet returns the underlying result set
func (d *Data) ResultSet() result.ResultSet {
	return d.resultSet
}

// APIMetricColumns returns the requested metric columns in output order
func (d *Data) APIMetricColumns() []APIMetricColumn {
	return d.apiMetrics
}

// RowsWritten returns how many data rows have been written so far
func (d *Data) RowsWritten() int {
	return d.rows
}

// MissingIntervals returns the intervals reported as missing
func (d *Data) MissingIntervals() interval.List {
	return d.missingIntervals
}

// VolatileIntervals returns the intervals reported as volatile
func (d *Data) VolatileIntervals() interval.List {
	return d.volatileIntervals
}

// Pagination returns the pagination descriptor, nil when not paginating
func (d *Data) Pagination() *pagination.Pagination {
	return d.pagination
}
