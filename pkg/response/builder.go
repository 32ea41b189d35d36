package response

import (
	"github.com/nicktill/tinyslice/pkg/result"
)

// DateTimeKey is the row key holding the formatted timestamp
const DateTimeKey = "dateTime"

// BuildRow shapes a result for the flat formats (JSON and CSV), in request
// order. Requested dimension fields appear inline under "<dimension>|<field>";
// key-only dimensions appear under the dimension name.
func (d *Data) BuildRow(r *result.Result) *Row {
	row := NewRow(1 + len(r.Dimensions) + len(d.apiMetrics))
	row.Set(DateTimeKey, r.Timestamp.UTC().Format(d.timeLayout))

	for _, df := range d.fields {
		dim := df.Dimension
		if dim == nil {
			continue
		}
		dr, _ := r.DimensionRow(dim)

		if len(df.Fields) == 0 {
			row.Set(dim.APIName, optionalValue(dr.Get(dim.Key)))
			continue
		}
		for _, f := range df.Fields {
			row.Set(d.namer.Name(dim, f), optionalValue(dr.Get(f)))
		}
	}

	d.putMetrics(row, r)
	return row
}

// BuildRowWithSidecars shapes a result for JSON-API. Every dimension appears
// inline by key only; the requested fields (plus the key) are collected into
// sidecars, one distinct entry per dimension member.
func (d *Data) BuildRowWithSidecars(r *result.Result, sidecars *Sidecars) *Row {
	row := NewRow(1 + len(r.Dimensions) + len(d.apiMetrics))
	row.Set(DateTimeKey, r.Timestamp.UTC().Format(d.timeLayout))

	for _, e := range r.Dimensions {
		dim := e.Column.Dimension

		if fields := d.sidecarFields[dim]; len(fields) > 0 {
			entry := make(SidecarEntry, len(fields))
			for i, f := range fields {
				v, ok := e.Row.Get(f)
				entry[i] = FieldValue{Field: f, Value: v, Present: ok}
			}
			sidecars.Add(dim, entry)
		}

		row.Set(dim.APIName, e.Row.Key(dim))
	}

	d.putMetrics(row, r)
	return row
}

func (d *Data) putMetrics(row *Row, r *result.Result) {
	for _, mc := range d.apiMetrics {
		if mc.Column == nil {
			row.Set(mc.Name, nil)
			continue
		}
		row.Set(mc.Name, r.MetricValue(*mc.Column))
	}
}

// CSVHeader returns the CSV columns: dateTime, requested dimension columns in
// request order, then requested metrics. It matches the keys BuildRow emits.
func (d *Data) CSVHeader() []string {
	header := []string{DateTimeKey}
	for _, df := range d.fields {
		if df.Dimension == nil {
			continue
		}
		if len(df.Fields) == 0 {
			header = append(header, df.Dimension.APIName)
			continue
		}
		for _, f := range df.Fields {
			header = append(header, d.namer.Name(df.Dimension, f))
		}
	}
	for _, mc := range d.apiMetrics {
		header = append(header, mc.Name)
	}
	return header
}

// optionalValue turns a (value, ok) lookup into a value or nil
func optionalValue(v string, ok bool) interface{} {
	if !ok {
		return nil
	}
	return v
}
