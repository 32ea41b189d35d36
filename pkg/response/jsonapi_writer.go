package response

import (
	"io"

	"github.com/nicktill/tinyslice/pkg/result"
)

// JSONAPIWriter writes rows with dimension keys inline and the requested
// dimension fields as one deduplicated array per dimension:
//
//	{"rows":[...],"country":[{"id":"US","name":"United States"}],"meta":{...}}
type JSONAPIWriter struct{}

// Write implements Writer
func (JSONAPIWriter) Write(w io.Writer, d *Data) error {
	g := newGenerator(w)
	sidecars := NewSidecars(d.resultSet.Schema().DimensionColumns)

	g.StartObject()
	g.Field("rows")
	g.StartArray()
	if err := g.Err(); err != nil {
		return writeErr(FormatJSONAPI, StageHeader, -1, nil, err)
	}

	err := eachResult(d, func(i int, r *result.Result) error {
		row := d.BuildRowWithSidecars(r, sidecars)
		g.Row(row)
		if err := g.Err(); err != nil {
			return writeErr(FormatJSONAPI, StageRow, i, row, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.EndArray()

	for _, dim := range sidecars.Dimensions() {
		sc, _ := sidecars.Get(dim)
		g.Field(dim.APIName)
		g.StartArray()
		for _, entry := range sc.Entries() {
			g.StartObject()
			for _, fv := range entry {
				if fv.Present {
					g.FieldValue(fv.Field.Name, fv.Value)
				} else {
					g.FieldValue(fv.Field.Name, nil)
				}
			}
			g.EndObject()
		}
		g.EndArray()
		if err := g.Err(); err != nil {
			return writeErr(FormatJSONAPI, StageSidecar, -1, nil, err)
		}
	}

	d.writeMeta(g)
	g.EndObject()
	if err := g.Err(); err != nil {
		return writeErr(FormatJSONAPI, StageMeta, -1, nil, err)
	}
	if err := g.Flush(); err != nil {
		return writeErr(FormatJSONAPI, StageFlush, -1, nil, err)
	}
	return nil
}
