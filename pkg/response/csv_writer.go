package response

import (
	"encoding/csv"
	"io"

	"github.com/nicktill/tinyslice/pkg/result"
)

// CSVWriter writes a header record followed by one record per result.
// Cells are placed by header name, so a value can never land in the wrong column.
type CSVWriter struct{}

// Write implements Writer
func (CSVWriter) Write(w io.Writer, d *Data) error {
	cw := csv.NewWriter(w)
	header := d.CSVHeader()

	if err := cw.Write(header); err != nil {
		return writeErr(FormatCSV, StageHeader, -1, nil, err)
	}

	record := make([]string, len(header))
	err := eachResult(d, func(i int, r *result.Result) error {
		row := d.BuildRow(r)
		for c, name := range header {
			v, _ := row.Get(name)
			record[c] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return writeErr(FormatCSV, StageRow, i, row, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return writeErr(FormatCSV, StageFlush, -1, nil, err)
	}
	return nil
}
