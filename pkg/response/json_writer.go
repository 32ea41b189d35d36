package response

import (
	"fmt"
	"io"
	"log"

	"github.com/nicktill/tinyslice/pkg/result"
)

// Writer encodes a response in one format
type Writer interface {
	Write(w io.Writer, d *Data) error
}

// JSONWriter writes {"rows":[...],"meta":{...}}
type JSONWriter struct{}

// Write implements Writer
func (JSONWriter) Write(w io.Writer, d *Data) error {
	g := newGenerator(w)

	g.StartObject()
	g.Field("rows")
	g.StartArray()
	if err := g.Err(); err != nil {
		return writeErr(FormatJSON, StageHeader, -1, nil, err)
	}

	err := eachResult(d, func(i int, r *result.Result) error {
		row := d.BuildRow(r)
		g.Row(row)
		if err := g.Err(); err != nil {
			return writeErr(FormatJSON, StageRow, i, row, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	g.EndArray()

	d.writeMeta(g)
	g.EndObject()
	if err := g.Err(); err != nil {
		return writeErr(FormatJSON, StageMeta, -1, nil, err)
	}
	if err := g.Flush(); err != nil {
		return writeErr(FormatJSON, StageFlush, -1, nil, err)
	}
	return nil
}

// eachResult drains the result set in emission order, counting rows as they go
func eachResult(d *Data, fn func(i int, r *result.Result) error) error {
	it := d.resultSet.Rows()
	defer it.Close()

	i := 0
	for it.Next() {
		if err := fn(i, it.Result()); err != nil {
			return err
		}
		i++
		d.rows = i
	}
	if err := it.Err(); err != nil {
		return fmt.Errorf("reading results: %w", err)
	}
	return nil
}

func writeErr(f Format, stage string, row int, r *Row, err error) error {
	we := &WriteError{Format: f, Stage: stage, Row: row, Err: err}
	if r != nil {
		we.Detail = r.String()
	}
	if IsBrokenPipe(err) {
		log.Printf("Client went away while writing %s %s: %v", f, stage, err)
	} else {
		log.Printf("Unable to write %s %s: %v", f, stage, err)
	}
	return we
}
