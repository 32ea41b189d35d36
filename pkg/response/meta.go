package response

import (
	"github.com/nicktill/tinyslice/pkg/interval"
	"github.com/nicktill/tinyslice/pkg/pagination"
)

// hasMeta reports whether any part of the meta block has something to say
func (d *Data) hasMeta() bool {
	return d.reportMissing() || len(d.volatileIntervals) > 0 || d.pagination != nil
}

func (d *Data) reportMissing() bool {
	return d.partialData && len(d.missingIntervals) > 0
}

// writeMeta writes the "meta" member of the enclosing object, or nothing
// when there are no missing intervals, volatile intervals or pagination.
func (d *Data) writeMeta(g *generator) {
	if !d.hasMeta() {
		return
	}

	g.Field("meta")
	g.StartObject()
	if d.reportMissing() {
		writeIntervals(g, "missingIntervals", d.missingIntervals, d.timeLayout)
	}
	if len(d.volatileIntervals) > 0 {
		writeIntervals(g, "volatileIntervals", d.volatileIntervals, d.timeLayout)
	}
	if d.pagination != nil {
		writePagination(g, d.pagination, d.paginationLinks)
	}
	g.EndObject()
}

func writeIntervals(g *generator, name string, l interval.List, layout string) {
	g.Field(name)
	g.StringArray(l.Strings(layout))
}

// writePagination writes the links in order followed by the page counters
func writePagination(g *generator, p *pagination.Pagination, links []pagination.Link) {
	g.Field("pagination")
	g.StartObject()
	for _, l := range links {
		g.FieldValue(l.Name, l.URL)
	}
	g.FieldValue("currentPage", p.Page)
	g.FieldValue("rowsPerPage", p.PerPage)
	g.FieldValue("numberOfResults", p.NumResults)
	g.EndObject()
}
