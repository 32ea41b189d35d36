package response

import (
	"github.com/cespare/xxhash/v2"

	"github.com/nicktill/tinyslice/pkg/dimension"
	"github.com/nicktill/tinyslice/pkg/result"
)

// FieldValue is one field of a sidecar entry. Present is false when the
// dimension row did not carry the field; it is then written as null.
type FieldValue struct {
	Field   dimension.Field
	Value   string
	Present bool
}

// SidecarEntry is the set of requested field values for one dimension member
type SidecarEntry []FieldValue

// Equal reports whether two entries hold the same fields and values
func (e SidecarEntry) Equal(o SidecarEntry) bool {
	if len(e) != len(o) {
		return false
	}
	for i := range e {
		if e[i] != o[i] {
			return false
		}
	}
	return true
}

func (e SidecarEntry) hash() uint64 {
	d := xxhash.New()
	for _, fv := range e {
		_, _ = d.WriteString(fv.Field.Name)
		if fv.Present {
			_, _ = d.Write([]byte{0, 1})
			_, _ = d.WriteString(fv.Value)
		} else {
			_, _ = d.Write([]byte{0, 0})
		}
		_, _ = d.Write([]byte{0xff})
	}
	return d.Sum64()
}

// Sidecar is a per-dimension set of distinct entries in first-seen order
type Sidecar struct {
	entries []SidecarEntry
	buckets map[uint64][]int
}

func newSidecar() *Sidecar {
	return &Sidecar{buckets: make(map[uint64][]int)}
}

// Add inserts an entry unless an equal one is already present.
// It reports whether the entry was new.
func (s *Sidecar) Add(e SidecarEntry) bool {
	h := e.hash()
	for _, i := range s.buckets[h] {
		if s.entries[i].Equal(e) {
			return false
		}
	}
	s.buckets[h] = append(s.buckets[h], len(s.entries))
	s.entries = append(s.entries, e)
	return true
}

// Entries returns the distinct entries in insertion order
func (s *Sidecar) Entries() []SidecarEntry {
	return s.entries
}

// Len returns the number of distinct entries
func (s *Sidecar) Len() int {
	return len(s.entries)
}

// Sidecars collects one Sidecar per dimension for a single response.
// It is not safe for concurrent use.
type Sidecars struct {
	order  []*dimension.Dimension
	tables map[*dimension.Dimension]*Sidecar
}

// NewSidecars creates an empty sidecar for every dimension column, in column order
func NewSidecars(columns []result.DimensionColumn) *Sidecars {
	s := &Sidecars{tables: make(map[*dimension.Dimension]*Sidecar, len(columns))}
	for _, c := range columns {
		s.table(c.Dimension)
	}
	return s
}

// table returns the dimension's sidecar, creating it if the schema did not list it
func (s *Sidecars) table(d *dimension.Dimension) *Sidecar {
	if t, ok := s.tables[d]; ok {
		return t
	}
	t := newSidecar()
	s.tables[d] = t
	s.order = append(s.order, d)
	return t
}

// Add records an entry for a dimension
func (s *Sidecars) Add(d *dimension.Dimension, e SidecarEntry) bool {
	return s.table(d).Add(e)
}

// Get returns the sidecar for a dimension
func (s *Sidecars) Get(d *dimension.Dimension) (*Sidecar, bool) {
	t, ok := s.tables[d]
	return t, ok
}

// Dimensions lists the dimensions in column order
func (s *Sidecars) Dimensions() []*dimension.Dimension {
	return s.order
}
