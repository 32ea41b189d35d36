package response

import (
	"sync"

	"github.com/nicktill/tinyslice/pkg/dimension"
)

// ColumnNamer derives "<dimension>|<field>" column names and caches them.
// Create one per process and share it between responses; it is safe for
// concurrent use and entries are never invalidated.
type ColumnNamer struct {
	// *dimension.Dimension -> *sync.Map (dimension.Field -> string)
	names sync.Map
}

// NewColumnNamer creates an empty namer
func NewColumnNamer() *ColumnNamer {
	return &ColumnNamer{}
}

// Name returns the display name of a dimension field column.
// Transient dimensions are named without caching.
func (n *ColumnNamer) Name(d *dimension.Dimension, f dimension.Field) string {
	if d.Transient {
		return d.APIName + "|" + f.Name
	}
	fields, ok := n.names.Load(d)
	if !ok {
		fields, _ = n.names.LoadOrStore(d, &sync.Map{})
	}
	byField := fields.(*sync.Map)

	if name, ok := byField.Load(f); ok {
		return name.(string)
	}
	// Racing callers compute the same string; whichever is stored wins.
	name, _ := byField.LoadOrStore(f, d.APIName+"|"+f.Name)
	return name.(string)
}
