package dimension

import "fmt"

// DefaultKeyField is the key field given to dimensions created from free-form labels
const DefaultKeyField = "id"

// Field is a named attribute of a dimension. Equal fields denote the same column.
type Field struct {
	Name string
}

// Dimension is a categorical axis of the data.
// Dimensions are shared by pointer; the pointer is the dimension's identity.
type Dimension struct {
	APIName     string
	Description string
	Key         Field
	Fields      []Field

	// Transient marks a key-only dimension made up for an undeclared label.
	// It lives for one request and must not be used as a cache key.
	Transient bool
}

// New creates a dimension whose key field is the first named field
func New(apiName string, keyField string, fields ...string) *Dimension {
	d := &Dimension{
		APIName: apiName,
		Key:     Field{Name: keyField},
	}
	d.Fields = append(d.Fields, d.Key)
	for _, name := range fields {
		if name == keyField {
			continue
		}
		d.Fields = append(d.Fields, Field{Name: name})
	}
	return d
}

// HasField reports whether the dimension declares the field
func (d *Dimension) HasField(f Field) bool {
	for _, candidate := range d.Fields {
		if candidate == f {
			return true
		}
	}
	return false
}

// FieldByName looks up a declared field
func (d *Dimension) FieldByName(name string) (Field, error) {
	f := Field{Name: name}
	if !d.HasField(f) {
		return Field{}, fmt.Errorf("dimension %q has no field %q", d.APIName, name)
	}
	return f, nil
}

// Row holds one member of a dimension: its key plus any descriptive fields
type Row map[Field]string

// Get returns the value of a field, if the row carries it
func (r Row) Get(f Field) (string, bool) {
	v, ok := r[f]
	return v, ok
}

// Key returns the value of the dimension's key field
func (r Row) Key(d *Dimension) string {
	return r[d.Key]
}

// KeyRow builds a row that only knows its key
func KeyRow(d *Dimension, key string) Row {
	return Row{d.Key: key}
}
