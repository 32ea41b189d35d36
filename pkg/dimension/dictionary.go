package dimension

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Dictionary resolves dimension names to dimensions and label values to rows.
// Every stored label is a dimension: names not declared up front resolve to a
// transient key-only dimension that the dictionary does not keep, so query
// parameters cannot grow it.
type Dictionary struct {
	mu         sync.RWMutex
	dimensions map[string]*Dimension
	rows       map[*Dimension]map[string]Row
}

// NewDictionary creates an empty dictionary
func NewDictionary() *Dictionary {
	return &Dictionary{
		dimensions: make(map[string]*Dimension),
		rows:       make(map[*Dimension]map[string]Row),
	}
}

// fileSpec is the YAML layout of a dictionary file
type fileSpec struct {
	Dimensions []struct {
		Name        string              `yaml:"name"`
		Description string              `yaml:"description"`
		KeyField    string              `yaml:"keyField"`
		Fields      []string            `yaml:"fields"`
		Rows        []map[string]string `yaml:"rows"`
	} `yaml:"dimensions"`
}

// LoadFile reads a YAML dictionary from disk
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dimension file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a YAML dictionary
func Load(r io.Reader) (*Dictionary, error) {
	var doc fileSpec
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode dimension file: %w", err)
	}

	dict := NewDictionary()
	for _, ds := range doc.Dimensions {
		if ds.Name == "" {
			return nil, fmt.Errorf("dimension without a name")
		}
		keyField := ds.KeyField
		if keyField == "" {
			keyField = DefaultKeyField
		}
		dim := New(ds.Name, keyField, ds.Fields...)
		dim.Description = ds.Description
		if err := dict.Add(dim); err != nil {
			return nil, err
		}
		for _, values := range ds.Rows {
			row := make(Row, len(values))
			for name, value := range values {
				f, err := dim.FieldByName(name)
				if err != nil {
					return nil, err
				}
				row[f] = value
			}
			if err := dict.AddRow(dim, row); err != nil {
				return nil, err
			}
		}
	}
	return dict, nil
}

// Add registers a dimension
func (d *Dictionary) Add(dim *Dimension) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.dimensions[dim.APIName]; exists {
		return fmt.Errorf("dimension %q already registered", dim.APIName)
	}
	d.dimensions[dim.APIName] = dim
	d.rows[dim] = make(map[string]Row)
	return nil
}

// AddRow registers a known member of a dimension
func (d *Dictionary) AddRow(dim *Dimension, row Row) error {
	key, ok := row.Get(dim.Key)
	if !ok || key == "" {
		return fmt.Errorf("row for dimension %q is missing key field %q", dim.APIName, dim.Key.Name)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	rows, ok := d.rows[dim]
	if !ok {
		return fmt.Errorf("dimension %q is not registered", dim.APIName)
	}
	rows[key] = row
	return nil
}

// Lookup returns a registered dimension
func (d *Dictionary) Lookup(name string) (*Dimension, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	dim, ok := d.dimensions[name]
	return dim, ok
}

// Resolve returns the declared dimension, or a new transient key-only one.
// Callers resolve each name once per request; two transient results for the
// same name are distinct dimensions.
func (d *Dictionary) Resolve(name string) *Dimension {
	if dim, ok := d.Lookup(name); ok {
		return dim
	}
	dim := New(name, DefaultKeyField)
	dim.Transient = true
	return dim
}

// Row returns the known row for a key, or a key-only row
func (d *Dictionary) Row(dim *Dimension, key string) Row {
	d.mu.RLock()
	row, ok := d.rows[dim][key]
	d.mu.RUnlock()
	if ok {
		return row
	}
	return KeyRow(dim, key)
}

// Names lists the declared dimension names, sorted.
func (d *Dictionary) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.dimensions))
	for name := range d.dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Declared reports whether a dimension was added explicitly rather than resolved on the fly
func (d *Dictionary) Declared(name string) bool {
	_, ok := d.Lookup(name)
	return ok
}
