package result

// Iterator walks a result set once, in emission order.
//
//	it := rs.Rows()
//	defer it.Close()
//	for it.Next() {
//	    r := it.Result()
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator interface {
	Next() bool
	Result() *Result
	Err() error
	Close() error
}

// ResultSet is an ordered, finite sequence of results with a schema
type ResultSet interface {
	Schema() *Schema
	Rows() Iterator
}

// Set is an in-memory ResultSet
type Set struct {
	schema  *Schema
	results []Result
}

// NewSet creates an in-memory result set. Results are emitted in slice order.
func NewSet(schema *Schema, results []Result) *Set {
	if schema == nil {
		schema = &Schema{}
	}
	return &Set{schema: schema, results: results}
}

// Schema returns the set's schema
func (s *Set) Schema() *Schema {
	return s.schema
}

// Len returns the number of results
func (s *Set) Len() int {
	return len(s.results)
}

// Results exposes the underlying slice
func (s *Set) Results() []Result {
	return s.results
}

// Slice returns a set holding results [from, to) with the same schema
func (s *Set) Slice(from, to int) *Set {
	return &Set{schema: s.schema, results: s.results[from:to]}
}

// Rows returns a fresh iterator over the set
func (s *Set) Rows() Iterator {
	return &sliceIterator{results: s.results, pos: -1}
}

type sliceIterator struct {
	results []Result
	pos     int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.results) {
		it.pos = len(it.results)
		return false
	}
	it.pos++
	return true
}

func (it *sliceIterator) Result() *Result {
	if it.pos < 0 || it.pos >= len(it.results) {
		return nil
	}
	return &it.results[it.pos]
}

func (it *sliceIterator) Err() error   { return nil }
func (it *sliceIterator) Close() error { return nil }
