package response

import (
	"fmt"
	"log"
	"sort"
)

// Selector maps formats to writers. Register at startup; after that the
// selector is only read and is safe to share between requests.
type Selector struct {
	writers  map[Format]Writer
	fallback Format
}

// NewSelector returns a selector with the JSON, JSON-API and CSV writers
// registered and JSON as the default
func NewSelector() *Selector {
	s := &Selector{
		writers:  make(map[Format]Writer),
		fallback: FormatJSON,
	}
	s.Register(FormatJSON, JSONWriter{})
	s.Register(FormatJSONAPI, JSONAPIWriter{})
	s.Register(FormatCSV, CSVWriter{})
	return s
}

// Register sets the writer for a format (last one wins)
func (s *Selector) Register(f Format, w Writer) {
	s.writers[f] = w
}

// SetDefault changes the format used when none is requested
func (s *Selector) SetDefault(f Format) {
	s.fallback = f
}

// Validate checks that the default format has a writer
func (s *Selector) Validate() error {
	if _, ok := s.writers[s.fallback]; !ok {
		return fmt.Errorf("%w: %q", ErrNoDefaultWriter, s.fallback)
	}
	return nil
}

// Resolve returns the format that will actually be used for a request
func (s *Selector) Resolve(f Format) Format {
	if f == "" {
		return s.fallback
	}
	if _, ok := s.writers[f]; !ok {
		return s.fallback
	}
	return f
}

// Select returns the writer for a format. Empty or unregistered formats get
// the default writer; the latter is logged.
func (s *Selector) Select(f Format) (Writer, error) {
	if w, ok := s.writers[f]; ok && f != "" {
		return w, nil
	}
	if f != "" {
		log.Printf("⚠️  No writer registered for format %q, using %q", f, s.fallback)
	}

	w, ok := s.writers[s.fallback]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoDefaultWriter, s.fallback)
	}
	return w, nil
}

// Formats lists the registered formats
func (s *Selector) Formats() []Format {
	out := make([]Format, 0, len(s.writers))
	for f := range s.writers {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
