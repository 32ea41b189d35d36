package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Row is a string-keyed map that remembers insertion order.
// Setting an existing key replaces its value in place.
type Row struct {
	keys   []string
	values []interface{}
	index  map[string]int
}

// NewRow creates an empty row with room for n entries
func NewRow(n int) *Row {
	return &Row{
		keys:   make([]string, 0, n),
		values: make([]interface{}, 0, n),
		index:  make(map[string]int, n),
	}
}

// Set stores a value under key
func (r *Row) Set(key string, value interface{}) {
	if i, ok := r.index[key]; ok {
		r.values[i] = value
		return
	}
	r.index[key] = len(r.keys)
	r.keys = append(r.keys, key)
	r.values = append(r.values, value)
}

// Get returns the value under key
func (r *Row) Get(key string) (interface{}, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Keys returns the keys in insertion order
func (r *Row) Keys() []string {
	return r.keys
}

// Len returns the number of entries
func (r *Row) Len() int {
	return len(r.keys)
}

// MarshalJSON implements json.Marshaler, keeping insertion order
func (r *Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	g := newGenerator(&buf)
	g.Row(r)
	if err := g.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String renders the row for log and error messages
func (r *Row) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, r.values[i])
	}
	b.WriteByte('}')
	return b.String()
}

// formatCell renders a row value as a CSV cell. Missing values are empty.
func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if name, ok := nonFiniteName(val); ok {
			return name
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		if name, ok := nonFiniteName(float64(val)); ok {
			return name
		}
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// nonFiniteName spells NaN and the infinities the way JSON readers accept
// them as strings: "NaN", "Infinity", "-Infinity".
func nonFiniteName(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return "", false
}
