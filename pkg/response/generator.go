package response

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

const generatorBufferSize = 32 * 1024

var errGeneratorState = errors.New("json generator: field name outside of an object")

// scope is one open object or array
type scope struct {
	array bool
	count int
}

// generator writes a JSON document incrementally. Output goes through a
// bufio.Writer, so the sink sees bytes as the buffer fills rather than at
// the end of the document. The first error is sticky: later calls are no-ops
// and Err reports it.
type generator struct {
	w       *bufio.Writer
	stack   []scope
	scratch bytes.Buffer
	enc     *json.Encoder
	err     error
}

func newGenerator(w io.Writer) *generator {
	g := &generator{w: bufio.NewWriterSize(w, generatorBufferSize)}
	g.enc = json.NewEncoder(&g.scratch)
	g.enc.SetEscapeHTML(false)
	return g
}

// Err returns the first error encountered
func (g *generator) Err() error {
	return g.err
}

// Flush pushes buffered bytes to the sink
func (g *generator) Flush() error {
	if g.err != nil {
		return g.err
	}
	g.err = g.w.Flush()
	return g.err
}

func (g *generator) raw(b []byte) {
	if g.err != nil {
		return
	}
	_, g.err = g.w.Write(b)
}

func (g *generator) rawByte(c byte) {
	if g.err != nil {
		return
	}
	g.err = g.w.WriteByte(c)
}

// beforeValue writes the array separator when needed
func (g *generator) beforeValue() {
	if len(g.stack) == 0 {
		return
	}
	top := &g.stack[len(g.stack)-1]
	if !top.array {
		return
	}
	if top.count > 0 {
		g.rawByte(',')
	}
	top.count++
}

// StartObject opens an object
func (g *generator) StartObject() {
	g.beforeValue()
	g.rawByte('{')
	g.stack = append(g.stack, scope{})
}

// EndObject closes the innermost object
func (g *generator) EndObject() {
	g.rawByte('}')
	g.pop()
}

// StartArray opens an array
func (g *generator) StartArray() {
	g.beforeValue()
	g.rawByte('[')
	g.stack = append(g.stack, scope{array: true})
}

// EndArray closes the innermost array
func (g *generator) EndArray() {
	g.rawByte(']')
	g.pop()
}

func (g *generator) pop() {
	if len(g.stack) > 0 {
		g.stack = g.stack[:len(g.stack)-1]
	}
}

// Field writes an object member name; the next call writes its value
func (g *generator) Field(name string) {
	if g.err != nil {
		return
	}
	if len(g.stack) == 0 || g.stack[len(g.stack)-1].array {
		g.err = errGeneratorState
		return
	}
	top := &g.stack[len(g.stack)-1]
	if top.count > 0 {
		g.rawByte(',')
	}
	top.count++
	g.encode(name)
	g.rawByte(':')
}

// Value writes a scalar or any json.Marshal-able value
func (g *generator) Value(v interface{}) {
	g.beforeValue()
	g.encode(v)
}

// encode writes v as JSON. NaN and infinite floats, which JSON numbers
// cannot carry, are written as strings.
func (g *generator) encode(v interface{}) {
	if g.err != nil {
		return
	}
	switch f := v.(type) {
	case float64:
		if name, ok := nonFiniteName(f); ok {
			v = name
		}
	case float32:
		if name, ok := nonFiniteName(float64(f)); ok {
			v = name
		}
	}
	g.scratch.Reset()
	if err := g.enc.Encode(v); err != nil {
		g.err = err
		return
	}
	// Encode terminates every value with a newline
	g.raw(bytes.TrimSuffix(g.scratch.Bytes(), []byte{'\n'}))
}

// FieldValue writes "name": value
func (g *generator) FieldValue(name string, v interface{}) {
	g.Field(name)
	g.encode(v)
}

// Row writes a row as an object, keys in insertion order
func (g *generator) Row(r *Row) {
	g.StartObject()
	for i, k := range r.keys {
		g.FieldValue(k, r.values[i])
	}
	g.EndObject()
}

// StringArray writes a list of strings as an array
func (g *generator) StringArray(values []string) {
	g.StartArray()
	for _, v := range values {
		g.Value(v)
	}
	g.EndArray()
}
