package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/tinyslice/pkg/dimension"
)

func TestRow_KeepsInsertionOrder(t *testing.T) {
	r := NewRow(3)
	r.Set("z", 1)
	r.Set("a", "two")
	r.Set("m", nil)
	r.Set("z", 3)

	assert.Equal(t, []string{"z", "a", "m"}, r.Keys())
	assert.Equal(t, 3, r.Len())

	v, ok := r.Get("z")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"z":3,"a":"two","m":null}`, string(b))
	assert.Equal(t, "{z=3, a=two, m=<nil>}", r.String())
}

func TestGenerator_NestedDocument(t *testing.T) {
	var buf bytes.Buffer
	g := newGenerator(&buf)

	g.StartObject()
	g.FieldValue("name", "<b>&</b>")
	g.Field("list")
	g.StartArray()
	g.Value(1)
	g.StartObject()
	g.FieldValue("x", true)
	g.EndObject()
	g.StartArray()
	g.EndArray()
	g.EndArray()
	g.Field("tags")
	g.StringArray([]string{"a", "b"})
	g.EndObject()
	require.NoError(t, g.Flush())

	assert.Equal(t, `{"name":"<b>&</b>","list":[1,{"x":true},[]],"tags":["a","b"]}`, buf.String())
	assert.True(t, json.Valid(buf.Bytes()))
}

func TestGenerator_FieldOutsideObject(t *testing.T) {
	g := newGenerator(io.Discard)
	g.StartArray()
	g.Field("oops")
	assert.ErrorIs(t, g.Err(), errGeneratorState)

	// sticky
	g.Value(1)
	assert.ErrorIs(t, g.Flush(), errGeneratorState)
}

func TestGenerator_UnencodableValue(t *testing.T) {
	g := newGenerator(io.Discard)
	g.StartArray()
	g.Value(make(chan int))
	assert.Error(t, g.Err())
}

func TestGenerator_BuffersUntilFlush(t *testing.T) {
	var buf bytes.Buffer
	g := newGenerator(&buf)
	g.StartArray()
	g.Value("x")
	assert.Zero(t, buf.Len())

	g.EndArray()
	require.NoError(t, g.Flush())
	assert.Equal(t, `["x"]`, buf.String())
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"US", "US"},
		{42.0, "42"},
		{0.1, "0.1"},
		{float32(1.5), "1.5"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
		{7, "7"},
		{int64(-3), "-3"},
		{uint64(9), "9"},
		{true, "true"},
		{json.Number("12.50"), "12.50"},
		{[]int{1, 2}, "[1,2]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatCell(tt.in), "%#v", tt.in)
	}
}

func TestColumnNamer(t *testing.T) {
	n := NewColumnNamer()
	name := dimension.Field{Name: "name"}

	assert.Equal(t, "country|name", n.Name(country, name))
	assert.Equal(t, "country|id", n.Name(country, countryID))
	assert.Equal(t, "device|id", n.Name(device, countryID))
}

func TestColumnNamer_TransientNotCached(t *testing.T) {
	n := NewColumnNamer()
	junk := dimension.NewDictionary().Resolve("junk")

	assert.Equal(t, "junk|id", n.Name(junk, junk.Key))
	_, cached := n.names.Load(junk)
	assert.False(t, cached)

	n.Name(country, countryID)
	_, cached = n.names.Load(country)
	assert.True(t, cached)
}

func TestGenerator_NonFiniteFloats(t *testing.T) {
	var buf bytes.Buffer
	g := newGenerator(&buf)
	g.StartArray()
	g.Value(math.Inf(1))
	g.Value(float32(math.Inf(-1)))
	g.Value(math.NaN())
	g.Value(1.5)
	g.EndArray()
	require.NoError(t, g.Flush())
	assert.Equal(t, `["Infinity","-Infinity","NaN",1.5]`, buf.String())
}

func TestColumnNamer_Concurrent(t *testing.T) {
	n := NewColumnNamer()
	dims := []*dimension.Dimension{country, device, dimension.New("os", "id", "version")}

	var wg sync.WaitGroup
	results := make([][]string, 16)
	for w := range results {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				for _, d := range dims {
					for _, f := range d.Fields {
						results[w] = append(results[w], n.Name(d, f))
					}
				}
			}
		}(w)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
	assert.Contains(t, results[0], "os|version")
}

func TestSidecar_Dedup(t *testing.T) {
	s := newSidecar()
	us := SidecarEntry{{Field: countryID, Value: "US", Present: true}, {Field: countryName, Value: "United States", Present: true}}
	usCopy := append(SidecarEntry(nil), us...)
	fr := SidecarEntry{{Field: countryID, Value: "FR", Present: true}, {Field: countryName}}
	frEmptyName := SidecarEntry{{Field: countryID, Value: "FR", Present: true}, {Field: countryName, Present: true}}

	assert.True(t, s.Add(us))
	assert.False(t, s.Add(usCopy))
	assert.True(t, s.Add(fr))
	assert.True(t, s.Add(frEmptyName), "absent and empty are different values")
	assert.False(t, s.Add(fr))

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []SidecarEntry{us, fr, frEmptyName}, s.Entries())
}

func TestSidecars_KeepsColumnOrder(t *testing.T) {
	s := NewSidecars(nil)
	s.Add(device, SidecarEntry{{Field: countryID, Value: "ios", Present: true}})
	s.Add(country, SidecarEntry{{Field: countryID, Value: "US", Present: true}})

	assert.Equal(t, []*dimension.Dimension{device, country}, s.Dimensions())
	_, ok := s.Get(country)
	assert.True(t, ok)
	_, ok = s.Get(dimension.New("os", "id"))
	assert.False(t, ok)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"":        "",
		"json":    FormatJSON,
		" CSV ":   FormatCSV,
		"JsonApi": FormatJSONAPI,
		"jsonapi": FormatJSONAPI,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

type recordingWriter struct{ calls int }

func (w *recordingWriter) Write(io.Writer, *Data) error {
	w.calls++
	return nil
}

func TestSelector_DefaultsAndFallback(t *testing.T) {
	s := NewSelector()
	assert.Equal(t, []Format{FormatCSV, FormatJSON, FormatJSONAPI}, s.Formats())
	require.NoError(t, s.Validate())

	w, err := s.Select("")
	require.NoError(t, err)
	assert.IsType(t, JSONWriter{}, w)

	w, err = s.Select(FormatCSV)
	require.NoError(t, err)
	assert.IsType(t, CSVWriter{}, w)

	w, err = s.Select("parquet")
	require.NoError(t, err)
	assert.IsType(t, JSONWriter{}, w)
	assert.Equal(t, FormatJSON, s.Resolve("parquet"))

	s.SetDefault(FormatCSV)
	assert.Equal(t, FormatCSV, s.Resolve(""))
	assert.Equal(t, FormatJSONAPI, s.Resolve(FormatJSONAPI))
}

func TestSelector_RegisterReplaces(t *testing.T) {
	s := NewSelector()
	rec := &recordingWriter{}
	s.Register(FormatJSON, rec)

	d := workedExample(FormatJSON)
	d.selector = s
	require.NoError(t, d.Write(io.Discard))
	assert.Equal(t, 1, rec.calls)
}

func TestSelector_MissingDefault(t *testing.T) {
	s := NewSelector()
	s.SetDefault("parquet")

	assert.ErrorIs(t, s.Validate(), ErrNoDefaultWriter)
	_, err := s.Select("")
	assert.ErrorIs(t, err, ErrNoDefaultWriter)

	w, err := s.Select(FormatCSV)
	require.NoError(t, err)
	assert.IsType(t, CSVWriter{}, w)
}

func TestWriteError_Messages(t *testing.T) {
	cause := errors.New("boom")

	rowErr := &WriteError{Format: FormatCSV, Stage: StageRow, Row: 3, Detail: "{a=1}", Err: cause}
	assert.Equal(t, "csv: unable to write data row 3 {a=1}: boom", rowErr.Error())

	metaErr := &WriteError{Format: FormatJSON, Stage: StageMeta, Row: -1, Err: cause}
	assert.Equal(t, "json: unable to write meta: boom", metaErr.Error())
	assert.ErrorIs(t, metaErr, cause)
}
