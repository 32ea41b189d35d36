package data

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/dimension"
	"github.com/nicktill/tinyslice/pkg/interval"
	"github.com/nicktill/tinyslice/pkg/pagination"
	"github.com/nicktill/tinyslice/pkg/response"
	"github.com/nicktill/tinyslice/pkg/result"
	"github.com/nicktill/tinyslice/pkg/storage"
)

// Builder turns stored points into sliced, aggregated result sets
type Builder struct {
	store          storage.Storage
	dict           *dimension.Dictionary
	volatileWindow time.Duration
	now            func() time.Time
}

// NewBuilder creates a builder. A zero volatileWindow disables volatile reporting.
func NewBuilder(store storage.Storage, dict *dimension.Dictionary, volatileWindow time.Duration) *Builder {
	if dict == nil {
		dict = dimension.NewDictionary()
	}
	return &Builder{
		store:          store,
		dict:           dict,
		volatileWindow: volatileWindow,
		now:            time.Now,
	}
}

// Slice is a built result plus what the response needs to describe it
type Slice struct {
	Results    *result.Set
	Total      int // rows before pagination
	Fields     []response.DimensionFields
	Missing    interval.List
	Volatile   interval.List // nil when not reported
	Pagination *pagination.Pagination
}

// group accumulates the points of one bucket and dimension key combination
type group struct {
	bucket int
	keys   []string
	sums   map[string]float64
}

// Build runs a request: one row per (bucket, dimension keys) with metric values summed
func (b *Builder) Build(ctx context.Context, req *Request) (*Slice, error) {
	fields, err := b.resolveFields(req.Dimensions)
	if err != nil {
		return nil, err
	}

	buckets := interval.Buckets(req.Start, req.End, req.Grain)
	if len(buckets) > config.MaxBuckets {
		return nil, badRequest("%d %s buckets requested (max %d)", len(buckets), req.Grain, config.MaxBuckets)
	}

	points, err := b.store.Query(ctx, storage.QueryRequest{
		Start:       req.Start,
		End:         req.End,
		MetricNames: req.Metrics,
		Labels:      req.Filters,
	})
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	groups := make(map[string]*group)
	filled := make([]bool, len(buckets))
	seenMetric := make(map[string]bool)

	for _, p := range points {
		bi := bucketIndex(buckets, p.Timestamp)
		if bi < 0 {
			continue
		}
		filled[bi] = true
		seenMetric[p.Name] = true

		keys := make([]string, len(fields))
		for i, df := range fields {
			keys[i] = p.Labels[df.Dimension.APIName]
		}
		id := groupID(bi, keys)

		g, ok := groups[id]
		if !ok {
			g = &group{bucket: bi, keys: keys, sums: make(map[string]float64)}
			groups[id] = g
		}
		g.sums[p.Name] += p.Value
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].bucket != ordered[j].bucket {
			return ordered[i].bucket < ordered[j].bucket
		}
		return lessKeys(ordered[i].keys, ordered[j].keys)
	})

	schema := &result.Schema{}
	for _, df := range fields {
		schema.DimensionColumns = append(schema.DimensionColumns, result.DimensionColumn{Dimension: df.Dimension})
	}
	for _, name := range req.Metrics {
		if seenMetric[name] {
			if _, dup := schema.MetricColumn(name); !dup {
				schema.MetricColumns = append(schema.MetricColumns, result.MetricColumn{Name: name})
			}
		}
	}

	results := make([]result.Result, len(ordered))
	for i, g := range ordered {
		r := result.Result{
			Timestamp: buckets[g.bucket].Start,
			Metrics:   make(map[string]interface{}, len(g.sums)),
		}
		for k, df := range fields {
			r.Dimensions = append(r.Dimensions, result.DimensionEntry{
				Column: schema.DimensionColumns[k],
				Row:    b.dict.Row(df.Dimension, g.keys[k]),
			})
		}
		for name, sum := range g.sums {
			r.Metrics[name] = sum
		}
		results[i] = r
	}

	slice := &Slice{
		Total:    len(results),
		Fields:   fields,
		Missing:  missingIntervals(buckets, filled),
		Volatile: b.volatileIntervals(buckets),
	}

	set := result.NewSet(schema, results)
	if req.Paginated() {
		p, err := pagination.New(req.Page, req.PerPage, len(results))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
		slice.Pagination = p
		set = set.Slice(p.Bounds())
	}
	slice.Results = set
	return slice, nil
}

// resolveFields maps requested dimension names and fields to dimensions
func (b *Builder) resolveFields(reqs []DimensionRequest) ([]response.DimensionFields, error) {
	out := make([]response.DimensionFields, 0, len(reqs))
	for _, dr := range reqs {
		dim := b.dict.Resolve(dr.Name)
		df := response.DimensionFields{Dimension: dim}
		for _, name := range dr.Fields {
			f, err := dim.FieldByName(name)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
			}
			df.Fields = append(df.Fields, f)
		}
		out = append(out, df)
	}
	return out, nil
}

// bucketIndex finds the bucket holding t, or -1
func bucketIndex(buckets []interval.Interval, t time.Time) int {
	i := sort.Search(len(buckets), func(i int) bool {
		return buckets[i].End.After(t)
	})
	if i == len(buckets) || t.Before(buckets[i].Start) {
		return -1
	}
	return i
}

func groupID(bucket int, keys []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d", bucket)
	for _, k := range keys {
		sb.WriteByte(0)
		sb.WriteString(k)
	}
	return sb.String()
}

func lessKeys(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// missingIntervals returns the buckets no point fell into, merged
func missingIntervals(buckets []interval.Interval, filled []bool) interval.List {
	var missing []interval.Interval
	for i, ok := range filled {
		if !ok {
			missing = append(missing, buckets[i])
		}
	}
	return interval.Simplify(missing)
}

// volatileIntervals returns the buckets overlapping the trailing volatile window
func (b *Builder) volatileIntervals(buckets []interval.Interval) interval.List {
	if b.volatileWindow <= 0 {
		return nil
	}
	now := b.now()
	window := interval.New(now.Add(-b.volatileWindow), now)

	var volatile []interval.Interval
	for _, bucket := range buckets {
		if bucket.Overlaps(window) {
			volatile = append(volatile, bucket)
		}
	}
	return interval.Simplify(volatile)
}
