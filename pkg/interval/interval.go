package interval

import (
	"fmt"
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// New creates an interval
func New(start, end time.Time) Interval {
	return Interval{Start: start, End: end}
}

// Format renders the interval as "<start>/<end>" in UTC using the given layout
func (i Interval) Format(layout string) string {
	return i.Start.UTC().Format(layout) + "/" + i.End.UTC().Format(layout)
}

// Overlaps reports whether two intervals share any instant
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Duration returns End - Start
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// String implements fmt.Stringer
func (i Interval) String() string {
	return i.Format(time.RFC3339)
}

// List is a list of intervals kept sorted with overlapping and abutting
// intervals merged. A nil List means "not reported".
type List []Interval

// Simplify returns a sorted copy of the intervals with overlaps merged
func Simplify(intervals []Interval) List {
	if len(intervals) == 0 {
		return List{}
	}

	sorted := make([]Interval, 0, len(intervals))
	for _, i := range intervals {
		if i.End.Before(i.Start) {
			i.Start, i.End = i.End, i.Start
		}
		sorted = append(sorted, i)
	}
	sort.Slice(sorted, func(a, b int) bool {
		return sorted[a].Start.Before(sorted[b].Start)
	})

	merged := List{sorted[0]}
	for _, i := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !i.Start.After(last.End) {
			if i.End.After(last.End) {
				last.End = i.End
			}
			continue
		}
		merged = append(merged, i)
	}
	return merged
}

// Add returns the list with another interval merged in
func (l List) Add(i Interval) List {
	return Simplify(append(append([]Interval{}, l...), i))
}

// Strings renders every interval with the given layout
func (l List) Strings(layout string) []string {
	out := make([]string, len(l))
	for i, iv := range l {
		out[i] = iv.Format(layout)
	}
	return out
}

// Grain is a bucketing granularity
type Grain string

const (
	GrainMinute Grain = "minute"
	GrainHour   Grain = "hour"
	GrainDay    Grain = "day"
	GrainAll    Grain = "all"
)

// ParseGrain validates a granularity name
func ParseGrain(s string) (Grain, error) {
	switch g := Grain(s); g {
	case GrainMinute, GrainHour, GrainDay, GrainAll:
		return g, nil
	case "":
		return GrainHour, nil
	default:
		return "", fmt.Errorf("unknown granularity %q (want minute, hour, day or all)", s)
	}
}

// Truncate rounds t down to the start of its bucket. For GrainAll the bucket
// starts at origin.
func (g Grain) Truncate(t, origin time.Time) time.Time {
	t = t.UTC()
	switch g {
	case GrainMinute:
		return t.Truncate(time.Minute)
	case GrainHour:
		return t.Truncate(time.Hour)
	case GrainDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		return origin.UTC()
	}
}

// Next returns the start of the bucket after the one starting at t
func (g Grain) Next(t time.Time, end time.Time) time.Time {
	switch g {
	case GrainMinute:
		return t.Add(time.Minute)
	case GrainHour:
		return t.Add(time.Hour)
	case GrainDay:
		return t.AddDate(0, 0, 1)
	default:
		return end.UTC()
	}
}

// Buckets splits [start, end) into grain-aligned buckets clipped to the range
func Buckets(start, end time.Time, g Grain) []Interval {
	if !start.Before(end) {
		return nil
	}
	var out []Interval
	for b := g.Truncate(start, start); b.Before(end); {
		next := g.Next(b, end)
		if !next.After(b) {
			break
		}
		s := b
		if s.Before(start) {
			s = start.UTC()
		}
		e := next
		if e.After(end) {
			e = end.UTC()
		}
		out = append(out, Interval{Start: s, End: e})
		b = next
	}
	return out
}
