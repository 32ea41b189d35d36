package data

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/interval"
	"github.com/nicktill/tinyslice/pkg/response"
)

// ErrBadRequest marks errors caused by the request rather than the server
var ErrBadRequest = errors.New("bad request")

// DimensionRequest is one requested dimension and its fields, in order.
// No fields means the key only.
type DimensionRequest struct {
	Name   string
	Fields []string
}

// Request is a parsed data query
type Request struct {
	Metrics    []string
	Dimensions []DimensionRequest
	Filters    map[string]string
	Start      time.Time
	End        time.Time
	Grain      interval.Grain
	Format     response.Format
	Page       int
	PerPage    int // 0 = no pagination
}

// Paginated reports whether the request asked for a page
func (r *Request) Paginated() bool {
	return r.PerPage > 0
}

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// ParseRequest reads a query from URL parameters:
//
//	metrics=clicks,revenue
//	dimensions=country|id,name;device
//	filters=country|US;device|ios
//	dateTime=2024-01-01T00:00:00Z/2024-01-02T00:00:00Z
//	grain=hour&format=csv&page=2&perPage=100
//
// dateTime defaults to the trailing day ending at now.
func ParseRequest(q url.Values, now time.Time, maxPerPage int) (*Request, error) {
	req := &Request{
		Metrics: splitList(q.Get("metrics"), ","),
	}
	if len(req.Metrics) == 0 {
		return nil, badRequest("metrics parameter required")
	}

	dims, err := parseDimensions(q.Get("dimensions"))
	if err != nil {
		return nil, err
	}
	req.Dimensions = dims

	if req.Filters, err = parseFilters(q.Get("filters")); err != nil {
		return nil, err
	}

	if req.Start, req.End, err = parseDateTime(q.Get("dateTime"), now); err != nil {
		return nil, err
	}

	if req.Grain, err = interval.ParseGrain(q.Get("grain")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	if req.Format, err = response.ParseFormat(q.Get("format")); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	if req.PerPage, err = parsePositive(q, "perPage", config.DataDefaultPerPage); err != nil {
		return nil, err
	}
	if req.PerPage > maxPerPage {
		return nil, badRequest("perPage must be at most %d", maxPerPage)
	}
	if req.Page, err = parsePositive(q, "page", 1); err != nil {
		return nil, err
	}
	if q.Get("page") != "" && !req.Paginated() {
		return nil, badRequest("page requires perPage")
	}

	return req, nil
}

// parseDimensions parses "country|id,name;device". A dimension may appear once.
func parseDimensions(s string) ([]DimensionRequest, error) {
	var out []DimensionRequest
	seen := make(map[string]bool)
	for _, part := range splitList(s, ";") {
		name, fields, _ := strings.Cut(part, "|")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, badRequest("dimension without a name in %q", part)
		}
		if seen[name] {
			return nil, badRequest("dimension %q requested twice", name)
		}
		seen[name] = true
		out = append(out, DimensionRequest{Name: name, Fields: splitList(fields, ",")})
	}
	return out, nil
}

// parseFilters parses "country|US;device|ios" into label equality filters
func parseFilters(s string) (map[string]string, error) {
	parts := splitList(s, ";")
	if len(parts) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(parts))
	for _, part := range parts {
		name, value, ok := strings.Cut(part, "|")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, badRequest("filter %q must be dimension|value", part)
		}
		filters[strings.TrimSpace(name)] = value
	}
	return filters, nil
}

func parseDateTime(s string, now time.Time) (time.Time, time.Time, error) {
	if s == "" {
		return now.Add(-config.DataDefaultWindow), now, nil
	}
	startStr, endStr, ok := strings.Cut(s, "/")
	if !ok {
		return time.Time{}, time.Time{}, badRequest("dateTime must be <start>/<end>, got %q", s)
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(startStr))
	if err != nil {
		return time.Time{}, time.Time{}, badRequest("invalid dateTime start %q", startStr)
	}
	end, err := time.Parse(time.RFC3339, strings.TrimSpace(endStr))
	if err != nil {
		return time.Time{}, time.Time{}, badRequest("invalid dateTime end %q", endStr)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, badRequest("dateTime start must be before end")
	}
	if end.Sub(start) > config.DataMaxWindow {
		return time.Time{}, time.Time{}, badRequest("dateTime window too large (max %v)", config.DataMaxWindow)
	}
	return start, end, nil
}

func parsePositive(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, badRequest("%s must be a positive integer, got %q", name, s)
	}
	return n, nil
}

// splitList splits on sep, trimming space and dropping empty items
func splitList(s, sep string) []string {
	var out []string
	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
