package data

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/httpx"
	"github.com/nicktill/tinyslice/pkg/response"
	"github.com/nicktill/tinyslice/pkg/telemetry"
)

// Options configure a Handler
type Options struct {
	Namer       *response.ColumnNamer
	Selector    *response.Selector
	Telemetry   *telemetry.Metrics // optional
	PartialData bool
	TimeLayout  string
	MaxPerPage  int
}

// Handler serves sliced data in the requested format
type Handler struct {
	builder *Builder
	opts    Options
	now     func() time.Time
}

// NewHandler creates a data handler
func NewHandler(builder *Builder, opts Options) *Handler {
	if opts.Namer == nil {
		opts.Namer = response.NewColumnNamer()
	}
	if opts.Selector == nil {
		opts.Selector = response.NewSelector()
	}
	if opts.TimeLayout == "" {
		opts.TimeLayout = config.OutputDateFormat
	}
	if opts.MaxPerPage <= 0 {
		opts.MaxPerPage = config.DataMaxPerPage
	}
	return &Handler{builder: builder, opts: opts, now: time.Now}
}

// Parse reads a request from query parameters
func (h *Handler) Parse(q url.Values) (*Request, error) {
	return ParseRequest(q, h.now(), h.opts.MaxPerPage)
}

// Prepare builds the result for a request and wraps it in a response ready to
// be written. base is the URL pagination links are derived from.
func (h *Handler) Prepare(ctx context.Context, req *Request, base *url.URL) (*response.Data, error) {
	slice, err := h.builder.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	opts := response.Options{
		MetricNames:       req.Metrics,
		DimensionFields:   slice.Fields,
		Format:            req.Format,
		MissingIntervals:  slice.Missing,
		VolatileIntervals: slice.Volatile,
		Pagination:        slice.Pagination,
		TimeLayout:        h.opts.TimeLayout,
		PartialData:       h.opts.PartialData,
		Namer:             h.opts.Namer,
		Selector:          h.opts.Selector,
	}
	if slice.Pagination != nil && base != nil {
		opts.PaginationLinks = slice.Pagination.Links(base)
	}
	return response.NewData(slice.Results, opts), nil
}

// HandleData handles GET /v1/data
func (h *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := httpx.NewRequestID(w)

	req, err := h.Parse(r.URL.Query())
	if err != nil {
		log.Printf("[%s] Rejected data request: %v", reqID, err)
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.DataTimeout)
	defer cancel()

	data, err := h.Prepare(ctx, req, requestURL(r, r.URL.Path))
	if err != nil {
		status := statusFor(err)
		log.Printf("[%s] Data request failed: %v", reqID, err)
		httpx.RespondError(w, status, err)
		h.observe(string(req.Format), "error", 0, 0, start)
		return
	}

	format := data.Format()
	w.Header().Set("Content-Type", data.ContentType())
	if format == response.FormatCSV {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"tinyslice-%s.%s\"", reqID, format.Extension()))
	}
	w.WriteHeader(http.StatusOK)

	// Headers are out; from here on failures can only be logged
	cw := &telemetry.CountingWriter{W: w}
	status := "ok"
	if err := data.Write(cw); err != nil {
		status = "error"
		if response.IsBrokenPipe(err) {
			log.Printf("[%s] Client went away after %d rows", reqID, data.RowsWritten())
		} else {
			log.Printf("[%s] Response aborted after %d rows: %v", reqID, data.RowsWritten(), err)
		}
	}

	h.observe(string(format), status, data.RowsWritten(), cw.N, start)
	log.Printf("[%s] %s %d rows, %d bytes in %v", reqID, format, data.RowsWritten(), cw.N, time.Since(start).Round(time.Millisecond))
}

func (h *Handler) observe(format, status string, rows int, bytes int64, start time.Time) {
	if h.opts.Telemetry == nil {
		return
	}
	if format == "" {
		format = "default"
	}
	h.opts.Telemetry.ObserveResponse(format, status, rows, bytes, time.Since(start))
}

// requestURL rebuilds the absolute URL a client used to reach path, so
// pagination links can be followed as given. X-Forwarded-Proto wins over the
// connection's TLS state when a proxy terminates TLS.
func requestURL(r *http.Request, path string) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return &url.URL{Scheme: scheme, Host: r.Host, Path: path, RawQuery: r.URL.RawQuery}
}

// statusFor maps a build error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
