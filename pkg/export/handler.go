package export

import (
	"fmt"
	"log"
	"mime"
	"net/http"
	"time"

	"github.com/nicktill/tinyslice/pkg/httpx"
	"github.com/nicktill/tinyslice/pkg/storage"
)

const (
	// DefaultExportWindow is the default time range for exports (last 24 hours)
	DefaultExportWindow = 24 * time.Hour

	// MaxExportWindow is the maximum allowed export time range (30 days)
	MaxExportWindow = 30 * 24 * time.Hour
)

// maxImportBytes bounds an import request body
const maxImportBytes = 256 << 20

// Handler handles export/import HTTP endpoints
type Handler struct {
	exporter *Exporter
	importer *Importer
	now      func() time.Time
}

// NewHandler creates a new export/import handler
func NewHandler(store storage.Storage) *Handler {
	return &Handler{
		exporter: NewExporter(store),
		importer: NewImporter(store),
		now:      time.Now,
	}
}

// HandleExport handles GET /v1/export
// Query params:
//   - format: "json" or "csv" (default: json)
//   - start, end: RFC3339 timestamps (default: the last 24h)
//   - metric: metric name filter (optional)
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	format := query.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		httpx.RespondErrorString(w, http.StatusBadRequest, "format must be 'json' or 'csv'")
		return
	}

	end, err := parseTimeParam(query.Get("end"), h.now())
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	start, err := parseTimeParam(query.Get("start"), end.Add(-DefaultExportWindow))
	if err != nil {
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}
	if !start.Before(end) {
		httpx.RespondErrorString(w, http.StatusBadRequest, "start must be before end")
		return
	}
	if end.Sub(start) > MaxExportWindow {
		httpx.RespondErrorString(w, http.StatusBadRequest, fmt.Sprintf("time range too large, maximum is %v", MaxExportWindow))
		return
	}

	opts := Options{Start: start, End: end}
	if metricName := query.Get("metric"); metricName != "" {
		opts.MetricNames = []string{metricName}
	}

	stamp := h.now().UTC().Format("20060102-150405")
	if format == "json" {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"tinyslice-export-%s.%s\"", stamp, format))

	var result *Result
	if format == "json" {
		result, err = h.exporter.ExportToJSON(r.Context(), w, opts)
	} else {
		result, err = h.exporter.ExportToCSV(r.Context(), w, opts)
	}
	if err != nil {
		// Headers may already be out; the client sees a truncated file
		log.Printf("❌ Export failed: %v", err)
		return
	}

	log.Printf("✅ Exported %d points (%s) from %s", result.PointsExported, format, result.TimeRange)
}

// HandleImport handles POST /v1/import with a JSON backup body
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		httpx.RespondErrorString(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	result, err := h.importer.ImportFromJSON(r.Context(), http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		log.Printf("❌ Import failed: %v", err)
		httpx.RespondError(w, http.StatusBadRequest, err)
		return
	}

	if len(result.Errors) > 0 {
		log.Printf("⚠️  Import completed with %d validation errors", len(result.Errors))
		for i, e := range result.Errors {
			if i == 10 {
				log.Printf("   ... and %d more errors", len(result.Errors)-10)
				break
			}
			log.Printf("   - %s", e)
		}
	}
	log.Printf("✅ Imported %d points in %d batches from %s", result.PointsImported, result.BatchesWritten, result.TimeRange)

	httpx.RespondJSON(w, http.StatusOK, result)
}

// parseTimeParam parses an RFC3339 (or zone-less, taken as UTC) timestamp, or returns def
func parseTimeParam(param string, def time.Time) (time.Time, error) {
	if param == "" {
		return def, nil
	}
	if t, err := time.Parse(time.RFC3339, param); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", param); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q, want RFC3339", param)
}
