package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/nicktill/tinyslice/pkg/httpx"
	"github.com/nicktill/tinyslice/pkg/server/monitor"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

var startTime = time.Now()

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version"`
	Uptime    string                  `json:"uptime"`
	Retention monitor.RetentionStatus `json:"retention"`
}

// handleHealth reports degraded while the retention job is failing.
// A retention job that has not run yet is not a failure.
func handleHealth(retention *monitor.RetentionMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := retention.Status()
		overall := "healthy"
		code := http.StatusOK

		if !status.Healthy && status.LastAttempt != "" {
			overall = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.RespondJSON(w, code, HealthResponse{
			Status:    overall,
			Version:   Version,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Retention: status,
		})
	}
}

// handleStorageUsage returns current storage usage.
func handleStorageUsage(sm *monitor.StorageMonitor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		usage, err := sm.Usage()
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, err)
			return
		}
		httpx.RespondJSON(w, http.StatusOK, usage)
	}
}

// SetupRoutes configures all HTTP routes for the server.
func SetupRoutes(router *mux.Router, h *Handlers, port string) {
	router.Use(corsMiddleware(port))
	router.Use(metricsMiddleware(h.Telemetry))

	api := router.PathPrefix("/v1").Subrouter()

	// Ingestion
	api.HandleFunc("/ingest", h.Ingest.HandleIngest).Methods("POST")

	// Sliced data
	api.HandleFunc("/data", h.Data.HandleData).Methods("GET")
	api.HandleFunc("/data/ws", h.Data.HandleDataStream).Methods("GET")

	// Backup and restore of raw points
	if h.Export != nil {
		api.HandleFunc("/export", h.Export.HandleExport).Methods("GET")
		api.HandleFunc("/import", h.Export.HandleImport).Methods("POST")
	}

	// Metadata and stats
	api.HandleFunc("/metrics", h.Ingest.HandleMetricsList).Methods("GET")
	api.HandleFunc("/dimensions", h.Ingest.HandleDimensionsList(h.Dictionary)).Methods("GET")
	api.HandleFunc("/stats", h.Ingest.HandleStats).Methods("GET")
	api.HandleFunc("/health", handleHealth(h.Retention)).Methods("GET")
	if h.Storage != nil {
		api.HandleFunc("/storage", handleStorageUsage(h.Storage)).Methods("GET")
	}

	// Prometheus scrape endpoint for the server's own metrics
	router.Handle("/metrics", h.Telemetry.Handler()).Methods("GET")
}

// corsMiddleware allows localhost origins only.
func corsMiddleware(port string) func(http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:" + port: true,
		"http://127.0.0.1:" + port: true,
		"http://localhost:3000":    true,
		"http://127.0.0.1:3000":    true,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-Id")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
