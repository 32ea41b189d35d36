package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/httpx"
	"github.com/nicktill/tinyslice/pkg/storage"
)

// maxBodyBytes bounds an ingest request body
const maxBodyBytes = 4 << 20

// StorageChecker reports disk usage against a limit
type StorageChecker interface {
	GetUsage() (int64, error)
	GetLimit() int64
}

// Handler accepts points and writes them to storage
type Handler struct {
	storage     storage.Storage
	cardinality *CardinalityTracker
	checker     StorageChecker
	onIngest    func(accepted int)
}

// NewHandler creates a new ingest handler
func NewHandler(store storage.Storage) *Handler {
	return &Handler{
		storage:     store,
		cardinality: NewCardinalityTracker(),
	}
}

// OnIngest registers a callback run with the number of points accepted per request
func (h *Handler) OnIngest(fn func(accepted int)) {
	h.onIngest = fn
}

// SetStorageChecker enables rejecting writes once the data directory is full
func (h *Handler) SetStorageChecker(c StorageChecker) {
	h.checker = c
}

// storageFull reports whether the configured storage limit has been reached.
// A failed usage check does not block ingestion.
func (h *Handler) storageFull() bool {
	if h.checker == nil || h.checker.GetLimit() <= 0 {
		return false
	}
	used, err := h.checker.GetUsage()
	if err != nil {
		log.Printf("⚠️  Storage usage check failed: %v", err)
		return false
	}
	return used >= h.checker.GetLimit()
}

// IngestRequest represents the request payload
type IngestRequest struct {
	Points []storage.Point `json:"points"`
}

// IngestResponse represents the response payload
type IngestResponse struct {
	Status  string `json:"status"`
	Count   int    `json:"count"`
	Message string `json:"message,omitempty"`
}

// StatsResponse combines storage and cardinality statistics
type StatsResponse struct {
	Storage     *storage.Stats   `json:"storage"`
	Cardinality CardinalityStats `json:"cardinality"`
}

// HandleIngest handles POST /v1/ingest.
// A request is accepted or rejected as a whole.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.RespondErrorString(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if h.storageFull() {
		httpx.RespondError(w, http.StatusInsufficientStorage, ErrStorageFull)
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if len(req.Points) > MaxPointsPerRequest {
		httpx.RespondError(w, http.StatusBadRequest, ErrTooManyPoints)
		return
	}

	now := time.Now()
	for i := range req.Points {
		p := &req.Points[i]
		if err := ValidatePoint(*p); err != nil {
			httpx.RespondError(w, http.StatusBadRequest, fmt.Errorf("invalid point %d: %w", i, err))
			return
		}
		if p.Timestamp.IsZero() {
			p.Timestamp = now
		}
		if err := h.cardinality.Check(*p); err != nil {
			httpx.RespondError(w, http.StatusTooManyRequests, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.IngestTimeout)
	defer cancel()

	if err := h.storage.Write(ctx, req.Points); err != nil {
		log.Printf("Failed to write %d points: %v", len(req.Points), err)
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("write failed: %w", err))
		return
	}

	for _, p := range req.Points {
		h.cardinality.Record(p)
	}
	if h.onIngest != nil {
		h.onIngest(len(req.Points))
	}

	httpx.RespondJSON(w, http.StatusOK, IngestResponse{
		Status: "success",
		Count:  len(req.Points),
	})
}

// HandleStats handles GET /v1/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.StatsTimeout)
	defer cancel()

	stats, err := h.storage.Stats(ctx)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("stats failed: %w", err))
		return
	}

	httpx.RespondJSON(w, http.StatusOK, StatsResponse{
		Storage:     stats,
		Cardinality: h.cardinality.Stats(),
	})
}
