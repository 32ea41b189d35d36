package ingest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/nicktill/tinyslice/pkg/dimension"
	"github.com/nicktill/tinyslice/pkg/httpx"
	"github.com/nicktill/tinyslice/pkg/storage"
)

const (
	catalogTimeout = 5 * time.Second
	catalogWindow  = 24 * time.Hour
	catalogLimit   = 10000
)

// MetricsListResponse returns metric names seen recently
type MetricsListResponse struct {
	Metrics []string `json:"metrics"`
	Count   int      `json:"count"`
}

// DimensionInfo describes one dimension a query can slice by
type DimensionInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	KeyField    string   `json:"keyField"`
	Fields      []string `json:"fields"`
	Configured  bool     `json:"configured"`
}

// DimensionsListResponse lists configured dimensions and label keys seen recently
type DimensionsListResponse struct {
	Dimensions []DimensionInfo `json:"dimensions"`
	Count      int             `json:"count"`
}

// recent returns the points of the catalog window
func (h *Handler) recent(r *http.Request) ([]storage.Point, error) {
	ctx, cancel := context.WithTimeout(r.Context(), catalogTimeout)
	defer cancel()

	now := time.Now()
	return h.storage.Query(ctx, storage.QueryRequest{
		Start: now.Add(-catalogWindow),
		End:   now.Add(time.Minute), // tolerate client clock skew
		Limit: catalogLimit,
	})
}

// HandleMetricsList handles GET /v1/metrics
func (h *Handler) HandleMetricsList(w http.ResponseWriter, r *http.Request) {
	points, err := h.recent(r)
	if err != nil {
		httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("query failed: %w", err))
		return
	}

	seen := make(map[string]bool)
	for _, p := range points {
		seen[p.Name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	httpx.RespondJSON(w, http.StatusOK, MetricsListResponse{Metrics: names, Count: len(names)})
}

// HandleDimensionsList returns a handler for GET /v1/dimensions.
// Configured dimensions come first, then unconfigured label keys, each group sorted.
func (h *Handler) HandleDimensionsList(dict *dimension.Dictionary) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		points, err := h.recent(r)
		if err != nil {
			httpx.RespondError(w, http.StatusInternalServerError, fmt.Errorf("query failed: %w", err))
			return
		}

		var infos []DimensionInfo
		for _, name := range dict.Names() {
			if d, ok := dict.Lookup(name); ok {
				infos = append(infos, describe(d, true))
			}
		}

		var free []string
		seen := make(map[string]bool)
		for _, p := range points {
			for k := range p.Labels {
				if !seen[k] && !dict.Declared(k) {
					seen[k] = true
					free = append(free, k)
				}
			}
		}
		sort.Strings(free)
		for _, k := range free {
			infos = append(infos, describe(dimension.New(k, dimension.DefaultKeyField), false))
		}

		httpx.RespondJSON(w, http.StatusOK, DimensionsListResponse{Dimensions: infos, Count: len(infos)})
	}
}

func describe(d *dimension.Dimension, configured bool) DimensionInfo {
	fields := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		fields[i] = f.Name
	}
	return DimensionInfo{
		Name:        d.APIName,
		Description: d.Description,
		KeyField:    d.Key.Name,
		Fields:      fields,
		Configured:  configured,
	}
}
