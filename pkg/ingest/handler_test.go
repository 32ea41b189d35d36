package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/tinyslice/pkg/dimension"
	"github.com/nicktill/tinyslice/pkg/storage"
	"github.com/nicktill/tinyslice/pkg/storage/memory"
)

func postIngest(t *testing.T, h *Handler, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.HandleIngest(rr, req)
	return rr
}

func TestHandleIngest_Success(t *testing.T) {
	store := memory.New()
	handler := NewHandler(store)

	var accepted int
	handler.OnIngest(func(n int) { accepted += n })

	now := time.Now()
	rr := postIngest(t, handler, IngestRequest{Points: []storage.Point{
		{Name: "clicks", Value: 1, Labels: map[string]string{"country": "US"}, Timestamp: now},
		{Name: "clicks", Value: 2, Labels: map[string]string{"country": "FR"}},
	}})

	require.Equal(t, http.StatusOK, rr.Code)
	var resp IngestResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, accepted)

	points, err := store.Query(context.Background(), storage.QueryRequest{
		Start: now.Add(-time.Minute),
		End:   time.Now().Add(time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, points, 2)
	for _, p := range points {
		assert.False(t, p.Timestamp.IsZero(), "missing timestamps default to now")
	}
}

func TestHandleIngest_TooManyPoints(t *testing.T) {
	handler := NewHandler(memory.New())

	points := make([]storage.Point, MaxPointsPerRequest+1)
	for i := range points {
		points[i] = storage.Point{Name: "clicks"}
	}
	rr := postIngest(t, handler, IngestRequest{Points: points})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["message"], "too many points")
}

func TestHandleIngest_InvalidPoint(t *testing.T) {
	store := memory.New()
	handler := NewHandler(store)

	rr := postIngest(t, handler, IngestRequest{Points: []storage.Point{
		{Name: "clicks", Value: 1},
		{Name: ""},
	}})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Contains(t, resp["message"], "invalid point 1")

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPoints, "rejected requests write nothing")
}

func TestHandleIngest_BadJSONAndMethod(t *testing.T) {
	handler := NewHandler(memory.New())

	req := httptest.NewRequest(http.MethodPost, "/v1/ingest", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	handler.HandleIngest(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/ingest", nil)
	rr = httptest.NewRecorder()
	handler.HandleIngest(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleStats(t *testing.T) {
	handler := NewHandler(memory.New())
	postIngest(t, handler, IngestRequest{Points: []storage.Point{
		{Name: "clicks", Value: 1, Labels: map[string]string{"country": "US"}},
	}})

	rr := httptest.NewRecorder()
	handler.HandleStats(rr, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Storage.TotalPoints)
	assert.Equal(t, 1, resp.Cardinality.TotalSeries)
}

func TestHandleCatalog(t *testing.T) {
	handler := NewHandler(memory.New())
	postIngest(t, handler, IngestRequest{Points: []storage.Point{
		{Name: "revenue", Value: 1, Labels: map[string]string{"country": "US", "device": "ios"}},
		{Name: "clicks", Value: 1, Labels: map[string]string{"browser": "firefox"}},
	}})

	rr := httptest.NewRecorder()
	handler.HandleMetricsList(rr, httptest.NewRequest(http.MethodGet, "/v1/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var metrics MetricsListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &metrics))
	assert.Equal(t, []string{"clicks", "revenue"}, metrics.Metrics)

	dict := dimension.NewDictionary()
	require.NoError(t, dict.Add(dimension.New("country", "id", "name")))

	rr = httptest.NewRecorder()
	handler.HandleDimensionsList(dict)(rr, httptest.NewRequest(http.MethodGet, "/v1/dimensions", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var dims DimensionsListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dims))

	require.Equal(t, 3, dims.Count)
	assert.Equal(t, "country", dims.Dimensions[0].Name)
	assert.True(t, dims.Dimensions[0].Configured)
	assert.Equal(t, []string{"id", "name"}, dims.Dimensions[0].Fields)
	assert.Equal(t, "browser", dims.Dimensions[1].Name)
	assert.Equal(t, "device", dims.Dimensions[2].Name)
	assert.False(t, dims.Dimensions[2].Configured)
}

type fakeChecker struct {
	used, limit int64
}

func (f fakeChecker) GetUsage() (int64, error) { return f.used, nil }
func (f fakeChecker) GetLimit() int64          { return f.limit }

func TestHandleIngest_StorageFull(t *testing.T) {
	store := memory.New()
	handler := NewHandler(store)
	point := IngestRequest{Points: []storage.Point{{Name: "clicks", Value: 1}}}

	handler.SetStorageChecker(fakeChecker{used: 10, limit: 10})
	rr := postIngest(t, handler, point)
	assert.Equal(t, http.StatusInsufficientStorage, rr.Code)

	handler.SetStorageChecker(fakeChecker{used: 10, limit: 0})
	rr = postIngest(t, handler, point)
	assert.Equal(t, http.StatusOK, rr.Code, "a zero limit disables the check")

	handler.SetStorageChecker(fakeChecker{used: 9, limit: 10})
	rr = postIngest(t, handler, point)
	assert.Equal(t, http.StatusOK, rr.Code)
}
