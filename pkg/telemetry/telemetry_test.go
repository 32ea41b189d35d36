package telemetry

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveResponse(t *testing.T) {
	m := New()
	m.ObserveResponse("csv", "ok", 3, 120, 10*time.Millisecond)
	m.ObserveResponse("csv", "ok", 2, 80, 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResponsesTotal.WithLabelValues("csv", "ok")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.RowsWritten.WithLabelValues("csv")))
	assert.Equal(t, 200.0, testutil.ToFloat64(m.BytesWritten.WithLabelValues("csv")))
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/v1/data", "200", time.Millisecond)
	m.ObserveRequest("GET", "/v1/data", "400", time.Millisecond)
	m.ObserveRequest("GET", "/v1/data", "200", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/data", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/data", "400")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	m := New()
	m.PointsIngested.Add(7)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tinyslice_points_ingested_total 7")
}

func TestWatchStorage(t *testing.T) {
	m := New()
	used := int64(2048)
	m.WatchStorage(func() (int64, error) { return used, nil })

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), "tinyslice_storage_used_bytes 2048")
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &CountingWriter{W: &buf}
	cw.Write([]byte("hello"))
	cw.Write([]byte(" world"))

	assert.Equal(t, int64(11), cw.N)
	assert.Equal(t, "hello world", buf.String())
}
