package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicktill/tinyslice/pkg/data"
	"github.com/nicktill/tinyslice/pkg/dimension"
	"github.com/nicktill/tinyslice/pkg/ingest"
	"github.com/nicktill/tinyslice/pkg/storage"
	"github.com/nicktill/tinyslice/pkg/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.New()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ingest", ingest.NewHandler(store).HandleIngest)
	builder := data.NewBuilder(store, dimension.NewDictionary(), 0)
	mux.HandleFunc("/v1/data", data.NewHandler(builder, data.Options{}).HandleData)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_IngestAndData(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL + "/")
	ctx := context.Background()
	ts := time.Date(2024, 1, 1, 0, 30, 0, 0, time.UTC)

	n, err := c.Ingest(ctx, []storage.Point{
		{Name: "clicks", Value: 3, Labels: map[string]string{"device": "ios"}, Timestamp: ts},
		{Name: "clicks", Value: 4, Labels: map[string]string{"device": "ios"}, Timestamp: ts},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var buf bytes.Buffer
	err = c.Data(ctx, url.Values{
		"metrics":    {"clicks"},
		"dimensions": {"device"},
		"grain":      {"all"},
		"format":     {"csv"},
		"dateTime":   {"2024-01-01T00:00:00Z/2024-01-01T01:00:00Z"},
	}, &buf)
	require.NoError(t, err)
	assert.Equal(t, "dateTime,device,clicks\n2024-01-01 00:00:00.000,ios,7\n", buf.String())
}

func TestClient_ErrorsCarryServerMessage(t *testing.T) {
	srv := newTestServer(t)
	c := New(srv.URL)

	_, err := c.Ingest(context.Background(), []storage.Point{{Name: ""}})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Contains(t, se.Message, "metric name cannot be empty")

	err = c.Data(context.Background(), url.Values{"format": {"xml"}, "metrics": {"clicks"}}, &bytes.Buffer{})
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Status)
	assert.Contains(t, err.Error(), "xml")
}

func TestClient_EmptyIngestIsNoop(t *testing.T) {
	n, err := New("http://127.0.0.1:0").Ingest(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type fakeSender struct {
	mu      sync.Mutex
	batches [][]storage.Point
	err     error
}

func (f *fakeSender) Ingest(_ context.Context, points []storage.Point) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.batches = append(f.batches, points)
	return len(points), nil
}

func TestBatcher_FlushesFullBatchesAndRemainder(t *testing.T) {
	sender := &fakeSender{}
	b := NewBatcher(sender, BatchConfig{MaxBatchSize: 10, FlushEvery: time.Hour})
	b.Start(context.Background())

	for i := 0; i < 25; i++ {
		b.Add(storage.Point{Name: "clicks", Value: float64(i)})
	}
	b.Stop()

	assert.Equal(t, int64(25), b.Sent())
	assert.Zero(t, b.Failed())

	total := 0
	for _, batch := range sender.batches {
		total += len(batch)
	}
	assert.Equal(t, 25, total)
}

func TestBatcher_PeriodicFlush(t *testing.T) {
	sender := &fakeSender{}
	b := NewBatcher(sender, BatchConfig{MaxBatchSize: 1000, FlushEvery: 10 * time.Millisecond})
	b.Start(context.Background())
	defer b.Stop()

	b.Add(storage.Point{Name: "clicks", Value: 1})
	assert.Eventually(t, func() bool { return b.Sent() == 1 }, time.Second, 5*time.Millisecond)
}

func TestBatcher_CountsFailures(t *testing.T) {
	b := NewBatcher(&fakeSender{err: errors.New("connection refused")}, BatchConfig{MaxBatchSize: 100, FlushEvery: time.Hour})
	b.Start(context.Background())

	b.Add(storage.Point{Name: "clicks", Value: 1})
	b.Add(storage.Point{Name: "clicks", Value: 2})
	b.Stop()

	assert.Zero(t, b.Sent())
	assert.Equal(t, int64(2), b.Failed())
}

func TestBatcher_SplitsOversizedFlush(t *testing.T) {
	sender := &fakeSender{}
	b := NewBatcher(sender, BatchConfig{MaxBatchSize: 4, FlushEvery: time.Hour})

	b.mu.Lock()
	for i := 0; i < 10; i++ {
		b.points = append(b.points, storage.Point{Name: "clicks"})
	}
	b.mu.Unlock()
	b.Flush()

	require.Len(t, sender.batches, 3)
	assert.Len(t, sender.batches[0], 4)
	assert.Len(t, sender.batches[2], 2)
	assert.Equal(t, int64(10), b.Sent())
}
