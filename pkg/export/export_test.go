package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nicktill/tinyslice/pkg/storage"
	"github.com/nicktill/tinyslice/pkg/storage/memory"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func seededStore(t *testing.T) *memory.Storage {
	t.Helper()
	store := memory.New()
	err := store.Write(context.Background(), []storage.Point{
		{Name: "clicks", Value: 10, Labels: map[string]string{"country": "US"}, Timestamp: base},
		{Name: "revenue", Value: 42.5, Labels: map[string]string{"country": "FR", "device": "ios"}, Timestamp: base.Add(time.Minute)},
	})
	if err != nil {
		t.Fatalf("Failed to write test points: %v", err)
	}
	return store
}

func TestExportToJSON(t *testing.T) {
	exporter := NewExporter(seededStore(t))
	buf := &bytes.Buffer{}
	opts := Options{Start: base.Add(-time.Hour), End: base.Add(time.Hour)}

	result, err := exporter.ExportToJSON(context.Background(), buf, opts)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.PointsExported != 2 || result.Format != "json" {
		t.Errorf("Unexpected result %+v", result)
	}

	var backup Backup
	if err := json.Unmarshal(buf.Bytes(), &backup); err != nil {
		t.Fatalf("Failed to parse exported JSON: %v", err)
	}
	if backup.Metadata.PointCount != 2 || backup.Metadata.Version != BackupVersion {
		t.Errorf("Unexpected metadata %+v", backup.Metadata)
	}
	if len(backup.Points) != 2 || backup.Points[0].Name != "clicks" {
		t.Errorf("Unexpected points %+v", backup.Points)
	}
}

func TestExportToJSON_EmptyHasPointsArray(t *testing.T) {
	exporter := NewExporter(memory.New())
	buf := &bytes.Buffer{}

	if _, err := exporter.ExportToJSON(context.Background(), buf, Options{Start: base, End: base.Add(time.Hour)}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"points": []`) {
		t.Errorf("Expected empty points array, got %s", buf.String())
	}
}

func TestExportToCSV(t *testing.T) {
	exporter := NewExporter(seededStore(t))
	buf := &bytes.Buffer{}

	result, err := exporter.ExportToCSV(context.Background(), buf, Options{Start: base.Add(-time.Hour), End: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.PointsExported != 2 {
		t.Errorf("Expected 2 points exported, got %d", result.PointsExported)
	}

	records, err := csv.NewReader(buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	want := [][]string{
		{"timestamp", "name", "value", "country", "device"},
		{"2024-01-01T12:00:00Z", "clicks", "10", "US", ""},
		{"2024-01-01T12:01:00Z", "revenue", "42.5", "FR", "ios"},
	}
	if len(records) != len(want) {
		t.Fatalf("Expected %d records, got %d: %v", len(want), len(records), records)
	}
	for i := range want {
		if strings.Join(records[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("Record %d = %v, want %v", i, records[i], want[i])
		}
	}
}

func TestImportFromJSON_RoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := NewExporter(seededStore(t)).ExportToJSON(context.Background(), buf, Options{Start: base.Add(-time.Hour), End: base.Add(time.Hour)}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	target := memory.New()
	importer := NewImporter(target)
	importer.now = func() time.Time { return base }

	result, err := importer.ImportFromJSON(context.Background(), buf)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.PointsImported != 2 || result.BatchesWritten != 1 || len(result.Errors) != 0 {
		t.Errorf("Unexpected result %+v", result)
	}

	stats, _ := target.Stats(context.Background())
	if stats.TotalPoints != 2 {
		t.Errorf("Expected 2 stored points, got %d", stats.TotalPoints)
	}
}

func TestImportFromJSON_SkipsInvalid(t *testing.T) {
	importer := NewImporter(memory.New())
	importer.now = func() time.Time { return base }

	body := `{"points":[
		{"name":"clicks","value":1,"timestamp":"2024-01-01T11:00:00Z"},
		{"name":"","value":1,"timestamp":"2024-01-01T11:00:00Z"},
		{"name":"clicks","value":1},
		{"name":"clicks","value":1,"timestamp":"2030-01-01T00:00:00Z"}
	]}`
	result, err := importer.ImportFromJSON(context.Background(), strings.NewReader(body))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.PointsImported != 1 {
		t.Errorf("Expected 1 point imported, got %d", result.PointsImported)
	}
	if len(result.Errors) != 3 {
		t.Errorf("Expected 3 errors, got %v", result.Errors)
	}
}

func TestImportFromJSON_BadJSON(t *testing.T) {
	if _, err := NewImporter(memory.New()).ImportFromJSON(context.Background(), strings.NewReader("{")); err == nil {
		t.Error("Expected decode error")
	}
}

func TestHandleExport(t *testing.T) {
	h := NewHandler(seededStore(t))
	h.now = func() time.Time { return base.Add(time.Hour) }

	rr := httptest.NewRecorder()
	h.HandleExport(rr, httptest.NewRequest(http.MethodGet, "/v1/export?format=csv&metric=clicks", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), "tinyslice-export-20240101-130000.csv") {
		t.Errorf("Unexpected Content-Disposition %q", rr.Header().Get("Content-Disposition"))
	}
	if lines := strings.Count(rr.Body.String(), "\n"); lines != 2 {
		t.Errorf("Expected header plus one clicks row, got %q", rr.Body.String())
	}

	for _, target := range []string{
		"/v1/export?format=xml",
		"/v1/export?start=yesterday",
		"/v1/export?start=2024-01-01T13:00:00Z&end=2024-01-01T12:00:00Z",
		"/v1/export?start=2023-01-01T00:00:00Z",
	} {
		rr := httptest.NewRecorder()
		h.HandleExport(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rr.Code)
		}
	}
}

func TestHandleImport(t *testing.T) {
	store := memory.New()
	h := NewHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/import", strings.NewReader(`{"points":[]}`))
	rr := httptest.NewRecorder()
	h.HandleImport(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415 without content type, got %d", rr.Code)
	}

	ts := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	req = httptest.NewRequest(http.MethodPost, "/v1/import", strings.NewReader(`{"points":[{"name":"clicks","value":3,"timestamp":"`+ts+`"}]}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr = httptest.NewRecorder()
	h.HandleImport(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var result ImportResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if result.PointsImported != 1 {
		t.Errorf("Expected 1 point imported, got %d", result.PointsImported)
	}
}
