package server

import (
	"fmt"
	"log"
	"os"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/data"
	"github.com/nicktill/tinyslice/pkg/dimension"
	"github.com/nicktill/tinyslice/pkg/export"
	"github.com/nicktill/tinyslice/pkg/ingest"
	"github.com/nicktill/tinyslice/pkg/response"
	"github.com/nicktill/tinyslice/pkg/server/monitor"
	"github.com/nicktill/tinyslice/pkg/storage"
	"github.com/nicktill/tinyslice/pkg/storage/badger"
	"github.com/nicktill/tinyslice/pkg/storage/memory"
	"github.com/nicktill/tinyslice/pkg/telemetry"
)

// Handlers bundles everything the router serves.
type Handlers struct {
	Ingest     *ingest.Handler
	Data       *data.Handler
	Export     *export.Handler
	Dictionary *dimension.Dictionary
	Telemetry  *telemetry.Metrics
	Storage    *monitor.StorageMonitor
	Retention  *monitor.RetentionMonitor
}

// InitializeStorage opens the configured storage backend.
func InitializeStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage == "memory" {
		log.Println("Using in-memory storage (data is lost on restart)")
		return memory.New(), nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	log.Printf("Initializing BadgerDB storage in %s...", cfg.DataDir)
	store, err := badger.New(badger.Config{
		Path:        cfg.DataDir,
		MaxMemoryMB: cfg.MaxMemoryMB,
	})
	if err != nil {
		return nil, err
	}
	log.Println("BadgerDB storage initialized successfully")
	return store, nil
}

// LoadDictionary reads the dimension file, or returns an empty dictionary
// when none is configured. Undeclared labels are still served key-only.
func LoadDictionary(path string) (*dimension.Dictionary, error) {
	if path == "" {
		log.Println("No dimensions file configured, serving labels as key-only dimensions")
		return dimension.NewDictionary(), nil
	}
	dict, err := dimension.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load dimensions: %w", err)
	}
	log.Printf("Loaded %d dimensions from %s", len(dict.Names()), path)
	return dict, nil
}

// NewSelector builds the writer registry with the configured default format.
func NewSelector(defaultFormat string) (*response.Selector, error) {
	f, err := response.ParseFormat(defaultFormat)
	if err != nil {
		return nil, fmt.Errorf("default format: %w", err)
	}
	sel := response.NewSelector()
	if f != "" {
		sel.SetDefault(f)
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	return sel, nil
}

// InitializeHandlers creates and configures all request handlers.
func InitializeHandlers(cfg *config.Config, store storage.Storage, dict *dimension.Dictionary, metrics *telemetry.Metrics) (*Handlers, error) {
	sel, err := NewSelector(cfg.DefaultFormat)
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		Dictionary: dict,
		Telemetry:  metrics,
		Retention:  monitor.NewRetentionMonitor(config.RetentionInterval),
	}

	h.Ingest = ingest.NewHandler(store)
	h.Ingest.OnIngest(func(n int) { metrics.PointsIngested.Add(float64(n)) })
	if cfg.Storage == "badger" {
		h.Storage = monitor.NewStorageMonitor(cfg.DataDir, cfg.MaxStorageGB<<30)
		h.Ingest.SetStorageChecker(h.Storage)
		metrics.WatchStorage(h.Storage.GetUsage)
		log.Printf("Storage limit enforcement enabled: %d GB max", cfg.MaxStorageGB)
	}
	log.Println("Ingest handler created with cardinality protection")

	h.Export = export.NewHandler(store)

	builder := data.NewBuilder(store, dict, cfg.VolatileWindow)
	h.Data = data.NewHandler(builder, data.Options{
		Namer:       response.NewColumnNamer(),
		Selector:    sel,
		Telemetry:   metrics,
		PartialData: cfg.PartialData,
		MaxPerPage:  cfg.MaxPerPage,
	})
	log.Printf("Data handler created (formats %v, default %s)", sel.Formats(), sel.Resolve(""))

	return h, nil
}
