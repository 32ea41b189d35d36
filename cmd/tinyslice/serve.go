package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/server"
	"github.com/nicktill/tinyslice/pkg/telemetry"
)

var (
	servePort    string
	serveStorage string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the tinyslice HTTP server. Points are ingested on /v1/ingest and
served sliced on /v1/data (and /v1/data/ws for streaming over a WebSocket).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides config)")
	serveCmd.Flags().StringVar(&serveStorage, "storage", "", "Storage backend: badger or memory (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("🚀 Starting tinyslice server...")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Port = servePort
	}
	if serveStorage != "" {
		cfg.Storage = serveStorage
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.Printf("⚙️  Configuration: storage=%s retention=%v default format=%s", cfg.Storage, cfg.Retention, cfg.DefaultFormat)

	store, err := server.InitializeStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	dict, err := server.LoadDictionary(cfg.DimensionsFile)
	if err != nil {
		return err
	}

	metrics := telemetry.New()
	handlers, err := server.InitializeHandlers(cfg, store, dict, metrics)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	retention := server.NewRetentionJob(store, cfg.Retention, handlers.Retention, metrics)
	wg.Add(2)
	go retention.Run(stop, &wg)
	go server.RunBadgerGC(store, stop, &wg)

	router := mux.NewRouter()
	server.SetupRoutes(router, handlers, cfg.Port)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Println("📡 API endpoints:")
		log.Println("   POST /v1/ingest      - Ingest points")
		log.Println("   GET  /v1/data        - Sliced data (json, jsonapi, csv)")
		log.Println("   GET  /v1/data/ws     - Sliced data over WebSocket")
		log.Println("   GET  /v1/metrics     - Metric catalog")
		log.Println("   GET  /v1/dimensions  - Dimension catalog")
		log.Println("   GET  /v1/export      - Raw point backup (json, csv)")
		log.Println("   POST /v1/import      - Restore a JSON backup")
		log.Println("   GET  /metrics        - Prometheus endpoint")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		close(stop)
		wg.Wait()
		return err
	case <-quit:
		log.Println("🛑 Shutdown signal received...")
	}

	// Stop background jobs before waiting on them
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server shutdown warning: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Println("✅ All background tasks stopped cleanly")
	case <-time.After(5 * time.Second):
		log.Println("⚠️  Some background tasks did not stop in time (forcing exit)")
	}

	log.Println("👋 tinyslice server exited cleanly")
	return nil
}
