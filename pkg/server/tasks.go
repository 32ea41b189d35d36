package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nicktill/tinyslice/pkg/config"
	"github.com/nicktill/tinyslice/pkg/server/monitor"
	"github.com/nicktill/tinyslice/pkg/storage"
	"github.com/nicktill/tinyslice/pkg/storage/badger"
	"github.com/nicktill/tinyslice/pkg/telemetry"
)

// RetentionJob deletes points older than the retention window.
type RetentionJob struct {
	Store     storage.Storage
	Retention time.Duration
	Monitor   *monitor.RetentionMonitor
	Metrics   *telemetry.Metrics

	// retry backoff base; 30s, 60s, 120s
	baseDelay  time.Duration
	maxRetries int
	now        func() time.Time
}

// NewRetentionJob creates a retention job. A zero retention keeps data forever.
func NewRetentionJob(store storage.Storage, retention time.Duration, rm *monitor.RetentionMonitor, m *telemetry.Metrics) *RetentionJob {
	return &RetentionJob{
		Store:      store,
		Retention:  retention,
		Monitor:    rm,
		Metrics:    m,
		baseDelay:  30 * time.Second,
		maxRetries: 3,
		now:        time.Now,
	}
}

// RunOnce performs a single retention pass and records the outcome.
func (j *RetentionJob) RunOnce(ctx context.Context) error {
	cutoff := j.now().Add(-j.Retention)
	err := j.Store.Delete(ctx, storage.DeleteOptions{Before: cutoff})

	status := "ok"
	if err != nil {
		status = "error"
		j.Monitor.RecordFailure(err)
	} else {
		j.Monitor.RecordSuccess()
	}
	if j.Metrics != nil {
		j.Metrics.RetentionRuns.WithLabelValues(status).Inc()
	}
	return err
}

// runWithRetry retries a failed pass with exponential backoff
func (j *RetentionJob) runWithRetry(ctx context.Context, stop <-chan struct{}) {
	for attempt := 0; attempt <= j.maxRetries; attempt++ {
		if attempt > 0 {
			delay := j.baseDelay * time.Duration(1<<(attempt-1))
			log.Printf("Retrying retention in %v (attempt %d/%d)...", delay, attempt+1, j.maxRetries+1)
			select {
			case <-time.After(delay):
			case <-stop:
				return
			}
		}

		start := time.Now()
		err := j.RunOnce(ctx)
		if err == nil {
			log.Printf("Retention completed in %v (deleted points before %s)",
				time.Since(start).Round(time.Millisecond), j.now().Add(-j.Retention).Format(time.RFC3339))
			return
		}

		log.Printf("❌ Retention failed (attempt %d/%d): %v", attempt+1, j.maxRetries+1, err)
		if status := j.Monitor.Status(); status.ConsecutiveErrors > 3 {
			log.Printf("ALERT: Retention has been failing! Consecutive errors: %d", status.ConsecutiveErrors)
		}
	}

	log.Printf("Retention failed after %d attempts, will retry on next schedule", j.maxRetries+1)
}

// Run runs the job on startup and then every config.RetentionInterval until stop is closed.
func (j *RetentionJob) Run(stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	if j.Retention <= 0 {
		log.Println("Retention disabled, keeping data forever")
		return
	}

	ticker := time.NewTicker(config.RetentionInterval)
	defer ticker.Stop()

	log.Printf("Retention scheduler started (keeping %v, runs every %v)", j.Retention, config.RetentionInterval)
	j.runWithRetry(context.Background(), stop)

	for {
		select {
		case <-ticker.C:
			j.runWithRetry(context.Background(), stop)
		case <-stop:
			log.Println("Stopping retention scheduler")
			return
		}
	}
}

// RunBadgerGC runs BadgerDB value log GC periodically to reclaim the space
// retention frees. Other backends return immediately.
func RunBadgerGC(store storage.Storage, stop <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	badgerStore, ok := store.(*badger.Storage)
	if !ok {
		log.Println("Storage is not BadgerDB, skipping GC")
		return
	}

	ticker := time.NewTicker(config.BadgerGCInterval)
	defer ticker.Stop()

	log.Printf("BadgerDB GC scheduler started (runs every %v)", config.BadgerGCInterval)

	for {
		select {
		case <-ticker.C:
			start := time.Now()
			// An error here means there was nothing worth rewriting
			if err := badgerStore.RunGC(0.5); err != nil {
				log.Printf("GC completed in %v (no rewrite needed)", time.Since(start).Round(time.Millisecond))
			} else {
				log.Printf("GC completed in %v (disk space reclaimed)", time.Since(start).Round(time.Millisecond))
			}
		case <-stop:
			log.Println("Stopping BadgerDB GC scheduler")
			return
		}
	}
}
