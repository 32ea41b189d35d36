package client

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nicktill/tinyslice/pkg/storage"
)

// Sender delivers a batch of points
type Sender interface {
	Ingest(ctx context.Context, points []storage.Point) (int, error)
}

// BatchConfig holds configuration for the batcher
type BatchConfig struct {
	MaxBatchSize int
	FlushEvery   time.Duration
}

// Batcher collects points and sends them when a batch fills up or on a timer
type Batcher struct {
	config BatchConfig
	sender Sender

	points []storage.Point
	mu     sync.Mutex

	sent   atomic.Int64
	failed atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	// at most one background flush at a time
	flushing atomic.Bool
}

// NewBatcher creates a batcher; call Start before Add
func NewBatcher(sender Sender, config BatchConfig) *Batcher {
	return &Batcher{
		config: config,
		sender: sender,
		points: make([]storage.Point, 0, config.MaxBatchSize),
		done:   make(chan struct{}),
	}
}

// Start starts the periodic flush loop
func (b *Batcher) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	go b.flushLoop()
}

// Add queues a point, flushing in the background once the batch is full
func (b *Batcher) Add(p storage.Point) {
	b.mu.Lock()
	b.points = append(b.points, p)
	full := len(b.points) >= b.config.MaxBatchSize
	b.mu.Unlock()

	if full && b.flushing.CompareAndSwap(false, true) {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer b.flushing.Store(false)
			b.Flush()
		}()
	}
}

// Flush sends everything queued so far, at most MaxBatchSize points per request
func (b *Batcher) Flush() {
	b.mu.Lock()
	if len(b.points) == 0 {
		b.mu.Unlock()
		return
	}
	pending := make([]storage.Point, len(b.points))
	copy(pending, b.points)
	b.points = b.points[:0]
	b.mu.Unlock()

	for len(pending) > 0 {
		n := len(pending)
		if n > b.config.MaxBatchSize {
			n = b.config.MaxBatchSize
		}
		b.send(pending[:n])
		pending = pending[n:]
	}
}

func (b *Batcher) send(batch []storage.Point) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := b.sender.Ingest(ctx, batch)
	if err != nil {
		b.failed.Add(int64(len(batch)))
		log.Printf("⚠️  Failed to send %d points: %v", len(batch), err)
		return
	}
	b.sent.Add(int64(n))
}

// Stop stops the flush loop, waits for in-flight sends and flushes the rest
func (b *Batcher) Stop() {
	if b.cancel != nil {
		b.cancel()
		<-b.done
	}
	b.wg.Wait()
	b.Flush()
}

// Sent returns the number of points the server accepted
func (b *Batcher) Sent() int64 {
	return b.sent.Load()
}

// Failed returns the number of points that could not be delivered
func (b *Batcher) Failed() int64 {
	return b.failed.Load()
}

func (b *Batcher) flushLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.config.FlushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			if b.flushing.CompareAndSwap(false, true) {
				b.Flush()
				b.flushing.Store(false)
			}
		}
	}
}
