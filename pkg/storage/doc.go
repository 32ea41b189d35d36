/*
Package storage provides the pluggable point store behind tinyslice.

# Storage Interface

Two backends implement the Storage interface:
  - memory: in-memory slice, used by tests and the render command
  - badger: BadgerDB (LSM tree + Snappy compression) for persistent storage

	type Storage interface {
	    Write(ctx context.Context, points []Point) error
	    Query(ctx context.Context, req QueryRequest) ([]Point, error)
	    Delete(ctx context.Context, opts DeleteOptions) error
	    Stats(ctx context.Context) (*Stats, error)
	    Close() error
	}

Query returns points oldest first. The time range is half open: Start is
included, End is not, matching the buckets the data builder asks for.

# Usage Example

	store, err := badger.New(badger.Config{Path: "./data"})
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	err = store.Write(ctx, []storage.Point{
	    {Name: "clicks", Value: 1, Labels: map[string]string{"country": "US"}, Timestamp: time.Now()},
	})

	points, err := store.Query(ctx, storage.QueryRequest{
	    Start:       time.Now().Add(-time.Hour),
	    End:         time.Now(),
	    MetricNames: []string{"clicks"},
	    Labels:      map[string]string{"country": "US"},
	})

# Retention

The server's retention task deletes everything older than the configured window:

	store.Delete(ctx, storage.DeleteOptions{Before: time.Now().Add(-retention)})

DeleteOptions.MetricNames narrows deletion to specific metrics.
*/
package storage
