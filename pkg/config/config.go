package config

import "time"

// Server defaults
const (
	DefaultPort         = "8080"
	DefaultDataDir      = "./data"
	DefaultStorage      = "badger"
	DefaultMaxStorageGB = 1
	DefaultMaxMemoryMB  = 32
	ShutdownTimeout     = 10 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 2 * time.Minute // large CSV downloads stream for a while
)

// Retention and maintenance
const (
	DefaultRetention  = 7 * 24 * time.Hour
	RetentionInterval = 1 * time.Hour
	BadgerGCInterval  = 10 * time.Minute
)

// Response rendering
const (
	// OutputDateFormat is the layout for dateTime values and interval strings
	OutputDateFormat = "2006-01-02 15:04:05.000"

	DefaultFormat      = "json"
	DefaultPartialData = true
)

// Data query timeouts and defaults
const (
	DataTimeout        = 30 * time.Second
	DataDefaultWindow  = 24 * time.Hour
	DataMaxWindow      = 90 * 24 * time.Hour
	DataDefaultPerPage = 0 // no pagination
	DataMaxPerPage     = 10000
	VolatileWindow     = 5 * time.Minute
	MaxBuckets         = 100000
)

// Ingest timeouts and limits
const (
	IngestTimeout = 5 * time.Second
	StatsTimeout  = 5 * time.Second
)

// WebSocket configuration
const (
	WSReadBufferSize  = 1024
	WSWriteBufferSize = 32 * 1024
	WSWriteDeadline   = 30 * time.Second
	WSReadDeadline    = 60 * time.Second
	WSPingInterval    = 30 * time.Second
	WSMaxMessageSize  = 8 * 1024
)
