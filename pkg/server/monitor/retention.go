package monitor

import (
	"sync"
	"time"
)

// RetentionMonitor tracks the health of the retention job.
type RetentionMonitor struct {
	mu                sync.RWMutex
	interval          time.Duration
	lastSuccess       time.Time
	lastAttempt       time.Time
	consecutiveErrors int
	lastError         string
	deleted           int64

	now func() time.Time
}

// NewRetentionMonitor creates a monitor for a job that runs every interval.
func NewRetentionMonitor(interval time.Duration) *RetentionMonitor {
	return &RetentionMonitor{interval: interval, now: time.Now}
}

// RecordSuccess records a successful retention run.
func (rm *RetentionMonitor) RecordSuccess() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.lastSuccess = rm.now()
	rm.lastAttempt = rm.lastSuccess
	rm.consecutiveErrors = 0
	rm.lastError = ""
}

// RecordFailure records a failed retention run.
func (rm *RetentionMonitor) RecordFailure(err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.lastAttempt = rm.now()
	rm.consecutiveErrors++
	if err != nil {
		rm.lastError = err.Error()
	}
}

// IsHealthy returns true if retention is keeping up.
// Unhealthy conditions:
//   - Never succeeded
//   - No success in two intervals
//   - More than 3 consecutive failures
func (rm *RetentionMonitor) IsHealthy() bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.healthyLocked()
}

func (rm *RetentionMonitor) healthyLocked() bool {
	if rm.lastSuccess.IsZero() {
		return false
	}
	if rm.now().Sub(rm.lastSuccess) > 2*rm.interval {
		return false
	}
	return rm.consecutiveErrors <= 3
}

// RetentionStatus is the retention section of the health check.
type RetentionStatus struct {
	Healthy           bool   `json:"healthy"`
	LastSuccess       string `json:"last_success,omitempty"`
	TimeSinceSuccess  string `json:"time_since_success,omitempty"`
	LastAttempt       string `json:"last_attempt,omitempty"`
	ConsecutiveErrors int    `json:"consecutive_errors,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}

// Status returns current retention status for health checks.
func (rm *RetentionMonitor) Status() RetentionStatus {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	status := RetentionStatus{
		Healthy: rm.healthyLocked(),
	}

	if !rm.lastSuccess.IsZero() {
		status.LastSuccess = rm.lastSuccess.Format(time.RFC3339)
		status.TimeSinceSuccess = rm.now().Sub(rm.lastSuccess).Round(time.Second).String()
	}
	if !rm.lastAttempt.IsZero() {
		status.LastAttempt = rm.lastAttempt.Format(time.RFC3339)
	}
	if rm.consecutiveErrors > 0 {
		status.ConsecutiveErrors = rm.consecutiveErrors
		status.LastError = rm.lastError
	}

	return status
}
