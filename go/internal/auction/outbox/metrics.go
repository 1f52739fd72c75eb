package outbox

import (
	"sync"
	"time"
)

// MetricsCollector defines the interface for collecting outbox metrics
type MetricsCollector interface {
	RecordEventProcessed(eventType string, success bool, duration time.Duration)
	RecordPublishAttempt(eventType string, attempt int, success bool)
	RecordEventDropped(eventType string)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
}
func (n *NoOpMetricsCollector) RecordPublishAttempt(eventType string, attempt int, success bool) {}
func (n *NoOpMetricsCollector) RecordEventDropped(eventType string)                              {}

// CountingMetrics keeps totals in memory; the server exposes them on its health endpoint
type CountingMetrics struct {
	mu        sync.Mutex
	published uint64
	failed    uint64
	retries   uint64
	dropped   uint64
}

// MetricsSnapshot is a point-in-time copy of CountingMetrics
type MetricsSnapshot struct {
	Published uint64 `json:"published"`
	Failed    uint64 `json:"failed"`
	Retries   uint64 `json:"retries"`
	Dropped   uint64 `json:"dropped"`
}

func (m *CountingMetrics) RecordEventProcessed(eventType string, success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.published++
	} else {
		m.failed++
	}
}

func (m *CountingMetrics) RecordPublishAttempt(eventType string, attempt int, success bool) {
	if attempt <= 1 {
		return
	}
	m.mu.Lock()
	m.retries++
	m.mu.Unlock()
}

func (m *CountingMetrics) RecordEventDropped(eventType string) {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

func (m *CountingMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Published: m.published,
		Failed:    m.failed,
		Retries:   m.retries,
		Dropped:   m.dropped,
	}
}
