package agent

import (
	"sync"
	"time"
)

// latencyWindow is the number of recent latencies the rolling average covers.
const latencyWindow = 100

// Metrics tracks per-agent message counts, error counts and a rolling average
// over the last hundred processing latencies. Safe for concurrent use.
type Metrics struct {
	mu        sync.Mutex
	messages  uint64
	errors    uint64
	window    [latencyWindow]time.Duration
	count     int
	next      int
	startedAt time.Time
}

// NewMetrics creates an empty metrics recorder.
func NewMetrics() *Metrics { return &Metrics{} }

// Start stamps the uptime origin. Called once from Initialize.
func (m *Metrics) Start() {
	m.mu.Lock()
	m.startedAt = time.Now()
	m.mu.Unlock()
}

// Record registers one processed message with its latency.
func (m *Metrics) Record(latency time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages++
	if failed {
		m.errors++
	}
	m.window[m.next] = latency
	m.next = (m.next + 1) % latencyWindow
	if m.count < latencyWindow {
		m.count++
	}
}

// MetricsSnapshot is a point-in-time copy of an agent's metrics.
type MetricsSnapshot struct {
	Messages   uint64
	Errors     uint64
	ErrorRate  float64
	AvgLatency time.Duration
	Uptime     time.Duration
}

// Snapshot returns the current counters, the rolling latency average and the
// uptime since Start.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{Messages: m.messages, Errors: m.errors}
	if m.messages > 0 {
		snap.ErrorRate = float64(m.errors) / float64(m.messages)
	}
	if m.count > 0 {
		var total time.Duration
		for i := 0; i < m.count; i++ {
			total += m.window[i]
		}
		snap.AvgLatency = total / time.Duration(m.count)
	}
	if !m.startedAt.IsZero() {
		snap.Uptime = time.Since(m.startedAt)
	}
	return snap
}
