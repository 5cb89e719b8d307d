// Package monitoring counts question outcomes and exposes them, with
// process and index state, in Prometheus text and JSON form.
package monitoring

import (
	"sync"
	"time"
)

// Outcome classifies an answered question.
type Outcome string

const (
	OutcomeGrounded Outcome = "grounded"
	OutcomeRefused  Outcome = "refused"
	OutcomeGreeting Outcome = "greeting"
)

// Metrics tracks question counts and answer latency. Safe for concurrent use.
type Metrics struct {
	mu        sync.RWMutex
	startTime time.Time

	answers      map[Outcome]int64
	failures     map[string]int64 // by protocol error code
	latencyTotal time.Duration
	latencyCount int64
	latencyMax   time.Duration
}

// NewMetrics creates an empty metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
		answers:   make(map[Outcome]int64),
		failures:  make(map[string]int64),
	}
}

// RecordAnswer counts a reply. Greetings are not timed; they never reach
// the model.
func (m *Metrics) RecordAnswer(outcome Outcome, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.answers[outcome]++
	if outcome != OutcomeGreeting {
		m.observe(took)
	}
}

// RecordFailure counts a question that ended in an error.
func (m *Metrics) RecordFailure(code string, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failures[code]++
	m.observe(took)
}

func (m *Metrics) observe(took time.Duration) {
	m.latencyTotal += took
	m.latencyCount++
	if took > m.latencyMax {
		m.latencyMax = took
	}
}

// Snapshot is a data-only copy of Metrics, safe to pass by value.
type Snapshot struct {
	Questions     int64             `json:"questions_total"`
	Answers       map[Outcome]int64 `json:"answers"`
	Failures      map[string]int64  `json:"failures"`
	AvgLatencyMs  float64           `json:"avg_latency_ms"`
	MaxLatencyMs  float64           `json:"max_latency_ms"`
	UptimeSeconds int64             `json:"uptime_seconds"`
}

// Snapshot returns a thread-safe copy of the current metrics
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		Answers:       make(map[Outcome]int64, len(m.answers)),
		Failures:      make(map[string]int64, len(m.failures)),
		MaxLatencyMs:  float64(m.latencyMax) / float64(time.Millisecond),
		UptimeSeconds: int64(time.Since(m.startTime).Seconds()),
	}
	for k, v := range m.answers {
		snap.Answers[k] = v
		snap.Questions += v
	}
	for k, v := range m.failures {
		snap.Failures[k] = v
		snap.Questions += v
	}
	if m.latencyCount > 0 {
		snap.AvgLatencyMs = float64(m.latencyTotal) / float64(m.latencyCount) / float64(time.Millisecond)
	}
	return snap
}
