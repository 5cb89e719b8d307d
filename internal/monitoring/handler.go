package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sort"
	"time"

	"fintrack/internal/rag"
)

// Collector serves Metrics together with live process and index state.
type Collector struct {
	metrics *Metrics
	index   func() rag.Status
	clients func() int
}

// NewCollector creates a collector. index and clients may be nil.
func NewCollector(metrics *Metrics, index func() rag.Status, clients func() int) *Collector {
	return &Collector{metrics: metrics, index: index, clients: clients}
}

// HandlePrometheus handles GET /metrics in the Prometheus text format.
func (c *Collector) HandlePrometheus(w http.ResponseWriter, r *http.Request) {
	snap := c.metrics.Snapshot()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintf(w, "# HELP fintrack_uptime_seconds Server uptime in seconds.\n")
	fmt.Fprintf(w, "# TYPE fintrack_uptime_seconds gauge\n")
	fmt.Fprintf(w, "fintrack_uptime_seconds %d\n", snap.UptimeSeconds)

	fmt.Fprintf(w, "# HELP fintrack_goroutines Number of running goroutines.\n")
	fmt.Fprintf(w, "# TYPE fintrack_goroutines gauge\n")
	fmt.Fprintf(w, "fintrack_goroutines %d\n", runtime.NumGoroutine())

	fmt.Fprintf(w, "# HELP fintrack_memory_bytes Current memory allocation in bytes.\n")
	fmt.Fprintf(w, "# TYPE fintrack_memory_bytes gauge\n")
	fmt.Fprintf(w, "fintrack_memory_bytes %d\n", memStats.Alloc)

	fmt.Fprintf(w, "# HELP fintrack_answers_total Answered questions by outcome.\n")
	fmt.Fprintf(w, "# TYPE fintrack_answers_total counter\n")
	for _, outcome := range []Outcome{OutcomeGrounded, OutcomeRefused, OutcomeGreeting} {
		fmt.Fprintf(w, "fintrack_answers_total{outcome=%q} %d\n", outcome, snap.Answers[outcome])
	}

	fmt.Fprintf(w, "# HELP fintrack_failures_total Failed questions by error code.\n")
	fmt.Fprintf(w, "# TYPE fintrack_failures_total counter\n")
	for _, code := range sortedKeys(snap.Failures) {
		fmt.Fprintf(w, "fintrack_failures_total{code=%q} %d\n", code, snap.Failures[code])
	}

	fmt.Fprintf(w, "# HELP fintrack_answer_latency_avg_ms Average answer latency in ms.\n")
	fmt.Fprintf(w, "# TYPE fintrack_answer_latency_avg_ms gauge\n")
	fmt.Fprintf(w, "fintrack_answer_latency_avg_ms %.1f\n", snap.AvgLatencyMs)

	if c.clients != nil {
		fmt.Fprintf(w, "# HELP fintrack_websocket_connections Current WebSocket connections.\n")
		fmt.Fprintf(w, "# TYPE fintrack_websocket_connections gauge\n")
		fmt.Fprintf(w, "fintrack_websocket_connections %d\n", c.clients())
	}

	if c.index != nil {
		status := c.index()
		ready := 0
		if status.Phase == rag.PhaseReady {
			ready = 1
		}
		fmt.Fprintf(w, "# HELP fintrack_index_ready Whether the document index is ready.\n")
		fmt.Fprintf(w, "# TYPE fintrack_index_ready gauge\n")
		fmt.Fprintf(w, "fintrack_index_ready %d\n", ready)

		fmt.Fprintf(w, "# HELP fintrack_index_chunks Chunks in the document index.\n")
		fmt.Fprintf(w, "# TYPE fintrack_index_chunks gauge\n")
		fmt.Fprintf(w, "fintrack_index_chunks %d\n", status.Chunks)
	}
}

// jsonPayload is the structure returned by GET /metrics/json.
type jsonPayload struct {
	Timestamp time.Time     `json:"timestamp"`
	Questions Snapshot      `json:"questions"`
	System    systemMetrics `json:"system"`
	Index     *rag.Status   `json:"index,omitempty"`
	Clients   *int          `json:"websocket_clients,omitempty"`
}

type systemMetrics struct {
	MemoryBytes    uint64 `json:"memory_bytes"`
	GoroutineCount int    `json:"goroutine_count"`
}

// HandleJSON handles GET /metrics/json.
func (c *Collector) HandleJSON(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	payload := jsonPayload{
		Timestamp: time.Now(),
		Questions: c.metrics.Snapshot(),
		System: systemMetrics{
			MemoryBytes:    memStats.Alloc,
			GoroutineCount: runtime.NumGoroutine(),
		},
	}
	if c.index != nil {
		status := c.index()
		payload.Index = &status
	}
	if c.clients != nil {
		n := c.clients()
		payload.Clients = &n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[Metrics] Failed to encode response: %v", err)
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
