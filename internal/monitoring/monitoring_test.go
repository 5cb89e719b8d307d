package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/rag"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordAnswer(OutcomeGrounded, 100*time.Millisecond)
	m.RecordAnswer(OutcomeRefused, 300*time.Millisecond)
	m.RecordAnswer(OutcomeGreeting, time.Hour) // not timed
	m.RecordFailure("backend_unavailable", 200*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, int64(4), snap.Questions)
	assert.Equal(t, int64(1), snap.Answers[OutcomeGrounded])
	assert.Equal(t, int64(1), snap.Failures["backend_unavailable"])
	assert.InDelta(t, 200.0, snap.AvgLatencyMs, 0.001)
	assert.InDelta(t, 300.0, snap.MaxLatencyMs, 0.001)

	// Snapshots are copies.
	snap.Answers[OutcomeGrounded] = 99
	assert.Equal(t, int64(1), m.Snapshot().Answers[OutcomeGrounded])
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordAnswer(OutcomeGrounded, time.Millisecond)
			_ = m.Snapshot()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), m.Snapshot().Questions)
}

func TestCollector_Prometheus(t *testing.T) {
	m := NewMetrics()
	m.RecordAnswer(OutcomeGrounded, time.Millisecond)
	m.RecordFailure("index_not_ready", time.Millisecond)

	c := NewCollector(m,
		func() rag.Status { return rag.Status{Phase: rag.PhaseReady, Chunks: 12} },
		func() int { return 3 },
	)

	rec := httptest.NewRecorder()
	c.HandlePrometheus(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, body, `fintrack_answers_total{outcome="grounded"} 1`)
	assert.Contains(t, body, `fintrack_answers_total{outcome="refused"} 0`)
	assert.Contains(t, body, `fintrack_failures_total{code="index_not_ready"} 1`)
	assert.Contains(t, body, "fintrack_websocket_connections 3")
	assert.Contains(t, body, "fintrack_index_ready 1")
	assert.Contains(t, body, "fintrack_index_chunks 12")
}

func TestCollector_JSON(t *testing.T) {
	m := NewMetrics()
	m.RecordAnswer(OutcomeRefused, time.Millisecond)

	rec := httptest.NewRecorder()
	NewCollector(m, nil, nil).HandleJSON(rec, httptest.NewRequest(http.MethodGet, "/metrics/json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	questions := payload["questions"].(map[string]any)
	assert.EqualValues(t, 1, questions["questions_total"])
	assert.NotContains(t, payload, "index")
	assert.NotContains(t, payload, "websocket_clients")
}
