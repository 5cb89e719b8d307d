package gateway

import (
	"net/http"
	"time"

	"fintrack/internal/rag"
	"fintrack/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Version   string     `json:"version"`
	Uptime    string     `json:"uptime"`
	Clients   int        `json:"websocket_clients"`
	Pipeline  rag.Status `json:"pipeline"`
}

// handleHealth reports liveness plus pipeline state. It answers 503 until
// the index is ready, and after a failed bootstrap.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := g.chat.Pipeline().Status()

	status := "healthy"
	code := http.StatusOK
	switch st.Phase {
	case rag.PhaseReady:
	case rag.PhaseFailed:
		status, code = "unhealthy", http.StatusServiceUnavailable
	default:
		status, code = "starting", http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Version:   version.Info(),
		Uptime:    time.Since(g.startedAt).Round(time.Second).String(),
		Clients:   g.ClientCount(),
		Pipeline:  st,
	})
}

// handleReady is a minimal readiness probe.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	st := g.chat.Pipeline().Status()
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if st.Phase != rag.PhaseReady {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"ready": false, "phase": st.Phase})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ready": true})
}
