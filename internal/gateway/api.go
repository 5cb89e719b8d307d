package gateway

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"fintrack/internal/chat"
	"fintrack/pkg/protocol"
)

const maxRequestBytes = 64 << 10

// Messages returned by the /chat route.
const (
	msgMessageRequired = "Message is required"
	msgAIFailure       = "Failed to get response from AI"
)

// handleChat handles POST /chat
// Request: {"userMessage": "..."}
// Response: {"response": "..."}
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserMessage string `json:"userMessage"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, msgMessageRequired)
		return
	}

	reply, err := g.chat.Ask(r.Context(), req.UserMessage)
	if errors.Is(err, chat.ErrEmptyQuestion) {
		writeJSONError(w, http.StatusBadRequest, msgMessageRequired)
		return
	}
	if err != nil {
		log.Printf("[Gateway] Chat failed: %v", err)
		writeJSONError(w, http.StatusInternalServerError, msgAIFailure)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": reply.Answer})
}

// AskResponse is the body of a successful POST /api/ask.
type AskResponse struct {
	Answer   string            `json:"answer"`
	Grounded bool              `json:"grounded"`
	Greeting bool              `json:"greeting,omitempty"`
	Sources  []protocol.Source `json:"sources"`
}

// handleAsk handles POST /api/ask
// Request: {"question": "..."}
// Response: AskResponse
func (g *Gateway) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	reply, err := g.chat.Ask(r.Context(), req.Question)
	if err != nil {
		status, _, message := classifyError(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[Gateway] Ask failed: %v", err)
		}
		writeJSONError(w, status, message)
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{
		Answer:   reply.Answer,
		Grounded: reply.Grounded,
		Greeting: reply.Greeting,
		Sources:  toSources(reply.Sources),
	})
}

// classifyError maps an Ask error to an HTTP status, a protocol error code
// and a client-safe message.
func classifyError(err error) (int, string, string) {
	code, message := chat.ErrorCode(err)
	switch code {
	case protocol.CodeBadRequest:
		return http.StatusBadRequest, code, message
	case protocol.CodeIndexNotReady:
		return http.StatusServiceUnavailable, code, message
	case protocol.CodeBackendUnavailable:
		return http.StatusBadGateway, code, message
	default:
		return http.StatusInternalServerError, code, message
	}
}

func toSources(in []chat.Source) []protocol.Source {
	out := make([]protocol.Source, 0, len(in))
	for _, s := range in {
		out = append(out, protocol.Source{Offset: s.Offset, Score: s.Score})
	}
	return out
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Gateway] Failed to encode response: %v", err)
	}
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
