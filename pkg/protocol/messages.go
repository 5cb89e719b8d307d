// Package protocol defines the JSON messages exchanged over the chat websocket.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of protocol message
type MessageType string

const (
	TypeQuestion    MessageType = "question"     // client -> server: user asks
	TypeAnswer      MessageType = "answer"       // server -> client: reply to a question
	TypeError       MessageType = "error"        // server -> client: a question failed
	TypeServerInfo  MessageType = "server_info"  // server -> client: sent on connect
	TypeHealthCheck MessageType = "health_check" // bidirectional ping
)

// Error codes carried by ErrorResponse.
const (
	CodeBadRequest         = "bad_request"
	CodeIndexNotReady      = "index_not_ready"
	CodeBackendUnavailable = "backend_unavailable"
	CodeInternal           = "internal"
	CodeTooManyQuestions   = "too_many_questions"
)

// BaseMessage contains common fields for all protocol messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewBase stamps a message of type t with a fresh id.
func NewBase(t MessageType) BaseMessage {
	now := time.Now()
	return BaseMessage{
		Type:      t,
		ID:        fmt.Sprintf("%s_%d", t, now.UnixNano()),
		Timestamp: now,
	}
}

// Question is a user message.
type Question struct {
	BaseMessage
	RequestID string `json:"request_id,omitempty"` // echoed on the reply
	Text      string `json:"text"`
}

// Source identifies a chunk of the reference document.
type Source struct {
	Offset int     `json:"offset"`
	Score  float64 `json:"score"`
}

// Answer is the reply to a Question.
type Answer struct {
	BaseMessage
	RequestID string   `json:"request_id,omitempty"`
	Text      string   `json:"text"`
	Grounded  bool     `json:"grounded"`
	Greeting  bool     `json:"greeting,omitempty"`
	Sources   []Source `json:"sources,omitempty"`
}

// ErrorResponse reports a failed Question.
type ErrorResponse struct {
	BaseMessage
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// ServerInfo describes the server to a newly connected client.
type ServerInfo struct {
	BaseMessage
	Version  string `json:"version"`
	Phase    string `json:"phase"`
	Document string `json:"document,omitempty"`
	Chunks   int    `json:"chunks,omitempty"`
}

// HealthCheck represents a health check request/response
type HealthCheck struct {
	BaseMessage
	Status string `json:"status"`
}

// ParseMessage decodes a message into its concrete type. Unknown types come
// back as *BaseMessage.
func ParseMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, err
	}

	var msg interface{}
	switch base.Type {
	case TypeQuestion:
		msg = &Question{}
	case TypeAnswer:
		msg = &Answer{}
	case TypeError:
		msg = &ErrorResponse{}
	case TypeServerInfo:
		msg = &ServerInfo{}
	case TypeHealthCheck:
		msg = &HealthCheck{}
	default:
		return &base, nil
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
