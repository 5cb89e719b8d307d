package tui

import "fintrack/pkg/protocol"

// BubbleTea message types produced by the WebSocket read pump

// ConnectedMsg signals successful WebSocket connection
type ConnectedMsg struct{}

// DisconnectedMsg signals WebSocket disconnection
type DisconnectedMsg struct {
	Err error
}

// ServerInfoMsg delivers server metadata sent on connect
type ServerInfoMsg struct {
	Version  string
	Phase    string
	Document string
	Chunks   int
}

// AnswerMsg delivers the reply to a question
type AnswerMsg struct {
	RequestID string
	Text      string
	Grounded  bool
	Greeting  bool
	Sources   []protocol.Source
}

// ErrorMsg signals a failed question
type ErrorMsg struct {
	RequestID string
	Code      string
	Message   string
}
