package ai

import (
	"context"
	"sync"
	"time"
)

// MockProvider is a test provider that records calls and returns configurable responses
type MockProvider struct {
	name      string
	responses []MockResponse
	calls     []MockCall
	mu        sync.Mutex
	respIndex int
}

// MockResponse represents a pre-configured response for the mock provider
type MockResponse struct {
	Content string
	Usage   Usage
	Error   error
	Delay   time.Duration // honoured with ctx, to simulate slow backends
}

// MockCall records information about a call to GenerateResponse
type MockCall struct {
	Request *GenerateRequest
}

// NewMockProvider creates a new mock provider for testing
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return m.name
}

// GenerateResponse records the call and returns the next configured response
func (m *MockProvider) GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Request: req})

	var resp *MockResponse
	if m.respIndex < len(m.responses) {
		resp = &m.responses[m.respIndex]
		m.respIndex++
	}
	m.mu.Unlock()

	// Default response when no responses configured
	if resp == nil {
		return &GenerateResponse{
			Content: "Mock response",
			Usage:   Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}

	if resp.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resp.Delay):
		}
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return &GenerateResponse{
		Content: resp.Content,
		Model:   m.name,
		Usage:   resp.Usage,
	}, nil
}

// SetResponses configures the responses that will be returned by GenerateResponse, in order
func (m *MockProvider) SetResponses(responses []MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.respIndex = 0
}

// AddResponse adds a single response to the queue
func (m *MockProvider) AddResponse(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{
		Content: content,
		Usage:   Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	})
}

// AddErrorResponse adds an error response to the queue
func (m *MockProvider) AddErrorResponse(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Error: err})
}

// AddDelayedResponse adds a response that only arrives after delay
func (m *MockProvider) AddDelayedResponse(content string, delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, MockResponse{Content: content, Delay: delay})
}

// GetCallCount returns the number of times GenerateResponse was called
func (m *MockProvider) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent call, or nil if no calls have been made
func (m *MockProvider) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return &m.calls[len(m.calls)-1]
}
