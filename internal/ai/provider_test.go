package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/config"
)

func testRequest() *GenerateRequest {
	return &GenerateRequest{
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "Answer from the document only."},
			{Role: RoleUser, Content: "How much should I save?"},
		},
		MaxTokens:   150,
		Temperature: 0.7,
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem(testRequest().Messages)
	assert.Equal(t, "Answer from the document only.", system)
	require.Len(t, rest, 1)
	assert.Equal(t, RoleUser, rest[0].Role)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), config.GeneratorConfig{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = NewProvider(context.Background(), config.GeneratorConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = NewProvider(context.Background(), config.GeneratorConfig{Provider: "openai"})
	assert.Error(t, err, "openai requires an API key")

	_, err = NewProvider(context.Background(), config.GeneratorConfig{Provider: "eliza"})
	assert.Error(t, err)
}

func TestOpenAIProvider_GenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Equal(t, float64(150), body["max_tokens"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Save at least 20% of your income."}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 9, "total_tokens": 49}
		}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(config.GeneratorConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	resp, err := p.GenerateResponse(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Save at least 20% of your income.", resp.Content)
	assert.Equal(t, 49, resp.Usage.TotalTokens)
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(config.GeneratorConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	_, err = p.GenerateResponse(context.Background(), testRequest())
	assert.Error(t, err)
}

func TestAnthropicProvider_GenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		system := body["system"].([]any)
		require.Len(t, system, 1)
		assert.Equal(t, "Answer from the document only.", system[0].(map[string]any)["text"])
		assert.Len(t, body["messages"].([]any), 1)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Save at least 20% of your income."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 30, "output_tokens": 8}
		}`))
	}))
	defer server.Close()

	p, err := NewAnthropicProvider(config.GeneratorConfig{APIKey: "test", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	resp, err := p.GenerateResponse(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Save at least 20% of your income.", resp.Content)
	assert.Equal(t, 38, resp.Usage.TotalTokens)
}

func TestOllamaProvider_GenerateResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, 150, req.Options.NumPredict)
		assert.InDelta(t, 0.7, req.Options.Temperature, 1e-9)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "mistral",
			Message:         ChatMessage{Role: RoleAssistant, Content: "Twenty percent."},
			PromptEvalCount: 12,
			EvalCount:       3,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(config.GeneratorConfig{BaseURL: server.URL})
	resp, err := p.GenerateResponse(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Twenty percent.", resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestOllamaProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOllamaProvider(config.GeneratorConfig{BaseURL: server.URL})
	_, err := p.GenerateResponse(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider("test")
	m.AddResponse("first")
	m.AddErrorResponse(errors.New("boom"))

	resp, err := m.GenerateResponse(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	_, err = m.GenerateResponse(context.Background(), testRequest())
	assert.EqualError(t, err, "boom")

	resp, err = m.GenerateResponse(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Mock response", resp.Content)

	assert.Equal(t, 3, m.GetCallCount())
	require.NotNil(t, m.LastCall())
	assert.Equal(t, "How much should I save?", m.LastCall().Request.Messages[1].Content)
}

func TestMockProvider_DelayHonoursContext(t *testing.T) {
	m := NewMockProvider("slow")
	m.AddDelayedResponse("late", time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.GenerateResponse(ctx, testRequest())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
