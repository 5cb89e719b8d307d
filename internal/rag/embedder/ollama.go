package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"fintrack/internal/version"
)

// Compile-time interface check.
var _ Embedder = (*Ollama)(nil)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"
)

// OllamaConfig configures a local Ollama embeddings backend.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// Ollama embeds text through Ollama's /api/embeddings endpoint, one request
// per text.
type Ollama struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client

	mu   sync.Mutex
	dims int
}

// NewOllama creates an Ollama embedder.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	return &Ollama{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  &http.Client{},
		dims:    cfg.Dimensions,
	}
}

func (o *Ollama) Name() string { return "ollama:" + o.model }

func (o *Ollama) Dimensions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dims
}

// Embed returns the vector for a single text.
func (o *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	body, err := json.Marshal(ollamaEmbedRequest{Model: o.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	httpResp, err := o.client.Do(req)
	if err != nil {
		return nil, unavailable(o.Name(), err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, unavailable(o.Name(), fmt.Errorf("read response: %w", err))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, unavailable(o.Name(), fmt.Errorf("API error %d: %s", httpResp.StatusCode, string(respBody)))
	}

	var resp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, unavailable(o.Name(), fmt.Errorf("unmarshal response: %w", err))
	}

	vec := make([]float32, len(resp.Embedding))
	for i, x := range resp.Embedding {
		vec[i] = float32(x)
	}

	o.mu.Lock()
	if o.dims == 0 && len(vec) > 0 {
		o.dims = len(vec)
	}
	dims := o.dims
	o.mu.Unlock()

	if err := checkVectors(o.Name(), [][]float32{vec}, 1, dims); err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch embeds texts sequentially, preserving order.
func (o *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := o.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}
