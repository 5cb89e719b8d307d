package embedder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Compile-time interface check.
var _ Embedder = (*OpenAI)(nil)

const (
	defaultOpenAIModel     = "text-embedding-3-small"
	defaultOpenAIBatchSize = 64
)

// OpenAIConfig configures the OpenAI embeddings backend.
type OpenAIConfig struct {
	APIKey     string
	Model      string // default text-embedding-3-small
	BaseURL    string // optional, for compatible gateways and tests
	Dimensions int    // sent only when set; otherwise learned from the first response
	BatchSize  int
	Timeout    time.Duration
}

// OpenAI embeds text through the OpenAI embeddings API.
type OpenAI struct {
	client    *openai.Client
	model     string
	batchSize int
	timeout   time.Duration
	requested int

	mu   sync.Mutex
	dims int
}

// NewOpenAI creates an OpenAI embedder.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultOpenAIBatchSize
	}
	return &OpenAI{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		timeout:   cfg.Timeout,
		requested: cfg.Dimensions,
		dims:      cfg.Dimensions,
	}
}

func (o *OpenAI) Name() string { return "openai:" + o.model }

func (o *OpenAI) Dimensions() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dims
}

// Embed returns the vector for a single text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch sends texts in batches and returns vectors in input order.
func (o *OpenAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += o.batchSize {
		end := start + o.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := o.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (o *OpenAI) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	dims := o.Dimensions()
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: o.requested,
	})
	if err != nil {
		return nil, unavailable(o.Name(), err)
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	if err := checkVectors(o.Name(), vectors, len(texts), dims); err != nil {
		return nil, err
	}

	if dims == 0 {
		o.mu.Lock()
		if o.dims == 0 {
			o.dims = len(vectors[0])
		}
		dims = o.dims
		o.mu.Unlock()
		if len(vectors[0]) != dims {
			return nil, unavailable(o.Name(), fmt.Errorf("vector has %d dimensions, expected %d", len(vectors[0]), dims))
		}
	}
	return vectors, nil
}
