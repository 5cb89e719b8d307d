package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"fintrack/internal/ai"
	"fintrack/internal/rag/embedder"
)

const adviceDoc = `Emergency funds

Keep three to six months of expenses in an emergency fund held in a separate account.

Saving

Save at least 20% of your income. Automate the transfer on payday.

Debt

Pay off credit card balances before investing, because card interest is usually higher than market returns.

Investing

Index funds offer broad diversification with low fees for long term investors.`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "advice.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// readyPipeline bootstraps adviceDoc with the offline TF-IDF embedder.
func readyPipeline(t *testing.T) *Pipeline {
	t.Helper()
	p := NewPipeline(embedder.NewTFIDF(0))
	_, err := p.Initialize(context.Background(), writeDoc(t, adviceDoc), 120, 20)
	require.NoError(t, err)
	return p
}

// stubEmbedder returns scripted vectors or errors.
type stubEmbedder struct {
	batch    [][]float32
	query    []float32
	err      error
	queryErr error
	calls    atomic.Int32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.query, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.batch != nil {
		return s.batch, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, float32(i)}
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int { return 2 }
func (s *stubEmbedder) Name() string    { return "stub" }

// extractiveProvider answers with the first context sentence that shares a
// word with the question, or the refusal phrase. It stands in for a model
// that follows the system prompt.
type extractiveProvider struct {
	calls atomic.Int32
}

func (e *extractiveProvider) Name() string { return "extractive" }

func (e *extractiveProvider) GenerateResponse(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
	e.calls.Add(1)
	prompt := req.Messages[len(req.Messages)-1].Content
	question, passage, ok := strings.Cut(prompt, "\n\nContext: ")
	if !ok {
		return nil, errors.New("malformed prompt")
	}
	question = strings.TrimPrefix(question, "Based on this document, answer: ")

	keywords := strings.Fields(strings.ToLower(strings.Trim(question, "?")))
	for _, sentence := range strings.Split(passage, ". ") {
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if len(kw) > 3 && strings.Contains(lower, kw) {
				return &ai.GenerateResponse{Content: strings.TrimSpace(sentence) + "."}, nil
			}
		}
	}
	return &ai.GenerateResponse{Content: RefusalPhrase}, nil
}
