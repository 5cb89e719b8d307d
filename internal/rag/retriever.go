package rag

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/rag/index"
	"fintrack/internal/rag/mathutil"
)

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	pipeline *Pipeline
	minScore float64
}

// NewRetriever creates a retriever over p. Results scoring below minScore are
// dropped; a minScore of 0 keeps everything.
func NewRetriever(p *Pipeline, minScore float64) *Retriever {
	return &Retriever{pipeline: p, minScore: minScore}
}

// Retrieve embeds question and returns up to topK chunks, best first.
// Embedding failures are returned as-is without retry.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]index.Result, error) {
	ready, err := r.pipeline.Ready()
	if err != nil {
		return nil, err
	}

	vec, err := ready.Embedder.Embed(ctx, question)
	if err != nil {
		if !errors.Is(err, ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
		}
		return nil, WrapError("retrieve", err)
	}

	// A query sharing no terms with the corpus has nothing to match.
	if mathutil.Norm(vec) == 0 {
		return []index.Result{}, nil
	}

	results, err := ready.Index.Search(vec, topK)
	if err != nil {
		// A query vector of the wrong length is malformed embedder output.
		return nil, WrapError("retrieve", fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err))
	}

	if r.minScore <= 0 {
		return results, nil
	}
	kept := results[:0]
	for _, res := range results {
		if res.Score >= r.minScore {
			kept = append(kept, res)
		}
	}
	return kept, nil
}
