package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/rag/mathutil"
)

var corpus = []string{
	"Save at least 20% of your income every month.",
	"Pay off credit card debt before investing.",
	"An emergency fund should cover six months of expenses.",
}

func TestTFIDF_RequiresPrepare(t *testing.T) {
	e := NewTFIDF(0)
	_, err := e.Embed(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, e.Dimensions())
}

func TestTFIDF_FixedDimensions(t *testing.T) {
	e := NewTFIDF(0)
	require.NoError(t, e.Prepare(corpus))

	dims := e.Dimensions()
	require.Greater(t, dims, 0)

	vectors, err := e.EmbedBatch(context.Background(), append(corpus, "unrelated words entirely"))
	require.NoError(t, err)
	require.Len(t, vectors, len(corpus)+1)
	for _, v := range vectors {
		assert.Len(t, v, dims)
	}
}

func TestTFIDF_Deterministic(t *testing.T) {
	a := NewTFIDF(0)
	b := NewTFIDF(0)
	require.NoError(t, a.Prepare(corpus))
	require.NoError(t, b.Prepare(corpus))

	va, err := a.Embed(context.Background(), "How much should I save?")
	require.NoError(t, err)
	vb, err := b.Embed(context.Background(), "How much should I save?")
	require.NoError(t, err)
	assert.Equal(t, va, vb)
}

func TestTFIDF_RanksRelevantChunkHighest(t *testing.T) {
	e := NewTFIDF(0)
	require.NoError(t, e.Prepare(corpus))

	docs, err := e.EmbedBatch(context.Background(), corpus)
	require.NoError(t, err)
	q, err := e.Embed(context.Background(), "How much should I save?")
	require.NoError(t, err)

	best, bestScore := -1, -2.0
	for i, d := range docs {
		if s := mathutil.CosineSimilarity(q, d); s > bestScore {
			best, bestScore = i, s
		}
	}
	assert.Equal(t, 0, best)
	assert.Greater(t, bestScore, 0.0)
}

func TestTFIDF_UnknownTermsGiveZeroVector(t *testing.T) {
	e := NewTFIDF(0)
	require.NoError(t, e.Prepare(corpus))

	v, err := e.Embed(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, 0.0, mathutil.Norm(v))
}

func TestTFIDF_MaxFeatures(t *testing.T) {
	e := NewTFIDF(3)
	require.NoError(t, e.Prepare(corpus))
	assert.Equal(t, 3, e.Dimensions())
}

func TestTFIDF_CancelledContext(t *testing.T) {
	e := NewTFIDF(0)
	require.NoError(t, e.Prepare(corpus))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.EmbedBatch(ctx, corpus)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"save", "20", "income"}, tokenize("Save 20% of income"))
}
