// Package index holds an immutable, exact nearest-neighbor index over chunk
// embeddings.
package index

import (
	"errors"
	"fmt"
	"sort"

	"fintrack/internal/rag/chunker"
	"fintrack/internal/rag/mathutil"
)

var (
	ErrEmptyCorpus       = errors.New("index: empty corpus")
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")
)

// Result is a chunk paired with its similarity to the query.
type Result struct {
	Chunk chunker.Chunk
	Score float64
	ID    int // insertion position
}

type entry struct {
	chunk  chunker.Chunk
	vector []float32
	norm   float64
}

// Flat is a brute-force cosine index. It has no mutating methods, so a built
// index is safe for concurrent Search calls.
type Flat struct {
	entries []entry
	dims    int
}

// Build creates an index from chunks and their vectors, which must pair up
// one to one and share a single dimension.
func Build(chunks []chunker.Chunk, vectors [][]float32) (*Flat, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks but %d vectors", ErrDimensionMismatch, len(chunks), len(vectors))
	}

	dims := len(vectors[0])
	if dims == 0 {
		return nil, fmt.Errorf("%w: zero-length vectors", ErrDimensionMismatch)
	}

	entries := make([]entry, len(chunks))
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dims)
		}
		vec := make([]float32, dims)
		copy(vec, v)
		entries[i] = entry{chunk: chunks[i], vector: vec, norm: mathutil.Norm(vec)}
	}

	return &Flat{entries: entries, dims: dims}, nil
}

// Len returns the number of indexed chunks.
func (f *Flat) Len() int { return len(f.entries) }

// Dimensions returns the vector length shared by every entry.
func (f *Flat) Dimensions() int { return f.dims }

// Chunks returns a copy of the indexed chunks in insertion order.
func (f *Flat) Chunks() []chunker.Chunk {
	out := make([]chunker.Chunk, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.chunk
	}
	return out
}

// Search returns up to k chunks ranked by descending cosine similarity.
// Equal scores keep insertion order. k is clamped to the corpus size and
// k <= 0 yields no results.
func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", ErrDimensionMismatch, len(query), f.dims)
	}
	if k <= 0 {
		return []Result{}, nil
	}
	if k > len(f.entries) {
		k = len(f.entries)
	}

	qNorm := mathutil.Norm(query)
	results := make([]Result, len(f.entries))
	for i, e := range f.entries {
		var score float64
		if qNorm > 0 && e.norm > 0 {
			score = mathutil.DotProduct(query, e.vector) / (qNorm * e.norm)
		}
		results[i] = Result{Chunk: e.chunk, Score: score, ID: i}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results[:k], nil
}
