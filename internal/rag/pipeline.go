package rag

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"fintrack/internal/rag/chunker"
	"fintrack/internal/rag/document"
	"fintrack/internal/rag/embedder"
	"fintrack/internal/rag/index"
)

// Phase describes where the pipeline is in its one-time bootstrap.
type Phase string

const (
	PhasePending      Phase = "pending"
	PhaseInitializing Phase = "initializing"
	PhaseReady        Phase = "ready"
	PhaseFailed       Phase = "failed"
)

// ReadyIndex is the immutable result of a successful bootstrap.
type ReadyIndex struct {
	Index        *index.Flat
	Embedder     embedder.Embedder
	DocumentPath string
	ChunkSize    int
	Overlap      int
	BuiltAt      time.Time
}

// Status is a point-in-time view of the pipeline for health checks.
type Status struct {
	Phase      Phase     `json:"phase"`
	Document   string    `json:"document,omitempty"`
	Embedder   string    `json:"embedder,omitempty"`
	Chunks     int       `json:"chunks,omitempty"`
	Dimensions int       `json:"dimensions,omitempty"`
	BuiltAt    *time.Time `json:"built_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type state struct {
	phase Phase
	ready *ReadyIndex
	err   error
}

// Pipeline owns the process-wide index. It is built once by Initialize and
// published atomically; readers see either no index or a complete one.
type Pipeline struct {
	embedder embedder.Embedder
	started  atomic.Bool
	state    atomic.Pointer[state]
}

// NewPipeline creates a pipeline that embeds with e.
func NewPipeline(e embedder.Embedder) *Pipeline {
	p := &Pipeline{embedder: e}
	p.state.Store(&state{phase: PhasePending})
	return p
}

// Initialize reads the document, splits it, embeds every chunk and builds the
// index. It may run once per pipeline; on failure the pipeline stays in
// PhaseFailed and every query reports ErrIndexNotReady.
func (p *Pipeline) Initialize(ctx context.Context, documentPath string, chunkSize, overlap int) (*ReadyIndex, error) {
	if !p.started.CompareAndSwap(false, true) {
		return nil, WrapError("initialize", ErrAlreadyInitialized)
	}
	p.state.Store(&state{phase: PhaseInitializing})

	start := time.Now()
	ready, err := p.build(ctx, documentPath, chunkSize, overlap)
	if err != nil {
		log.Printf("[RAG] Bootstrap failed for %s: %v", documentPath, err)
		p.state.Store(&state{phase: PhaseFailed, err: err})
		return nil, WrapError("initialize", err)
	}

	p.state.Store(&state{phase: PhaseReady, ready: ready})
	log.Printf("[RAG] Indexed %d chunks (%d dims, %s) from %s in %s",
		ready.Index.Len(), ready.Index.Dimensions(), p.embedder.Name(), documentPath, time.Since(start).Round(time.Millisecond))
	return ready, nil
}

func (p *Pipeline) build(ctx context.Context, documentPath string, chunkSize, overlap int) (*ReadyIndex, error) {
	splitter, err := chunker.NewRecursive(chunkSize, overlap)
	if err != nil {
		return nil, err
	}

	text, err := document.Load(documentPath)
	if err != nil {
		return nil, err
	}

	chunks := splitter.Split(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s contains no text", ErrEmptyCorpus, documentPath)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	if prep, ok := p.embedder.(embedder.Preparer); ok {
		if err := prep.Prepare(texts); err != nil {
			return nil, fmt.Errorf("%w: prepare: %w", ErrEmbeddingUnavailable, err)
		}
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	idx, err := index.Build(chunks, vectors)
	if err != nil {
		return nil, err
	}

	return &ReadyIndex{
		Index:        idx,
		Embedder:     p.embedder,
		DocumentPath: documentPath,
		ChunkSize:    chunkSize,
		Overlap:      overlap,
		BuiltAt:      time.Now(),
	}, nil
}

// Ready returns the published index, or an error wrapping ErrIndexNotReady.
// After a failed bootstrap the error also wraps the original cause.
func (p *Pipeline) Ready() (*ReadyIndex, error) {
	s := p.state.Load()
	switch s.phase {
	case PhaseReady:
		return s.ready, nil
	case PhaseFailed:
		return nil, WrapError("ready", fmt.Errorf("%w: bootstrap failed: %w", ErrIndexNotReady, s.err))
	default:
		return nil, WrapError("ready", fmt.Errorf("%w: %s", ErrIndexNotReady, s.phase))
	}
}

// Status reports the bootstrap phase and, once ready, index details.
func (p *Pipeline) Status() Status {
	s := p.state.Load()
	st := Status{Phase: s.phase}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	if s.ready != nil {
		st.Document = s.ready.DocumentPath
		st.Embedder = s.ready.Embedder.Name()
		st.Chunks = s.ready.Index.Len()
		st.Dimensions = s.ready.Index.Dimensions()
		builtAt := s.ready.BuiltAt
		st.BuiltAt = &builtAt
	}
	return st
}
