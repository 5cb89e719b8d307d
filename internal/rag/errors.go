package rag

import (
	"errors"
	"fmt"

	"fintrack/internal/rag/chunker"
	"fintrack/internal/rag/document"
	"fintrack/internal/rag/embedder"
	"fintrack/internal/rag/index"
)

// Error kinds. Match them with errors.Is; every error the pipeline returns
// wraps exactly one of these.
var (
	ErrConfiguration         = chunker.ErrInvalidConfig
	ErrDocumentUnreadable    = document.ErrUnreadable
	ErrEmbeddingUnavailable  = embedder.ErrUnavailable
	ErrDimensionMismatch     = index.ErrDimensionMismatch
	ErrEmptyCorpus           = index.ErrEmptyCorpus
	ErrGenerationUnavailable = errors.New("rag: generation unavailable")
	ErrIndexNotReady         = errors.New("rag: index not ready")
	ErrAlreadyInitialized    = errors.New("rag: pipeline already initialized")
)

// Error wraps errors with operation context.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("rag.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation context.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
