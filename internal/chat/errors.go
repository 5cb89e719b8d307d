package chat

import (
	"errors"

	"fintrack/internal/rag"
	"fintrack/pkg/protocol"
)

// ErrorCode maps an Ask error to a protocol error code and a message safe
// to show to the asker.
func ErrorCode(err error) (code, message string) {
	switch {
	case errors.Is(err, ErrEmptyQuestion):
		return protocol.CodeBadRequest, "question is required"
	case errors.Is(err, rag.ErrIndexNotReady):
		return protocol.CodeIndexNotReady, "the document index is not ready yet"
	case errors.Is(err, rag.ErrEmbeddingUnavailable), errors.Is(err, rag.ErrGenerationUnavailable):
		return protocol.CodeBackendUnavailable, "the answering backend is unavailable"
	default:
		return protocol.CodeInternal, "internal error"
	}
}
