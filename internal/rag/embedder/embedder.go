package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/rag/mathutil"
)

// ErrUnavailable is returned when the embedding backend cannot produce a
// usable vector: unreachable, timed out, or malformed output.
var ErrUnavailable = errors.New("embedder: unavailable")

// Embedder converts text to fixed-length vectors.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length, or 0 if not yet known.
	Dimensions() int

	// Name identifies the backend and model.
	Name() string
}

// Preparer is implemented by embedders that must see the corpus before they
// can embed anything, such as TF-IDF.
type Preparer interface {
	Prepare(corpus []string) error
}

// unavailable wraps err so callers can match ErrUnavailable.
func unavailable(backend string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, backend, err)
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// checkVectors rejects responses with the wrong count, wrong length or
// non-finite components. dims of 0 only requires consistent lengths.
func checkVectors(backend string, vectors [][]float32, want, dims int) error {
	if len(vectors) != want {
		return unavailable(backend, fmt.Errorf("got %d vectors for %d inputs", len(vectors), want))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return unavailable(backend, fmt.Errorf("empty vector at position %d", i))
		}
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			return unavailable(backend, fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), dims))
		}
		if !mathutil.Finite(v) {
			return unavailable(backend, fmt.Errorf("vector %d contains non-finite values", i))
		}
	}
	return nil
}
