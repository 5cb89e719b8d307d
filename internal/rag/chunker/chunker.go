package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when the chunk size and overlap cannot make progress.
var ErrInvalidConfig = errors.New("chunker: invalid configuration")

// Chunk is a contiguous span of the source document.
type Chunk struct {
	Text   string
	Offset int // rune offset of Text in the source document
	Index  int
}

// End returns the rune offset just past the chunk.
func (c Chunk) End() int {
	return c.Offset + len([]rune(c.Text))
}

// Chunker splits documents into indexable pieces.
type Chunker interface {
	Split(text string) []Chunk
}

// Validate reports whether size and overlap describe a usable split.
func Validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfig, overlap, size)
	}
	return nil
}

// Split is a convenience wrapper around NewRecursive(size, overlap).Split(text).
func Split(text string, size, overlap int) ([]Chunk, error) {
	r, err := NewRecursive(size, overlap)
	if err != nil {
		return nil, err
	}
	return r.Split(text), nil
}
