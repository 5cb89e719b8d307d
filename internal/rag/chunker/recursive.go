package chunker

// separators in order of preference. A cut is placed just after the separator
// so it stays with the preceding chunk.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune("! "),
	[]rune("? "),
	[]rune("; "),
	[]rune(" "),
}

// Recursive splits text on the strongest natural boundary that fits in the
// size budget, falling back to weaker boundaries and finally a hard cut.
// Sizes and offsets are counted in runes.
type Recursive struct {
	size    int
	overlap int
}

// NewRecursive creates a boundary-aware chunker.
func NewRecursive(size, overlap int) (*Recursive, error) {
	if err := Validate(size, overlap); err != nil {
		return nil, err
	}
	return &Recursive{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in runes.
func (r *Recursive) Size() int { return r.size }

// Overlap returns the number of runes shared by consecutive chunks.
func (r *Recursive) Overlap() int { return r.overlap }

// Split cuts text into chunks of at most Size runes. Consecutive chunks share
// exactly Overlap runes, so the text after each chunk's overlap region
// concatenates back to the original document.
func (r *Recursive) Split(text string) []Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + r.size
		if end >= n {
			chunks = append(chunks, Chunk{
				Text:   string(runes[start:]),
				Offset: start,
				Index:  len(chunks),
			})
			return chunks
		}

		cut := r.boundary(runes, start, end)
		chunks = append(chunks, Chunk{
			Text:   string(runes[start:cut]),
			Offset: start,
			Index:  len(chunks),
		})
		start = cut - r.overlap
	}
}

// boundary picks the cut position in (lo, hi]. lo keeps chunks from
// degenerating: every chunk moves past the previous overlap and fills at
// least half of its budget before a natural boundary is accepted.
func (r *Recursive) boundary(runes []rune, start, hi int) int {
	lo := start + r.overlap + 1
	if half := start + r.size/2; half > lo {
		lo = half
	}
	if lo > hi {
		return hi
	}

	for _, sep := range separators {
		if pos := lastBoundary(runes, sep, lo, hi); pos > 0 {
			return pos
		}
	}
	return hi
}

// lastBoundary returns the largest p in [lo, hi] such that runes[p-len(sep):p]
// equals sep, or -1.
func lastBoundary(runes, sep []rune, lo, hi int) int {
	for p := hi; p >= lo; p-- {
		if p < len(sep) {
			break
		}
		if hasSuffixAt(runes, sep, p) {
			return p
		}
	}
	return -1
}

func hasSuffixAt(runes, sep []rune, p int) bool {
	off := p - len(sep)
	for i, r := range sep {
		if runes[off+i] != r {
			return false
		}
	}
	return true
}
