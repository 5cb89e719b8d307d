package embedder

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"fintrack/internal/rag/mathutil"
)

// Compile-time interface checks.
var (
	_ Embedder = (*TFIDF)(nil)
	_ Preparer = (*TFIDF)(nil)
)

var errNotPrepared = errors.New("vocabulary not prepared")

// stopWords carry no retrieval signal for short financial questions.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true, "be": true,
	"by": true, "can": true, "do": true, "does": true, "for": true, "from": true, "how": true,
	"i": true, "in": true, "is": true, "it": true, "me": true, "much": true, "my": true,
	"of": true, "on": true, "or": true, "should": true, "so": true, "that": true, "the": true,
	"this": true, "to": true, "was": true, "what": true, "when": true, "where": true,
	"which": true, "who": true, "why": true, "will": true, "with": true, "you": true, "your": true,
}

// TFIDF is an offline embedder. Its vocabulary, and therefore its dimension,
// is fixed by Prepare; terms outside the vocabulary contribute nothing.
type TFIDF struct {
	vocabulary  map[string]int
	idf         []float32
	maxFeatures int
	mu          sync.RWMutex
}

// NewTFIDF creates a TF-IDF embedder keeping at most maxFeatures terms.
func NewTFIDF(maxFeatures int) *TFIDF {
	if maxFeatures <= 0 {
		maxFeatures = 4096
	}
	return &TFIDF{maxFeatures: maxFeatures}
}

// Prepare builds the vocabulary and IDF weights from the corpus.
func (t *TFIDF) Prepare(corpus []string) error {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, term := range tokenize(doc) {
			if !seen[term] {
				df[term]++
				seen[term] = true
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > t.maxFeatures {
		terms = terms[:t.maxFeatures]
	}

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float32, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocabulary[term] = i
		// Smoothed so terms present in every chunk still carry weight.
		idf[i] = float32(math.Log((1+n)/(1+float64(df[term]))) + 1)
	}

	t.mu.Lock()
	t.vocabulary = vocabulary
	t.idf = idf
	t.mu.Unlock()
	return nil
}

// Embed returns the L2-normalized TF-IDF vector for text.
func (t *TFIDF) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := t.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds each text against the prepared vocabulary.
func (t *TFIDF) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(t.Name(), err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.vocabulary == nil {
		return nil, unavailable(t.Name(), errNotPrepared)
	}

	dims := len(t.vocabulary)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dims)
		words := tokenize(text)

		tf := make(map[string]int)
		for _, w := range words {
			tf[w]++
		}
		for word, count := range tf {
			if idx, ok := t.vocabulary[word]; ok {
				vec[idx] = float32(count) / float32(len(words)) * t.idf[idx]
			}
		}

		mathutil.Normalize(vec)
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the vocabulary size, 0 before Prepare.
func (t *TFIDF) Dimensions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vocabulary)
}

// Name returns the embedder name.
func (t *TFIDF) Name() string {
	return "tfidf"
}

// tokenize splits text into lowercase words, dropping stop words.
func tokenize(text string) []string {
	var words []string
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			if w := word.String(); !stopWords[w] {
				words = append(words, w)
			}
			word.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return words
}
