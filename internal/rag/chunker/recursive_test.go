package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reassemble stitches chunks back together, skipping each chunk's overlap with
// its predecessor.
func reassemble(chunks []Chunk) string {
	var b strings.Builder
	prevEnd := 0
	for _, c := range chunks {
		runes := []rune(c.Text)
		b.WriteString(string(runes[prevEnd-c.Offset:]))
		prevEnd = c.End()
	}
	return b.String()
}

const budgetDoc = `Budgeting basics

Track every expense for one month before setting limits. Most people underestimate small purchases.

Saving

Save at least 20% of your income. Automate the transfer on payday so the money never reaches your checking account.

Debt

Pay off high interest debt first. Credit cards often charge more than 20% a year! Is a balance transfer worth it? Sometimes.`

func TestSplit_EmptyDocument(t *testing.T) {
	chunks, err := Split("", 500, 50)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_InvalidConfig(t *testing.T) {
	cases := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 10, 25},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split("some text", tc.size, tc.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSplit_ShortDocumentIsSingleChunk(t *testing.T) {
	chunks, err := Split("Spend less than you earn.", 500, 50)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Spend less than you earn.", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Offset)
}

func TestSplit_RoundTrip(t *testing.T) {
	docs := []string{
		budgetDoc,
		strings.Repeat("abcdefghij", 37),
		strings.Repeat("word ", 120),
		"Ünïcödé sävings 💰 are still savings. " + strings.Repeat("€ ", 80),
	}
	configs := [][2]int{{40, 0}, {40, 10}, {64, 32}, {100, 99}, {7, 3}, {500, 50}}

	for _, doc := range docs {
		for _, cfg := range configs {
			chunks, err := Split(doc, cfg[0], cfg[1])
			require.NoError(t, err)
			assert.Equal(t, doc, reassemble(chunks), "size=%d overlap=%d", cfg[0], cfg[1])
		}
	}
}

func TestSplit_ChunkBoundsAndOverlap(t *testing.T) {
	size, overlap := 60, 15
	chunks, err := Split(budgetDoc, size, overlap)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for i, c := range chunks {
		assert.NotEmpty(t, c.Text)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), size)
		assert.Equal(t, i, c.Index)
		if i > 0 {
			prev := chunks[i-1]
			assert.Equal(t, prev.End()-overlap, c.Offset, "chunk %d should start %d runes before the previous end", i, overlap)
		}
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	doc := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30) + ". " + strings.Repeat("c", 30)
	chunks, err := Split(doc, 50, 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, strings.Repeat("a", 30)+"\n\n", chunks[0].Text)
}

func TestSplit_FallsBackToSentenceThenHardCut(t *testing.T) {
	doc := strings.Repeat("x", 30) + ". " + strings.Repeat("y", 40)
	chunks, err := Split(doc, 40, 0)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 30)+". ", chunks[0].Text)

	solid := strings.Repeat("z", 95)
	chunks, err = Split(solid, 40, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, 40, len(chunks[0].Text))
	assert.Equal(t, 15, len(chunks[2].Text))
}

func TestSplit_Deterministic(t *testing.T) {
	a, err := Split(budgetDoc, 80, 20)
	require.NoError(t, err)
	b, err := Split(budgetDoc, 80, 20)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSplit_NoTinyChunksOnEarlyBoundary(t *testing.T) {
	doc := "a\n\n" + strings.Repeat("long sentence without a break ", 10)
	chunks, err := Split(doc, 100, 10)
	require.NoError(t, err)
	for _, c := range chunks[:len(chunks)-1] {
		assert.GreaterOrEqual(t, utf8.RuneCountInString(c.Text), 50)
	}
}
