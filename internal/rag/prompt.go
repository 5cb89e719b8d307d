package rag

import (
	"fmt"
	"strings"

	"fintrack/internal/rag/index"
)

// RefusalPhrase is returned whenever the document cannot support an answer.
const RefusalPhrase = "I can only provide financial advice based on the given document."

// SystemPrompt constrains the model to the retrieved context.
const SystemPrompt = "Answer the question strictly based on the given financial document. " +
	"If the document does not contain the answer, say '" + RefusalPhrase + "'"

// UserPrompt formats the question together with its supporting context.
func UserPrompt(question, passage string) string {
	return fmt.Sprintf("Based on this document, answer: %s\n\nContext: %s", question, passage)
}

// JoinContext concatenates retrieved chunk texts, best match first.
func JoinContext(results []index.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if text := strings.TrimSpace(r.Chunk.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// IsRefusal reports whether a model reply is the refusal phrase, ignoring
// surrounding whitespace and quotes.
func IsRefusal(text string) bool {
	return strings.Trim(strings.TrimSpace(text), `"'`) == RefusalPhrase
}
