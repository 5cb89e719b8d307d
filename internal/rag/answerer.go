package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/ai"
	"fintrack/internal/rag/index"
)

// AnswerResult is the reply to a question.
type AnswerResult struct {
	Text     string
	Grounded bool // false when the reply is the refusal phrase
	Usage    ai.Usage
}

// AnswererConfig tunes the model call.
type AnswererConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration // per call; 0 relies on the caller's context
}

// Answerer asks a language model to answer strictly from supplied context.
type Answerer struct {
	provider ai.Provider
	cfg      AnswererConfig
}

// NewAnswerer creates an answerer backed by provider.
func NewAnswerer(provider ai.Provider, cfg AnswererConfig) *Answerer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 150
	}
	return &Answerer{provider: provider, cfg: cfg}
}

// Answer returns the model's answer to question using only passage. An empty
// passage yields the refusal phrase without contacting the model.
func (a *Answerer) Answer(ctx context.Context, question, passage string) (*AnswerResult, error) {
	if strings.TrimSpace(passage) == "" {
		return &AnswerResult{Text: RefusalPhrase, Grounded: false}, nil
	}

	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	resp, err := a.provider.GenerateResponse(ctx, &ai.GenerateRequest{
		Messages: []ai.ChatMessage{
			{Role: ai.RoleSystem, Content: SystemPrompt},
			{Role: ai.RoleUser, Content: UserPrompt(question, passage)},
		},
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return nil, WrapError("answer", fmt.Errorf("%w: %s: %w", ErrGenerationUnavailable, a.provider.Name(), err))
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return nil, WrapError("answer", fmt.Errorf("%w: %s returned an empty reply", ErrGenerationUnavailable, a.provider.Name()))
	}
	if IsRefusal(text) {
		return &AnswerResult{Text: RefusalPhrase, Grounded: false, Usage: resp.Usage}, nil
	}

	return &AnswerResult{Text: text, Grounded: true, Usage: resp.Usage}, nil
}

// AnswerResults answers from retrieved chunks. No results means no context,
// so the refusal path is taken.
func (a *Answerer) AnswerResults(ctx context.Context, question string, results []index.Result) (*AnswerResult, error) {
	return a.Answer(ctx, question, JoinContext(results))
}
