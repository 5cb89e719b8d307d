// Package chat answers user messages: canned replies for greetings, and
// retrieval-grounded answers for everything else.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"fintrack/internal/ai"
	"fintrack/internal/chatlog"
	"fintrack/internal/config"
	"fintrack/internal/monitoring"
	"fintrack/internal/rag"
	"fintrack/internal/rag/embedder"
)

// ErrEmptyQuestion is returned for blank messages.
var ErrEmptyQuestion = errors.New("message is required")

var greetings = map[string]string{
	"hi":        "Hello! How can I assist you with your finances today?",
	"hello":     "Hi there! Need any financial advice?",
	"hey":       "Hey! What financial question do you have?",
	"thank you": "You're welcome! Let me know if you need more help.",
	"thanks":    "No problem! Happy to help.",
}

var (
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s%/]`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// Source identifies a chunk an answer was drawn from.
type Source struct {
	Offset int     `json:"offset"`
	Score  float64 `json:"score"`
	Text   string  `json:"text,omitempty"`
}

// Reply is the outcome of one question.
type Reply struct {
	Answer   string   `json:"answer"`
	Grounded bool     `json:"grounded"`
	Greeting bool     `json:"greeting,omitempty"`
	Sources  []Source `json:"sources"`
}

// Options configures a Service.
type Options struct {
	TopK     int
	MinScore float64
	Answerer rag.AnswererConfig
	Log      chatlog.Store       // nil disables logging
	Metrics  *monitoring.Metrics // nil creates a private instance
}

// Service ties the retrieval pipeline to a language model.
type Service struct {
	pipeline  *rag.Pipeline
	retriever *rag.Retriever
	answerer  *rag.Answerer
	chatLog   chatlog.Store
	metrics   *monitoring.Metrics
	topK      int
}

// NewService creates a service over p that generates with provider.
func NewService(p *rag.Pipeline, provider ai.Provider, opts Options) *Service {
	if opts.TopK <= 0 {
		opts.TopK = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	return &Service{
		pipeline:  p,
		retriever: rag.NewRetriever(p, opts.MinScore),
		answerer:  rag.NewAnswerer(provider, opts.Answerer),
		chatLog:   opts.Log,
		metrics:   opts.Metrics,
		topK:      opts.TopK,
	}
}

// Metrics returns the question counters.
func (s *Service) Metrics() *monitoring.Metrics { return s.metrics }

// Pipeline returns the underlying pipeline.
func (s *Service) Pipeline() *rag.Pipeline { return s.pipeline }

// Bootstrap builds the index from the configured document.
func (s *Service) Bootstrap(ctx context.Context, doc config.DocumentConfig) error {
	_, err := s.pipeline.Initialize(ctx, doc.Path, doc.ChunkSize, doc.Overlap)
	return err
}

// Ask answers question. Errors wrap ErrEmptyQuestion or one of the rag
// error kinds.
func (s *Service) Ask(ctx context.Context, question string) (*Reply, error) {
	start := time.Now()
	reply, err := s.ask(ctx, question)
	took := time.Since(start)

	switch {
	case err != nil:
		code, _ := ErrorCode(err)
		s.metrics.RecordFailure(code, took)
	case reply.Greeting:
		s.metrics.RecordAnswer(monitoring.OutcomeGreeting, took)
	case reply.Grounded:
		s.metrics.RecordAnswer(monitoring.OutcomeGrounded, took)
	default:
		s.metrics.RecordAnswer(monitoring.OutcomeRefused, took)
	}
	return reply, err
}

func (s *Service) ask(ctx context.Context, question string) (*Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	normalized := Preprocess(question)
	if canned, ok := greetings[normalized]; ok {
		reply := &Reply{Answer: canned, Greeting: true, Sources: []Source{}}
		s.record(question, reply)
		return reply, nil
	}

	query := normalized
	if query == "" {
		query = question
	}
	results, err := s.retriever.Retrieve(ctx, query, s.topK)
	if err != nil {
		return nil, err
	}

	answer, err := s.answerer.AnswerResults(ctx, question, results)
	if err != nil {
		return nil, err
	}

	reply := &Reply{Answer: answer.Text, Grounded: answer.Grounded, Sources: make([]Source, 0, len(results))}
	for _, r := range results {
		reply.Sources = append(reply.Sources, Source{Offset: r.Chunk.Offset, Score: r.Score, Text: r.Chunk.Text})
	}
	s.record(question, reply)
	return reply, nil
}

// record appends to the chat log. Failures are logged, never returned.
func (s *Service) record(question string, reply *Reply) {
	if s.chatLog == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.chatLog.Append(ctx, chatlog.ChatExchange{
		UserMessage: question,
		BotResponse: reply.Answer,
		Grounded:    reply.Grounded,
	})
	if err != nil {
		log.Printf("[Chat] Failed to record exchange: %v", err)
	}
}

// Preprocess normalizes a message for matching and retrieval: lower case,
// punctuation other than % and / removed, whitespace collapsed.
func Preprocess(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(text, " "))
}

// NewEmbedder builds the embedder named by cfg.
func NewEmbedder(cfg config.EmbedderConfig) (embedder.Embedder, error) {
	switch cfg.Provider {
	case "", "tfidf":
		return embedder.NewTFIDF(cfg.MaxFeatures), nil
	case "openai":
		return embedder.NewOpenAI(embedder.OpenAIConfig{
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout(),
		}), nil
	case "ollama":
		return embedder.NewOllama(embedder.OllamaConfig{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout(),
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder provider %q", rag.ErrConfiguration, cfg.Provider)
	}
}

// New assembles a service from configuration. The returned service is not
// bootstrapped; call Bootstrap.
func New(ctx context.Context, cfg *config.Config, store chatlog.Store) (*Service, error) {
	emb, err := NewEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	provider, err := ai.NewProvider(ctx, cfg.Generator)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	return NewService(rag.NewPipeline(emb), provider, Options{
		TopK:     cfg.Retrieval.TopK,
		MinScore: cfg.Retrieval.MinScore,
		Answerer: rag.AnswererConfig{
			Model:       cfg.Generator.Model,
			MaxTokens:   cfg.Generator.MaxTokens,
			Temperature: cfg.Generator.Temperature,
			Timeout:     cfg.Generator.Timeout(),
		},
		Log: store,
	}), nil
}
