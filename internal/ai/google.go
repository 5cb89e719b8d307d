package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"fintrack/internal/config"
)

const defaultGoogleModel = "gemini-1.5-flash"

// GoogleProvider implements Provider with the Gemini API
type GoogleProvider struct {
	model  string
	client *genai.Client
}

// NewGoogleProvider creates a new Gemini provider
func NewGoogleProvider(ctx context.Context, cfg config.GeneratorConfig) (*GoogleProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Google provider")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("google: create client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGoogleModel
	}

	return &GoogleProvider{model: model, client: client}, nil
}

func (g *GoogleProvider) Name() string {
	return "google"
}

// Close releases the underlying client connection.
func (g *GoogleProvider) Close() error {
	return g.client.Close()
}

func (g *GoogleProvider) GenerateResponse(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	name := req.Model
	if name == "" {
		name = g.model
	}

	system, conversation := splitSystem(req.Messages)

	model := g.client.GenerativeModel(name)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.SetTemperature(float32(req.Temperature))

	parts := make([]genai.Part, 0, len(conversation))
	for _, m := range conversation {
		parts = append(parts, genai.Text(m.Content))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("google: generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("google: empty response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return nil, errors.New("google: empty response")
	}

	out := &GenerateResponse{Content: b.String(), Model: name}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}
