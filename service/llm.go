package service

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/clearledger/finsight/config"
)

// Generator is the language-model collaborator. Everything that depends on
// model output depends only on this interface, so deterministic fallback
// logic can be tested with a scripted stub.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// VertexGenerator implements Generator on Vertex AI Gemini models.
type VertexGenerator struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewVertexGenerator(ctx context.Context, cfg *config.LLMConfig) (*VertexGenerator, error) {
	if cfg.Project == "" || cfg.Region == "" {
		return nil, fmt.Errorf("llm project and region must be configured")
	}

	client, err := genai.NewClient(ctx, cfg.Project, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	return &VertexGenerator{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate runs one blocking completion with a per-call output cap.
func (g *VertexGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	m := g.client.GenerativeModel(g.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: genai.Ptr(int32(maxTokens)),
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

func (g *VertexGenerator) Close() error {
	return g.client.Close()
}
