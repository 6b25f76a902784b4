// Package advisor wraps the external Gemini capabilities behind narrow
// interfaces. Advisories are best-effort: every failure degrades to "no
// advice" and never blocks an application transition.
package advisor

import (
	"context"
	"errors"
	"fmt"

	"drivecash_backend/platform/config"

	"google.golang.org/genai"
)

// Model is the narrow generation surface the advisors depend on. The real
// implementation calls Gemini; tests substitute a fake.
type Model interface {
	// GenerateText sends a text-only prompt and returns the raw JSON reply.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateWithImage sends a prompt plus one inline image.
	GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// GeminiModel calls the Gemini API with JSON-constrained responses.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a Gemini-backed model client.
func NewGeminiModel(ctx context.Context, cfg config.AIConfig) (*GeminiModel, error) {
	if !cfg.IsAIEnabled() {
		return nil, errors.New("gemini API key not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiModel{client: client, model: cfg.GetGeminiModel()}, nil
}

func (m *GeminiModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}
	return m.generate(ctx, contents)
}

func (m *GeminiModel) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return m.generate(ctx, contents)
}

func (m *GeminiModel) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty model response")
	}
	return text, nil
}
