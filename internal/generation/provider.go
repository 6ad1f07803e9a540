package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/saulo-duarte/chronos-prep/internal/config"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash-001"

var ErrEmptyResponse = errors.New("empty response from model")

type Provider interface {
	SendPrompt(ctx context.Context, system, user string) (string, error)
}

type geminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &geminiProvider{client: client, model: model}, nil
}

func (p *geminiProvider) SendPrompt(ctx context.Context, system, user string) (string, error) {
	log := config.WithContext(ctx)

	temperature := float32(0.4)
	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		},
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(user), cfg)
	if err != nil {
		log.WithError(err).Error("Gemini content generation failed")
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	raw := result.Text()
	log.Debugf("[GENERATION] Raw Gemini response:\n%s", raw)
	if raw == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}
