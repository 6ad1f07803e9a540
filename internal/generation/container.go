package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/saulo-duarte/chronos-prep/internal/config"
)

type GenerationContainer struct {
	Generator Generator
	Manager   *Manager
}

func NewProvider(ctx context.Context, s config.Settings) (Provider, error) {
	switch s.GenerationProvider {
	case "", "gemini":
		return NewGeminiProvider(ctx, s.GeminiAPIKey, s.GenerationModel)
	case "openai":
		return NewOpenAIProvider(s.OpenAIAPIKey, s.GenerationModel)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", s.GenerationProvider)
	}
}

func NewGenerationContainer(ctx context.Context, s config.Settings, finalizer Finalizer) (*GenerationContainer, error) {
	provider, err := NewProvider(ctx, s)
	if err != nil {
		return nil, err
	}

	gen := WithRetry(NewGenerator(provider), s.GenerationRetries, 2*time.Second)
	manager := NewManager(gen, finalizer, ManagerOptions{
		Workers:   s.GenerationWorkers,
		QueueSize: s.GenerationQueueSize,
		Timeout:   s.GenerationTimeout,
	})

	return &GenerationContainer{
		Generator: gen,
		Manager:   manager,
	}, nil
}
