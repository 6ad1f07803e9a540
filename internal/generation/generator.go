package generation

import (
	"context"
	"errors"
	"time"

	"github.com/saulo-duarte/chronos-prep/internal/config"
)

// Generator produces topics for a spec. It is the black box the lifecycle
// manager runs; any error means the set finishes with no questions.
type Generator interface {
	Generate(ctx context.Context, spec Spec) ([]Topic, error)
}

type generator struct {
	provider Provider
}

func NewGenerator(provider Provider) Generator {
	return &generator{provider: provider}
}

func (g *generator) Generate(ctx context.Context, spec Spec) ([]Topic, error) {
	log := config.WithContext(ctx)

	raw, err := g.provider.SendPrompt(ctx, systemPrompt, BuildUserPrompt(spec))
	if err != nil {
		return nil, err
	}

	topics, err := ParseOutput(spec, raw)
	if err != nil {
		log.WithError(err).Error("[GENERATION] Failed to parse model output")
		return nil, err
	}

	total := 0
	for _, t := range topics {
		total += len(t.Questions)
	}
	log.Infof("[GENERATION] Generated %d topics with %d questions", len(topics), total)
	return topics, nil
}

type retryGenerator struct {
	inner    Generator
	attempts int
	delay    time.Duration
}

// WithRetry retries failed generations with linear backoff. Context errors are
// returned immediately.
func WithRetry(g Generator, attempts int, delay time.Duration) Generator {
	if attempts < 1 {
		attempts = 1
	}
	return &retryGenerator{inner: g, attempts: attempts, delay: delay}
}

func (r *retryGenerator) Generate(ctx context.Context, spec Spec) ([]Topic, error) {
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		topics, err := r.inner.Generate(ctx, spec)
		if err == nil {
			return topics, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if attempt == r.attempts-1 {
			break
		}

		config.WithContext(ctx).WithError(err).Warnf("[GENERATION] Attempt %d failed, retrying", attempt+1)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.delay * time.Duration(attempt+1)):
		}
	}
	return nil, lastErr
}
