package config_test

import (
	"testing"
	"time"

	"github.com/saulo-duarte/chronos-prep/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("GENERATION_WORKERS", "")
		t.Setenv("GENERATION_TIMEOUT", "")
		t.Setenv("CORS_ORIGINS", "")

		s := config.Load()

		assert.Equal(t, "8080", s.Port)
		assert.Equal(t, 2, s.GenerationWorkers)
		assert.Equal(t, 2*time.Minute, s.GenerationTimeout)
		assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, s.CorsOrigins)
	})

	t.Run("Overrides", func(t *testing.T) {
		t.Setenv("PORT", "9000")
		t.Setenv("GENERATION_PROVIDER", "OpenAI")
		t.Setenv("GENERATION_WORKERS", "5")
		t.Setenv("GENERATION_TIMEOUT", "30s")
		t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

		s := config.Load()

		assert.Equal(t, "9000", s.Port)
		assert.Equal(t, "openai", s.GenerationProvider)
		assert.Equal(t, 5, s.GenerationWorkers)
		assert.Equal(t, 30*time.Second, s.GenerationTimeout)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CorsOrigins)
	})

	t.Run("InvalidNumbersFallBack", func(t *testing.T) {
		t.Setenv("GENERATION_WORKERS", "many")
		t.Setenv("GENERATION_TIMEOUT", "soon")

		s := config.Load()

		assert.Equal(t, 2, s.GenerationWorkers)
		assert.Equal(t, 2*time.Minute, s.GenerationTimeout)
	})

	t.Run("GeminiKeyFallback", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("GOOGLE_GENERATIVE_AI_API_KEY", "google-key")

		s := config.Load()

		assert.Equal(t, "google-key", s.GeminiAPIKey)
	})
}
