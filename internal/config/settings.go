package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Settings struct {
	Port        string
	DatabaseDSN string
	LogLevel    string
	LogFormat   string
	CorsOrigins []string
	RedisAddr   string

	GenerationProvider  string
	GeminiAPIKey        string
	OpenAIAPIKey        string
	GenerationModel     string
	GenerationWorkers   int
	GenerationQueueSize int
	GenerationTimeout   time.Duration
	GenerationRetries   int
}

func Load() Settings {
	return Settings{
		Port:        envOr("PORT", "8080"),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		LogFormat:   envOr("LOG_FORMAT", "json"),
		CorsOrigins: csvOr("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		GenerationProvider:  strings.ToLower(envOr("GENERATION_PROVIDER", "gemini")),
		GeminiAPIKey:        envOr("GEMINI_API_KEY", os.Getenv("GOOGLE_GENERATIVE_AI_API_KEY")),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		GenerationModel:     os.Getenv("GENERATION_MODEL"),
		GenerationWorkers:   envInt("GENERATION_WORKERS", 2),
		GenerationQueueSize: envInt("GENERATION_QUEUE_SIZE", 32),
		GenerationTimeout:   envDuration("GENERATION_TIMEOUT", 2*time.Minute),
		GenerationRetries:   envInt("GENERATION_RETRIES", 2),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func csvOr(key, def string) []string {
	raw := envOr(key, def)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
