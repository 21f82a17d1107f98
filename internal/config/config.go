package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	LogLevel string

	// Auth
	APIKey string

	// Storage
	DBPath         string
	PersonaDir     string
	EmbeddingsPath string

	// Embeddings
	EmbedProvider string
	EmbedURL      string
	EmbedModel    string
	EmbedAPIKey   string

	// External retrieval service
	RetrievalURL    string
	RetrievalAPIKey string

	// Reply synthesis
	TopK            int
	EndingSelection string
	CasualThreshold float64
	GreetingSamples bool
	BotID           string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentEmbed int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port:     envOr("PORT", "8090"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		APIKey: os.Getenv("API_KEY"),

		DBPath:         envOr("DB_PATH", "data/personabot.db"),
		PersonaDir:     os.Getenv("PERSONA_DIR"),
		EmbeddingsPath: os.Getenv("EMBEDDINGS_PATH"),

		EmbedProvider: strings.ToLower(envOr("EMBED_PROVIDER", "none")),
		EmbedURL:      os.Getenv("EMBED_URL"),
		EmbedModel:    os.Getenv("EMBED_MODEL"),
		EmbedAPIKey:   os.Getenv("EMBED_API_KEY"),

		RetrievalURL:    os.Getenv("RETRIEVAL_URL"),
		RetrievalAPIKey: os.Getenv("RETRIEVAL_API_KEY"),

		TopK:            envInt("TOP_K", 3),
		EndingSelection: strings.ToLower(envOr("ENDING_SELECTION", "random")),
		CasualThreshold: envFloat("CASUAL_THRESHOLD", 40),
		GreetingSamples: envBool("GREETING_SAMPLES", true),
		BotID:           os.Getenv("BOT_ID"),

		WorkerCount:        envInt("WORKER_COUNT", 2),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 50),
		MaxConcurrentEmbed: envInt("MAX_CONCURRENT_EMBED", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.CasualThreshold <= 0 {
		cfg.CasualThreshold = 40
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxConcurrentEmbed <= 0 {
		cfg.MaxConcurrentEmbed = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	switch c.EmbedProvider {
	case "none", "ollama", "openai":
	default:
		return fmt.Errorf("EMBED_PROVIDER must be none, ollama or openai (got %q)", c.EmbedProvider)
	}
	if c.EmbedProvider == "openai" && c.EmbedAPIKey == "" && c.EmbedURL == "" {
		return fmt.Errorf("EMBED_API_KEY is required for the openai provider")
	}
	switch c.EndingSelection {
	case "random", "first":
	default:
		return fmt.Errorf("ENDING_SELECTION must be random or first (got %q)", c.EndingSelection)
	}
	return nil
}

// EmbeddingsEnabled reports whether an embedding endpoint is configured.
func (c Config) EmbeddingsEnabled() bool {
	return c.EmbedProvider != "" && c.EmbedProvider != "none"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
