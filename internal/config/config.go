package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime settings for the service, loaded from the
// environment. main loads .env first via godotenv.
type Config struct {
	Port             int    `envconfig:"PORT" default:"8080"`
	DBPath           string `envconfig:"DB_PATH" default:"transcripts.db"`
	UploadDir        string `envconfig:"UPLOAD_DIR" default:"uploads"`
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL    string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiModel      string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	BatchConcurrency int    `envconfig:"BATCH_CONCURRENCY" default:"3"`
	UseMockLLM       bool   `envconfig:"USE_MOCK_LLM" default:"false"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.BatchConcurrency < 1 {
		return Config{}, fmt.Errorf("BATCH_CONCURRENCY must be at least 1, got %d", cfg.BatchConcurrency)
	}
	if !cfg.UseMockLLM && cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY not set (set USE_MOCK_LLM=true for offline runs)")
	}
	return cfg, nil
}
