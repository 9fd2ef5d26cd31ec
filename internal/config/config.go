package config

import (
	"os"
	"strconv"
	"time"

	"spcflow/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	AI       AIConfig
	Server   ServerConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// AIConfig holds LLM interpretation settings. Enabled is derived: an empty
// key means the heuristic interpreter is used and no network calls happen.
type AIConfig struct {
	OpenAIKey   string
	OpenAIModel string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	Enabled     bool
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// AnalysisConfig holds pipeline tuning settings
type AnalysisConfig struct {
	ChunkSize     int
	ChunkDelay    time.Duration
	Workers       int
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	ai := loadAIConfig()
	config := &Config{
		Database: loadDatabaseConfig(),
		AI:       ai,
		Server: ServerConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Analysis: loadAnalysisConfig(ai.Enabled),
	}

	if err := validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     os.Getenv("DATABASE_URL"),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadAIConfig() AIConfig {
	key := os.Getenv("OPENAI_API_KEY")
	return AIConfig{
		OpenAIKey:   key,
		OpenAIModel: getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", ""),
		MaxTokens:   getEnvIntOrDefault("MAX_TOKENS", 512),
		Temperature: getEnvFloatOrDefault("TEMPERATURE", 0.2),
		Timeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
		Enabled:     key != "",
	}
}

func loadAnalysisConfig(aiEnabled bool) AnalysisConfig {
	// Chunk calls against a chat backend pace themselves by default; local
	// interpretation needs no pause.
	delayDefault := time.Duration(0)
	if aiEnabled {
		delayDefault = time.Second
	}
	return AnalysisConfig{
		ChunkSize:     getEnvIntOrDefault("CHUNK_SIZE", 500),
		ChunkDelay:    getEnvDurationOrDefault("CHUNK_DELAY", delayDefault),
		Workers:       getEnvIntOrDefault("ANALYSIS_WORKERS", 4),
		RetryAttempts: getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryBackoff:  getEnvDurationOrDefault("RETRY_BACKOFF", 61*time.Second),
	}
}

func validate(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if config.Analysis.ChunkSize <= 0 {
		return errors.ConfigInvalid("CHUNK_SIZE must be positive")
	}
	if config.Analysis.RetryAttempts <= 0 {
		return errors.ConfigInvalid("RETRY_ATTEMPTS must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
