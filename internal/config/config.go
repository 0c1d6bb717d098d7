package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for our application
type Config struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	AnthropicAPIKey string
	Model           string
	MaxTokens       int
	Temperature     float64
}

// LoadConfig loads configuration from environment variables.
// The Anthropic API key is the only hard requirement: without it the
// service cannot generate anything, so its absence is a startup failure
// rather than a per-request error.
func LoadConfig() (*Config, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable is not set")
	}

	maxTokens, err := strconv.Atoi(getEnv("ANTHROPIC_MAX_TOKENS", "4096"))
	if err != nil {
		return nil, errors.New("invalid ANTHROPIC_MAX_TOKENS: " + err.Error())
	}

	temperature, err := strconv.ParseFloat(getEnv("ANTHROPIC_TEMPERATURE", "0.7"), 64)
	if err != nil {
		return nil, errors.New("invalid ANTHROPIC_TEMPERATURE: " + err.Error())
	}

	return &Config{
		Port:            getEnv("PORT", "8000"),
		Host:            getEnv("HOST", "0.0.0.0"),
		Environment:     getEnv("APP_ENV", "development"),
		AllowedOrigins:  splitOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:3001,http://localhost:5173")),
		AnthropicAPIKey: apiKey,
		Model:           getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-20241022"),
		MaxTokens:       maxTokens,
		Temperature:     temperature,
	}, nil
}

// splitOrigins parses a comma-separated origin list, trimming whitespace
// and skipping empty entries.
func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
