// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Relational store (PostgreSQL): users, api keys and the project documents
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL        string        `env:"REDIS_URL,required"`
	ProjectCacheTTL time.Duration `env:"PROJECT_CACHE_TTL" envDefault:"1h"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts. Provider calls can take a while, so the write
	// timeout is generous.
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"180s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// OCR provider (Mistral)
	OCRAPIKey  string        `env:"MISTRAL_API_KEY"`
	OCRBaseURL string        `env:"OCR_BASE_URL" envDefault:"https://api.mistral.ai/v1"`
	OCRModel   string        `env:"OCR_MODEL" envDefault:"mistral-ocr-latest"`
	OCRTimeout time.Duration `env:"OCR_TIMEOUT" envDefault:"120s"`

	// LLM provider (OpenAI-compatible chat completions, Groq by default)
	LLMAPIKey           string        `env:"GROQ_API_KEY"`
	LLMBaseURL          string        `env:"LLM_BASE_URL" envDefault:"https://api.groq.com/openai/v1"`
	LLMModel            string        `env:"LLM_MODEL" envDefault:"llama-3.3-70b-versatile"`
	LLMTimeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	LLMResponseFormat   string        `env:"LLM_RESPONSE_FORMAT" envDefault:"json_object"`
	LLMValidateResponse bool          `env:"LLM_VALIDATE_RESPONSE" envDefault:"false"`

	// API keys are stored as a BLAKE2b MAC keyed with this pepper
	APIKeyPepper string `env:"API_KEY_PEPPER" envDefault:""`

	// When set, /markdown and /extract require an API key and consume credits
	ExtractRequireAPIKey bool `env:"EXTRACT_REQUIRE_API_KEY" envDefault:"false"`

	// Rate limiting of the provider-backed endpoints (per client IP)
	RateLimitExtractEnabled bool `env:"RATE_LIMIT_EXTRACT_ENABLED" envDefault:"true"`
	RateLimitExtractRPS     int  `env:"RATE_LIMIT_EXTRACT_RPS" envDefault:"2"`
	RateLimitExtractBurst   int  `env:"RATE_LIMIT_EXTRACT_BURST" envDefault:"10"`

	// CORS configuration
	// Comma-separated list of allowed origins; "*" allows any origin.
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Body size limits in bytes: JSON bodies (default 1MB), uploads (default 20MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
	MaxUploadSize      int64 `env:"MAX_UPLOAD_SIZE" envDefault:"20971520"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch c.LLMResponseFormat {
	case "json_object", "json_schema":
	default:
		return fmt.Errorf("LLM_RESPONSE_FORMAT must be json_object or json_schema, got %q", c.LLMResponseFormat)
	}
	if c.IsProduction() && c.APIKeyPepper == "" {
		return fmt.Errorf("API_KEY_PEPPER is required in production")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
