// Package config loads the application configuration. Precedence is
// defaults, then the YAML file, then DOCQA_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the full application configuration.
type Config struct {
	// Provider selects and configures the generation backend.
	Provider ProviderConfig `yaml:"provider" env:"PROVIDER"`

	// Embedding configures the embeddings backend for vector indexing.
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// Redis configures the response cache backend.
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Pipeline configures retrieval and synthesis behavior.
	Pipeline PipelineConfig `yaml:"pipeline" env:"PIPELINE"`

	// Agent configures the planning loop.
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// Log configures logging output.
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ProviderConfig names the generation backend and its credentials.
type ProviderConfig struct {
	// Name: claude, openai, groq, deepseek
	Name string `yaml:"name" env:"NAME"`
	// API key for the chosen backend
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// Base URL override (optional)
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// Model override (optional)
	Model string `yaml:"model" env:"MODEL"`
	// Completion cap
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// EmbeddingConfig configures the embeddings backend. The API key falls
// back to the provider key when empty and the provider is compatible.
type EmbeddingConfig struct {
	APIKey  string `yaml:"api_key" env:"API_KEY"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	Model   string `yaml:"model" env:"MODEL"`
}

// RedisConfig configures the cache connection.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	// Cache is skipped entirely when disabled.
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// PipelineConfig configures retrieval and synthesis defaults.
type PipelineConfig struct {
	// Results returned to the caller
	RequestK int `yaml:"request_k" env:"REQUEST_K"`
	// Vector share of the fused score, in [0,1]
	VectorWeight float64 `yaml:"vector_weight" env:"VECTOR_WEIGHT"`
	// Combine vector and keyword retrieval
	UseHybrid bool `yaml:"use_hybrid" env:"USE_HYBRID"`
	// Rerank oversampled candidates
	UseRerank bool `yaml:"use_rerank" env:"USE_RERANK"`
	// Generate query variations before searching
	UseExpansion bool `yaml:"use_expansion" env:"USE_EXPANSION"`
}

// AgentConfig configures the planning loop.
type AgentConfig struct {
	// Upper bound on tool invocations per question
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	// Brave Search key; empty disables web search
	BraveAPIKey string `yaml:"brave_api_key" env:"BRAVE_API_KEY"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig returns the configuration used when neither the YAML file
// nor the environment overrides a value.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:        "claude",
			MaxTokens:   2000,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Enabled: true,
		},
		Pipeline: PipelineConfig{
			RequestK:     5,
			VectorWeight: 0.7,
			UseHybrid:    true,
			UseRerank:    true,
		},
		Agent: AgentConfig{
			MaxIterations: 3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Provider.Name == "" {
		errs = append(errs, "provider name is required")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		errs = append(errs, "provider temperature must be between 0 and 2")
	}
	if c.Pipeline.RequestK <= 0 {
		errs = append(errs, "pipeline request_k must be positive")
	}
	if c.Pipeline.VectorWeight < 0 || c.Pipeline.VectorWeight > 1 {
		errs = append(errs, "pipeline vector_weight must be between 0 and 1")
	}
	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, "agent max_iterations must be positive")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
