// Package providers holds the configuration shared by the concrete
// generation-backend implementations.
package providers

import "time"

// BaseConfig is the flat configuration every provider accepts.
type BaseConfig struct {
	APIKey      string        `yaml:"api_key" json:"api_key"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Model       string        `yaml:"model" json:"model"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float32       `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// WithDefaults fills zero fields with sensible defaults.
func (c BaseConfig) WithDefaults(baseURL, model string) BaseConfig {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2000
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	return c
}
