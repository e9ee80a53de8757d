// Package factory maps provider names to constructors. It imports the
// provider sub-packages so the llm package itself stays dependency-free,
// and it is called exactly once at startup: an unknown provider name is a
// fatal configuration error, not something to retry.
package factory

import (
	"fmt"

	"github.com/BaSui01/docqa/llm"
	"github.com/BaSui01/docqa/llm/providers"
	"github.com/BaSui01/docqa/llm/providers/claude"
	"github.com/BaSui01/docqa/llm/providers/openai"
	"go.uber.org/zap"
)

// New creates the configured generation backend.
//
// Supported names: claude, openai, groq, deepseek.
func New(name string, cfg providers.BaseConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch name {
	case "claude", "anthropic":
		return claude.New(cfg, logger), nil
	case "openai":
		return openai.New(cfg, logger), nil
	case "groq":
		return openai.NewGroq(cfg, logger), nil
	case "deepseek":
		return openai.NewDeepSeek(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported generation provider: %q", name)
	}
}
