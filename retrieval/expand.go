package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Generator is the minimal generation contract the expander needs. The llm
// package's Provider satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)
}

// maxVariants caps the expansion at the original query plus two paraphrases.
const maxVariants = 3

// minVariantLen discards generation lines too short to be real paraphrases.
const minVariantLen = 10

// Expander widens retrieval recall by asking the generation backend for
// paraphrases of the query. Expansion is always optional: any generation
// failure returns just the original query and never blocks the pipeline.
type Expander struct {
	backend Generator
	logger  *zap.Logger
}

// NewExpander creates a query expander.
func NewExpander(backend Generator, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{backend: backend, logger: logger}
}

// Expand returns the original query plus up to two generated paraphrases.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	variants := []string{query}
	if e.backend == nil {
		return variants
	}

	prompt := fmt.Sprintf(`Generate 2 different variations of the following question:

Question: %s

Variation 1:`, query)

	response, err := e.backend.Generate(ctx, prompt, "")
	if err != nil {
		e.logger.Warn("query expansion failed, using original query", zap.Error(err))
		return variants
	}

	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		clean := stripEnumPrefix(strings.TrimSpace(line))
		if len(clean) < minVariantLen || containsVariant(variants, clean) {
			continue
		}
		variants = append(variants, clean)
		if len(variants) == maxVariants {
			break
		}
	}

	e.logger.Debug("query expanded", zap.Int("variants", len(variants)))
	return variants
}

// enumPrefixes are the enumeration markers models tend to prepend to
// generated paraphrases.
var enumPrefixes = []string{"Variation 1:", "Variation 2:", "1.", "2.", "-"}

func stripEnumPrefix(line string) string {
	for _, prefix := range enumPrefixes {
		if strings.HasPrefix(line, prefix) {
			line = strings.TrimSpace(strings.TrimPrefix(line, prefix))
		}
	}
	return line
}

func containsVariant(variants []string, candidate string) bool {
	for _, v := range variants {
		if v == candidate {
			return true
		}
	}
	return false
}
