package retrieval

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func TestExpander_ParsesVariations(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: "How do goroutines work internally?\nVariation 2: What is the goroutine scheduling model?"}
	e := NewExpander(gen, zap.NewNop())

	variants := e.Expand(context.Background(), "How do goroutines work?")
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants, got %d: %v", len(variants), variants)
	}
	if variants[0] != "How do goroutines work?" {
		t.Fatalf("original query must come first, got %q", variants[0])
	}
	if variants[2] != "What is the goroutine scheduling model?" {
		t.Fatalf("enumeration prefix not stripped: %q", variants[2])
	}
}

func TestExpander_GenerationFailure(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{err: errors.New("backend down")}
	e := NewExpander(gen, zap.NewNop())

	variants := e.Expand(context.Background(), "original question")
	if len(variants) != 1 || variants[0] != "original question" {
		t.Fatalf("failed expansion must return only the original, got %v", variants)
	}
}

func TestExpander_NilBackend(t *testing.T) {
	t.Parallel()

	e := NewExpander(nil, zap.NewNop())
	variants := e.Expand(context.Background(), "q")
	if len(variants) != 1 {
		t.Fatalf("nil backend must return only the original, got %v", variants)
	}
}

func TestExpander_SkipsShortAndDuplicateLines(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: "ok\nWhat does the engine cache per question?\nWhat does the engine cache per question?\n- tiny"}
	e := NewExpander(gen, zap.NewNop())

	variants := e.Expand(context.Background(), "What is cached?")
	if len(variants) != 2 {
		t.Fatalf("short and duplicate lines must be skipped, got %v", variants)
	}
}

func TestExpander_CapsAtThreeVariants(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{response: "first long enough variation\nsecond long enough variation\nthird long enough variation\nfourth long enough variation"}
	e := NewExpander(gen, zap.NewNop())

	variants := e.Expand(context.Background(), "base query text")
	if len(variants) != 3 {
		t.Fatalf("expansion must cap at 3 variants, got %d", len(variants))
	}
}
