package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
)

type fakeCrossEncoder struct {
	scores []float64
	err    error
	calls  int
}

func (f *fakeCrossEncoder) Score(ctx context.Context, pairs []QueryDocPair) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.scores, nil
}

func rerankChunks(n int) []Chunk {
	chunks := make([]Chunk, n)
	for i := range chunks {
		chunks[i] = Chunk{Content: string(rune('a' + i))}
	}
	return chunks
}

func TestReranker_FallbackDecayingScores(t *testing.T) {
	t.Parallel()

	r := NewReranker(nil, zap.NewNop())
	results := r.Rerank(context.Background(), "q", rerankChunks(3), 5)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []float64{1.0, 0.9, 0.8}
	for i, w := range want {
		if math.Abs(results[i].Score-w) > 1e-12 {
			t.Fatalf("fallback score %d = %v, want %v", i, results[i].Score, w)
		}
	}
	// Input order is preserved.
	for i, r := range results {
		if r.Chunk.Content != string(rune('a'+i)) {
			t.Fatalf("fallback must preserve input order, got %q at %d", r.Chunk.Content, i)
		}
	}
}

func TestReranker_FallbackOnProviderError(t *testing.T) {
	t.Parallel()

	enc := &fakeCrossEncoder{err: errors.New("model unavailable")}
	r := NewReranker(enc, zap.NewNop())

	results := r.Rerank(context.Background(), "q", rerankChunks(2), 2)
	if len(results) != 2 {
		t.Fatalf("rerank must never fail, got %d results", len(results))
	}
	if results[0].Score != 1.0 || results[1].Score != 0.9 {
		t.Fatalf("expected fallback scores, got %v %v", results[0].Score, results[1].Score)
	}
}

func TestReranker_FallbackOnScoreCountMismatch(t *testing.T) {
	t.Parallel()

	enc := &fakeCrossEncoder{scores: []float64{0.5}}
	r := NewReranker(enc, zap.NewNop())

	results := r.Rerank(context.Background(), "q", rerankChunks(3), 3)
	if len(results) != 3 || results[0].Score != 1.0 {
		t.Fatalf("mismatched score count must fall back, got %v", results)
	}
}

func TestReranker_ProviderScoresReorder(t *testing.T) {
	t.Parallel()

	enc := &fakeCrossEncoder{scores: []float64{0.1, 0.9, 0.5}}
	r := NewReranker(enc, zap.NewNop())

	results := r.Rerank(context.Background(), "q", rerankChunks(3), 2)
	if len(results) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(results))
	}
	if results[0].Chunk.Content != "b" || results[1].Chunk.Content != "c" {
		t.Fatalf("expected reordering by score, got %q %q",
			results[0].Chunk.Content, results[1].Chunk.Content)
	}
	if enc.calls != 1 {
		t.Fatalf("expected one provider call, got %d", enc.calls)
	}
}

func TestReranker_TruncatesToTopK(t *testing.T) {
	t.Parallel()

	r := NewReranker(nil, zap.NewNop())
	results := r.Rerank(context.Background(), "q", rerankChunks(10), 3)
	if len(results) != 3 {
		t.Fatalf("expected at most topK results, got %d", len(results))
	}
}

func TestReranker_EmptyInputs(t *testing.T) {
	t.Parallel()

	r := NewReranker(nil, zap.NewNop())
	if got := r.Rerank(context.Background(), "q", nil, 5); got != nil {
		t.Fatalf("empty chunks must return nil, got %v", got)
	}
	if got := r.Rerank(context.Background(), "q", rerankChunks(2), 0); got != nil {
		t.Fatalf("topK=0 must return nil, got %v", got)
	}
}
