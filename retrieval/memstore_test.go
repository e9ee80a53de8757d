package retrieval

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
)

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[query], nil
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(documents))
	for i, d := range documents {
		out[i] = f.vectors[d]
	}
	return out, nil
}

func TestMemoryVectorStore_SearchOrdersByDistance(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"close":    {1, 0},
		"middling": {0.7, 0.7},
		"far":      {0, 1},
		"query":    {1, 0},
	}}
	store := NewMemoryVectorStore(embedder, zap.NewNop())

	err := store.Add(context.Background(), []Chunk{
		{Content: "far"}, {Content: "close"}, {Content: "middling"},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := store.SearchWithScore(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("SearchWithScore: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.Content != "close" || hits[1].Chunk.Content != "middling" {
		t.Fatalf("unexpected order: %q, %q", hits[0].Chunk.Content, hits[1].Chunk.Content)
	}
	if math.Abs(hits[0].Distance) > 1e-12 {
		t.Fatalf("identical vectors must have distance 0, got %v", hits[0].Distance)
	}
}

func TestMemoryVectorStore_ListPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	embedder := &fakeEmbedder{vectors: map[string][]float64{
		"a": {1}, "b": {2}, "c": {3},
	}}
	store := NewMemoryVectorStore(embedder, zap.NewNop())

	if err := store.Add(context.Background(), []Chunk{{Content: "a"}, {Content: "b"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(context.Background(), []Chunk{{Content: "c"}}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	chunks, err := store.ListAllChunks(context.Background())
	if err != nil {
		t.Fatalf("ListAllChunks: %v", err)
	}
	if len(chunks) != 3 || chunks[0].Content != "a" || chunks[2].Content != "c" {
		t.Fatalf("insertion order lost: %v", chunks)
	}
	if store.Count() != 3 {
		t.Fatalf("expected 3 chunks, got %d", store.Count())
	}
}

func TestMemoryVectorStore_EmbedFailure(t *testing.T) {
	t.Parallel()

	store := NewMemoryVectorStore(&fakeEmbedder{err: errors.New("quota exceeded")}, zap.NewNop())

	if err := store.Add(context.Background(), []Chunk{{Content: "x"}}); err == nil {
		t.Fatal("expected error from failing embedder on Add")
	}
	if _, err := store.SearchWithScore(context.Background(), "q", 1); err == nil {
		t.Fatal("expected error from failing embedder on search")
	}
}
