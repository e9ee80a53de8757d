package retrieval

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func testCorpus() []Chunk {
	return []Chunk{
		{Content: "Go concurrency with goroutines and channels"},
		{Content: "Python uses dynamic typing and indentation"},
		{Content: "Go has static typing and fast compilation"},
		{Content: "Rust guarantees memory safety without garbage collection"},
	}
}

func TestKeywordIndex_RanksMatchingDocs(t *testing.T) {
	t.Parallel()

	idx := NewKeywordIndex(DefaultKeywordIndexConfig(), testCorpus(), zap.NewNop())

	results := idx.Search("go typing", 4)
	if len(results) == 0 {
		t.Fatal("expected results for matching query")
	}
	// "Go has static typing..." matches both terms and must rank first.
	if results[0].Chunk.Content != "Go has static typing and fast compilation" {
		t.Fatalf("expected the two-term match first, got %q", results[0].Chunk.Content)
	}
	for _, r := range results {
		if r.Score <= 0 {
			t.Fatalf("keyword scores must be strictly positive, got %v", r.Score)
		}
	}
}

func TestKeywordIndex_NoMatches(t *testing.T) {
	t.Parallel()

	idx := NewKeywordIndex(DefaultKeywordIndexConfig(), testCorpus(), zap.NewNop())
	if results := idx.Search("quantum chromodynamics", 4); len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
}

func TestKeywordIndex_CaseInsensitive(t *testing.T) {
	t.Parallel()

	idx := NewKeywordIndex(DefaultKeywordIndexConfig(), testCorpus(), zap.NewNop())

	lower := idx.Search("goroutines", 4)
	upper := idx.Search("GOROUTINES", 4)
	if len(lower) != 1 || len(upper) != 1 {
		t.Fatalf("expected one match each, got %d and %d", len(lower), len(upper))
	}
	if lower[0].Score != upper[0].Score {
		t.Fatalf("case must not affect scoring: %v vs %v", lower[0].Score, upper[0].Score)
	}
}

func TestKeywordIndex_TruncatesToK(t *testing.T) {
	t.Parallel()

	idx := NewKeywordIndex(DefaultKeywordIndexConfig(), testCorpus(), zap.NewNop())

	results := idx.Search("go typing", 1)
	if len(results) != 1 {
		t.Fatalf("expected 1 result with k=1, got %d", len(results))
	}
	if results := idx.Search("go", 0); results != nil {
		t.Fatalf("k=0 must return nothing, got %v", results)
	}
}

func TestKeywordIndex_EmptyCorpus(t *testing.T) {
	t.Parallel()

	idx := NewKeywordIndex(DefaultKeywordIndexConfig(), nil, zap.NewNop())
	if idx.Len() != 0 {
		t.Fatalf("expected empty index, got %d chunks", idx.Len())
	}
	if results := idx.Search("anything", 5); len(results) != 0 {
		t.Fatalf("empty index must return nothing, got %v", results)
	}
}

type staticLister struct {
	chunks []Chunk
	err    error
}

func (l *staticLister) ListAllChunks(ctx context.Context) ([]Chunk, error) {
	return l.chunks, l.err
}

func TestBuildKeywordIndex(t *testing.T) {
	t.Parallel()

	idx, err := BuildKeywordIndex(context.Background(), DefaultKeywordIndexConfig(),
		&staticLister{chunks: testCorpus()}, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildKeywordIndex: %v", err)
	}
	if idx.Len() != 4 {
		t.Fatalf("expected 4 indexed chunks, got %d", idx.Len())
	}

	_, err = BuildKeywordIndex(context.Background(), DefaultKeywordIndexConfig(),
		&staticLister{err: errors.New("listing failed")}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error from failing lister")
	}
}
