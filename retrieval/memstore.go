package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// EmbeddingProvider produces vector representations for chunks and queries.
type EmbeddingProvider interface {
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
	EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error)
}

// MemoryVectorStore is an in-process vector index over the loaded corpus.
// It embeds on ingest, holds everything in memory, and scans linearly on
// search, which is fine for the corpus sizes a single process serves. It
// implements both VectorSearcher and ChunkLister.
type MemoryVectorStore struct {
	embedder EmbeddingProvider
	logger   *zap.Logger

	mu         sync.RWMutex
	chunks     []Chunk
	embeddings [][]float64
}

// NewMemoryVectorStore creates an empty store.
func NewMemoryVectorStore(embedder EmbeddingProvider, logger *zap.Logger) *MemoryVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryVectorStore{embedder: embedder, logger: logger}
}

// Add embeds and indexes chunks. Embedding happens in one batch call.
func (s *MemoryVectorStore) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	embeddings, err := s.embedder.EmbedDocuments(ctx, contents)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(embeddings), len(chunks))
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, chunks...)
	s.embeddings = append(s.embeddings, embeddings...)
	total := len(s.chunks)
	s.mu.Unlock()

	s.logger.Info("chunks indexed",
		zap.Int("added", len(chunks)),
		zap.Int("total", total))
	return nil
}

// SearchWithScore embeds the query and returns the k nearest chunks by
// cosine distance, ascending.
func (s *MemoryVectorStore) SearchWithScore(ctx context.Context, query string, k int) ([]DistancedChunk, error) {
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]DistancedChunk, 0, len(s.chunks))
	for i, c := range s.chunks {
		results = append(results, DistancedChunk{
			Chunk:    c,
			Distance: 1.0 - cosineSimilarity(embedding, s.embeddings[i]),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// ListAllChunks returns the indexed chunks in insertion order.
func (s *MemoryVectorStore) ListAllChunks(ctx context.Context) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out, nil
}

// Count returns the number of indexed chunks.
func (s *MemoryVectorStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
