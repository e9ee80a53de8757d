package retrieval

import (
	"context"
	"math"
)

// Chunk is one immutable unit of retrievable text. Chunks are produced by the
// external ingestion pipeline and owned by the indices; the engine never
// mutates them.
type Chunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScoredChunk pairs a chunk with a stage-local relevance score in [0,1].
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// DistancedChunk is a raw vector-search hit. Lower distance means closer.
type DistancedChunk struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
}

// fingerprintLen is the number of leading characters used as the
// deduplication key. Two distinct chunks sharing a 100-character prefix
// collapse into one fused entry.
const fingerprintLen = 100

// Fingerprint derives the deduplication key for a chunk's content.
func Fingerprint(content string) string {
	runes := []rune(content)
	if len(runes) > fingerprintLen {
		runes = runes[:fingerprintLen]
	}
	return string(runes)
}

// VectorSearcher is the narrow contract over the external embedding-backed
// nearest-neighbor index.
type VectorSearcher interface {
	// SearchWithScore returns up to k chunks with raw distances.
	SearchWithScore(ctx context.Context, query string, k int) ([]DistancedChunk, error)
}

// ChunkLister provides the one-time corpus snapshot used to build the
// keyword index.
type ChunkLister interface {
	ListAllChunks(ctx context.Context) ([]Chunk, error)
}

// DistanceToSimilarity converts a raw vector distance into a [0,1]
// similarity via 1 / (1 + |distance|).
func DistanceToSimilarity(distance float64) float64 {
	return 1.0 / (1.0 + math.Abs(distance))
}

// SimilaritiesFromDistances converts raw vector hits into scored chunks,
// preserving order.
func SimilaritiesFromDistances(hits []DistancedChunk) []ScoredChunk {
	out := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, ScoredChunk{Chunk: h.Chunk, Score: DistanceToSimilarity(h.Distance)})
	}
	return out
}
