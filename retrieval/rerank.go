package retrieval

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// QueryDocPair is one query-document pair submitted to a cross-encoder.
type QueryDocPair struct {
	Query    string
	Document string
}

// CrossEncoderProvider scores query-document pairs with a pairwise relevance
// model. Implementations wrap external rerank services or local models.
type CrossEncoderProvider interface {
	// Score returns one relevance score per input pair, in input order.
	Score(ctx context.Context, pairs []QueryDocPair) ([]float64, error)
}

// Reranker re-scores a fused shortlist. When no cross-encoder is configured,
// or the cross-encoder fails, it falls back to a deterministic decaying-order
// approximation that preserves the caller-supplied order, so Rerank never
// fails and always returns at most topK entries.
type Reranker struct {
	provider CrossEncoderProvider
	logger   *zap.Logger
}

// NewReranker creates a reranker. provider may be nil; the fallback is then
// always used.
func NewReranker(provider CrossEncoderProvider, logger *zap.Logger) *Reranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{provider: provider, logger: logger}
}

// Rerank returns up to topK chunks re-scored against the query, descending.
func (r *Reranker) Rerank(ctx context.Context, query string, chunks []Chunk, topK int) []ScoredChunk {
	if topK <= 0 || len(chunks) == 0 {
		return nil
	}

	if r.provider == nil {
		return decayingFallback(chunks, topK)
	}

	pairs := make([]QueryDocPair, len(chunks))
	for i, c := range chunks {
		pairs[i] = QueryDocPair{Query: query, Document: c.Content}
	}

	scores, err := r.provider.Score(ctx, pairs)
	if err != nil || len(scores) != len(chunks) {
		r.logger.Warn("cross-encoder scoring failed, using fallback order",
			zap.Int("chunks", len(chunks)),
			zap.Error(err))
		return decayingFallback(chunks, topK)
	}

	results := make([]ScoredChunk, len(chunks))
	for i, c := range chunks {
		results[i] = ScoredChunk{Chunk: c, Score: scores[i]}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// decayingFallback keeps the input order and assigns 1.0 - 0.1*position.
func decayingFallback(chunks []Chunk, topK int) []ScoredChunk {
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	results := make([]ScoredChunk, len(chunks))
	for i, c := range chunks {
		results[i] = ScoredChunk{Chunk: c, Score: 1.0 - float64(i)*0.1}
	}
	return results
}
