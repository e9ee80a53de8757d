package retrieval

// NormalizeScores rescales a score list into [0,1] via min-max scaling.
// An empty list, or a list whose scores are all equal, yields all zeros so
// the caller never divides by zero and an all-tied source contributes no
// ranking signal of its own.
func NormalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	normalized := make([]float64, len(scores))
	scoreRange := maxScore - minScore
	if scoreRange == 0 {
		return normalized
	}
	for i, s := range scores {
		normalized[i] = (s - minScore) / scoreRange
	}
	return normalized
}

// normalizeChunks applies NormalizeScores to a result list, returning a new
// list in the same order.
func normalizeChunks(results []ScoredChunk) []ScoredChunk {
	if len(results) == 0 {
		return nil
	}
	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.Score
	}
	scores = NormalizeScores(scores)

	out := make([]ScoredChunk, len(results))
	for i, r := range results {
		out[i] = ScoredChunk{Chunk: r.Chunk, Score: scores[i]}
	}
	return out
}
