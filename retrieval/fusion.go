package retrieval

import "sort"

// Fuse merges independently-scored vector and keyword result lists into one
// ranked list. Each side is min-max normalized on its own, then entries are
// merged by content fingerprint: a chunk present in both lists receives
// score_vector*vectorWeight + score_keyword*(1-vectorWeight); a chunk present
// in one list keeps its single weighted score.
//
// filter, when non-nil, drops any chunk whose metadata does not match every
// key/value pair.
//
// The result is sorted descending by fused score; ties keep first-seen order
// with vector hits ahead of keyword hits, so identical inputs always produce
// identical output. Either input may be empty; fusion never fails.
func Fuse(vector, keyword []ScoredChunk, vectorWeight float64, filter map[string]any) []ScoredChunk {
	if vectorWeight < 0 {
		vectorWeight = 0
	}
	if vectorWeight > 1 {
		vectorWeight = 1
	}
	keywordWeight := 1.0 - vectorWeight

	type fusedEntry struct {
		chunk Chunk
		score float64
		order int // first-seen position, vector side first
	}

	merged := make(map[string]*fusedEntry)
	order := 0

	for _, r := range normalizeChunks(vector) {
		fp := Fingerprint(r.Chunk.Content)
		if e, ok := merged[fp]; ok {
			e.score += r.Score * vectorWeight
			continue
		}
		merged[fp] = &fusedEntry{chunk: r.Chunk, score: r.Score * vectorWeight, order: order}
		order++
	}

	for _, r := range normalizeChunks(keyword) {
		fp := Fingerprint(r.Chunk.Content)
		if e, ok := merged[fp]; ok {
			e.score += r.Score * keywordWeight
			continue
		}
		merged[fp] = &fusedEntry{chunk: r.Chunk, score: r.Score * keywordWeight, order: order}
		order++
	}

	entries := make([]*fusedEntry, 0, len(merged))
	for _, e := range merged {
		if filter != nil && !MatchesFilter(e.chunk.Metadata, filter) {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	out := make([]ScoredChunk, 0, len(entries))
	for _, e := range entries {
		out = append(out, ScoredChunk{Chunk: e.chunk, Score: e.score})
	}
	return out
}

// MatchesFilter reports whether metadata contains every key/value pair of
// the filter.
func MatchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}
