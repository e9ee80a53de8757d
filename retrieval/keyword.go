package retrieval

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// KeywordIndexConfig holds the BM25 parameters.
type KeywordIndexConfig struct {
	K1 float64 `yaml:"k1" json:"k1"` // term-frequency saturation (1.2-2.0)
	B  float64 `yaml:"b" json:"b"`   // length normalization (0.75)
}

// DefaultKeywordIndexConfig returns the standard BM25 parameters.
func DefaultKeywordIndexConfig() KeywordIndexConfig {
	return KeywordIndexConfig{K1: 1.5, B: 0.75}
}

type posting struct {
	doc int
	tf  int
}

// KeywordIndex is an in-memory inverted index with BM25 scoring over
// lowercased whitespace tokens. It is built once from a snapshot of the full
// chunk collection and is read-only afterward, so concurrent searches need
// no synchronization. Rebuilding after corpus changes is the owner's job.
type KeywordIndex struct {
	config    KeywordIndexConfig
	chunks    []Chunk
	postings  map[string][]posting
	idf       map[string]float64
	docLens   []int
	avgDocLen float64
	logger    *zap.Logger
}

// NewKeywordIndex builds the index from a corpus snapshot.
func NewKeywordIndex(config KeywordIndexConfig, chunks []Chunk, logger *zap.Logger) *KeywordIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	idx := &KeywordIndex{
		config:   config,
		chunks:   chunks,
		postings: make(map[string][]posting),
		idf:      make(map[string]float64),
		docLens:  make([]int, len(chunks)),
		logger:   logger,
	}
	idx.build()
	return idx
}

// BuildKeywordIndex pulls the one-time corpus snapshot from the lister and
// builds the index from it.
func BuildKeywordIndex(ctx context.Context, config KeywordIndexConfig, lister ChunkLister, logger *zap.Logger) (*KeywordIndex, error) {
	chunks, err := lister.ListAllChunks(ctx)
	if err != nil {
		return nil, err
	}
	return NewKeywordIndex(config, chunks, logger), nil
}

func (idx *KeywordIndex) build() {
	totalLen := 0
	for i, chunk := range idx.chunks {
		terms := tokenize(chunk.Content)
		idx.docLens[i] = len(terms)
		totalLen += len(terms)

		termFreq := make(map[string]int, len(terms))
		for _, term := range terms {
			termFreq[term]++
		}
		for term, tf := range termFreq {
			idx.postings[term] = append(idx.postings[term], posting{doc: i, tf: tf})
		}
	}

	if len(idx.chunks) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(idx.chunks))
	}

	n := float64(len(idx.chunks))
	for term, plist := range idx.postings {
		df := float64(len(plist))
		idx.idf[term] = math.Log((n-df+0.5)/(df+0.5) + 1.0)
	}

	idx.logger.Info("keyword index built",
		zap.Int("chunks", len(idx.chunks)),
		zap.Int("terms", len(idx.postings)))
}

// Len returns the number of indexed chunks.
func (idx *KeywordIndex) Len() int { return len(idx.chunks) }

// Search scores the query against the corpus and returns up to k chunks with
// strictly positive BM25 scores, descending.
func (idx *KeywordIndex) Search(query string, k int) []ScoredChunk {
	if len(idx.chunks) == 0 || k <= 0 {
		return nil
	}

	queryTerms := tokenize(query)
	scores := make(map[int]float64)

	for _, qTerm := range queryTerms {
		plist, ok := idx.postings[qTerm]
		if !ok {
			continue
		}
		termIDF := idx.idf[qTerm]
		for _, p := range plist {
			docLen := float64(idx.docLens[p.doc])
			tf := float64(p.tf)
			numerator := tf * (idx.config.K1 + 1.0)
			denominator := tf + idx.config.K1*(1.0-idx.config.B+idx.config.B*(docLen/idx.avgDocLen))
			scores[p.doc] += termIDF * (numerator / denominator)
		}
	}

	type hit struct {
		doc   int
		score float64
	}
	hits := make([]hit, 0, len(scores))
	for doc, score := range scores {
		if score > 0 {
			hits = append(hits, hit{doc: doc, score: score})
		}
	}

	// Ties keep corpus order so repeated searches are deterministic.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc < hits[j].doc
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	results := make([]ScoredChunk, 0, len(hits))
	for _, h := range hits {
		results = append(results, ScoredChunk{Chunk: idx.chunks[h.doc], Score: h.score})
	}
	return results
}

// tokenize lowercases and splits on whitespace. Matches the tokenization
// used at index build time, so query and document terms compare equal.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}
