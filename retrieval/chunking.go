package retrieval

import (
	"strings"

	"go.uber.org/zap"
)

// TokenCounter measures text in tokens for chunk sizing.
type TokenCounter interface {
	Count(text string) int
}

// SplitterConfig sizes corpus chunks in tokens.
type SplitterConfig struct {
	// ChunkSize is the target upper bound per chunk.
	ChunkSize int
	// MinChunkSize drops trailing fragments below this size.
	MinChunkSize int
}

// DefaultSplitterConfig returns chunk sizing that works well for retrieval:
// chunks large enough to carry context, small enough to stay on topic.
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{ChunkSize: 512, MinChunkSize: 20}
}

// Splitter breaks raw documents into retrieval chunks at paragraph and
// sentence boundaries, never mid-sentence where avoidable.
type Splitter struct {
	config SplitterConfig
	tokens TokenCounter
	logger *zap.Logger
}

// NewSplitter creates a splitter.
func NewSplitter(config SplitterConfig, tokens TokenCounter, logger *zap.Logger) *Splitter {
	if config.ChunkSize <= 0 {
		config = DefaultSplitterConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Splitter{config: config, tokens: tokens, logger: logger}
}

// separators in descending preference: paragraphs, lines, sentences, words.
var separators = []string{"\n\n", "\n", ". ", "。", "! ", "? ", " "}

// Split chunks one document. Every chunk carries the given metadata plus
// its position under the "chunk" key.
func (s *Splitter) Split(content string, metadata map[string]any) []Chunk {
	parts := s.split(strings.TrimSpace(content), separators)

	chunks := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || s.tokens.Count(part) < s.config.MinChunkSize {
			continue
		}
		md := map[string]any{"chunk": len(chunks)}
		for k, v := range metadata {
			md[k] = v
		}
		chunks = append(chunks, Chunk{Content: part, Metadata: md})
	}

	s.logger.Debug("document split",
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", s.config.ChunkSize))
	return chunks
}

// split greedily packs separator-delimited pieces up to ChunkSize tokens,
// recursing to the next finer separator for any piece that alone exceeds
// the bound.
func (s *Splitter) split(text string, seps []string) []string {
	if s.tokens.Count(text) <= s.config.ChunkSize || len(seps) == 0 {
		return []string{text}
	}

	sep := seps[0]
	pieces := strings.Split(text, sep)
	for i := 0; i < len(pieces)-1; i++ {
		pieces[i] += sep
	}

	var out []string
	current := ""
	for _, piece := range pieces {
		if s.tokens.Count(piece) > s.config.ChunkSize {
			if current != "" {
				out = append(out, current)
				current = ""
			}
			out = append(out, s.split(piece, seps[1:])...)
			continue
		}
		if current != "" && s.tokens.Count(current+piece) > s.config.ChunkSize {
			out = append(out, current)
			current = ""
		}
		current += piece
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}
