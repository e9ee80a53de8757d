package rag

import (
	"fmt"
	"strings"

	"github.com/BaSui01/docqa/retrieval"
)

// groundingSystemPrompt restricts the model to the supplied documents.
const groundingSystemPrompt = "You are a helpful assistant that answers questions using only the provided documents. If the documents do not contain the answer, say so."

// buildGroundingPrompt enumerates the selected chunks as "[Document N]"
// context followed by the question.
func buildGroundingPrompt(question string, chunks []retrieval.ScoredChunk) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using the documents below.\n\n")
	for i, sc := range chunks {
		fmt.Fprintf(&sb, "[Document %d]\n%s\n\n", i+1, sc.Chunk.Content)
	}
	fmt.Fprintf(&sb, "Question: %s\n\nAnswer:", question)
	return sb.String()
}

// sourceExcerptLen bounds the excerpt persisted with each source.
const sourceExcerptLen = 200

// excerpt truncates content for the sources payload.
func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= sourceExcerptLen {
		return content
	}
	return string(runes[:sourceExcerptLen]) + "..."
}
