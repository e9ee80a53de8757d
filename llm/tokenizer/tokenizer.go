// Package tokenizer estimates token counts for cache accounting. It uses
// tiktoken when an encoding exists for the configured model and falls back
// to a character-ratio estimate otherwise, so counting never fails.
package tokenizer

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for one model.
type Counter struct {
	encoding *tiktoken.Tiktoken
}

// NewCounter creates a counter for the given model. Models without a known
// tiktoken encoding get the estimator fallback.
func NewCounter(model string) *Counter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return &Counter{}
	}
	return &Counter{encoding: enc}
}

// Count returns the estimated token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	return estimate(text)
}

// estimate distinguishes CJK (~1.5 chars/token) from the rest (~4
// chars/token), which tracks real tokenizers closer than a flat len/4.
func estimate(text string) int {
	totalChars := utf8.RuneCountInString(text)
	cjkCount := 0
	for _, r := range text {
		if isCJK(r) {
			cjkCount++
		}
	}
	estimated := int(float64(cjkCount)/1.5 + float64(totalChars-cjkCount)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x3040 && r <= 0x30FF) ||
		(r >= 0xAC00 && r <= 0xD7AF)
}
