package tokenizer

import "testing"

func TestCounter_EmptyText(t *testing.T) {
	t.Parallel()

	if got := NewCounter("gpt-4").Count(""); got != 0 {
		t.Fatalf("empty text must count 0, got %d", got)
	}
}

func TestCounter_KnownModel(t *testing.T) {
	t.Parallel()

	c := NewCounter("gpt-4")
	got := c.Count("Hello, how are you doing today?")
	if got <= 0 || got > 15 {
		t.Fatalf("implausible token count %d", got)
	}
}

func TestCounter_UnknownModelFallsBack(t *testing.T) {
	t.Parallel()

	c := NewCounter("some-future-model")
	if got := c.Count("four word test sentence"); got <= 0 {
		t.Fatalf("fallback estimator must count something, got %d", got)
	}
	// Even a single rune counts as at least one token.
	if got := c.Count("a"); got != 1 {
		t.Fatalf("single char must estimate 1 token, got %d", got)
	}
}

func TestCounter_CJKEstimate(t *testing.T) {
	t.Parallel()

	c := NewCounter("some-future-model")
	ascii := c.Count("abcdefgh")
	cjk := c.Count("你好世界测试中文")
	if cjk <= ascii {
		t.Fatalf("CJK text must estimate more tokens per char: ascii=%d cjk=%d", ascii, cjk)
	}
}
