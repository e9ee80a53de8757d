package llm

import "context"

// StreamChunk is one increment of a streamed generation. A chunk with a
// non-nil Err terminates the stream; the channel is closed afterwards.
type StreamChunk struct {
	Text string
	Err  error
}

// Provider is the strategy interface over a generation backend. The stream
// returned by GenerateStream is finite and non-restartable; producers stop
// as soon as practical when ctx is cancelled.
type Provider interface {
	// Generate produces a complete response for the prompt.
	Generate(ctx context.Context, prompt, systemPrompt string) (string, error)

	// GenerateStream produces text fragments as they become available.
	// The channel is closed when the stream ends.
	GenerateStream(ctx context.Context, prompt, systemPrompt string) (<-chan StreamChunk, error)

	// Name returns the provider's unique identifier.
	Name() string
}

// DefaultSystemPrompt is used when a call supplies no system prompt.
const DefaultSystemPrompt = "You are a helpful assistant."
