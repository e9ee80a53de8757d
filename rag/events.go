package rag

import "github.com/BaSui01/docqa/cache"

// EventType tags the variants of the request event stream.
type EventType string

const (
	// EventStatus carries human-readable progress updates.
	EventStatus EventType = "status"
	// EventChunk carries one ordered, concatenable answer fragment.
	// Consumers must not assume any particular fragment size.
	EventChunk EventType = "chunk"
	// EventMetadata carries the final Metadata payload.
	EventMetadata EventType = "metadata"
	// EventSources carries the grounding sources of the answer.
	EventSources EventType = "sources"
	// EventReasoning carries the agent's first planning rationale.
	EventReasoning EventType = "reasoning"
	// EventToolResult reports the outcome of one agent tool execution.
	EventToolResult EventType = "tool_result"
	// EventError is the single terminal event of an unrecovered failure.
	EventError EventType = "error"
)

// Event is the wire contract for all streaming consumers. Ordering within
// one request is significant and preserved: a single producer goroutine
// writes each request's channel.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Metadata is the payload of an EventMetadata event.
type Metadata struct {
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// AgentMetadata is the metadata payload of an agent-path request.
type AgentMetadata struct {
	AgentMode  bool     `json:"agent_mode"`
	ToolsUsed  []string `json:"tools_used"`
	Iterations int      `json:"iterations"`
}

// Sources is the payload of an EventSources event.
type Sources []cache.Source
