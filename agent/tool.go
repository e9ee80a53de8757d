// Package agent implements the multi-step autonomous path: a bounded
// planning loop that decides, per step, whether to invoke a tool or
// finalize, a fixed registry of tool capabilities, and a final synthesis
// pass over the accumulated tool results.
package agent

import "context"

// ToolKind enumerates the fixed set of tool capabilities. The registry is
// indexed by kind, not by arbitrary strings: a planning decision naming
// anything outside this set is an unknown tool.
type ToolKind string

const (
	ToolDocumentSearch   ToolKind = "document_search"
	ToolCalculator       ToolKind = "calculator"
	ToolDateTime         ToolKind = "datetime"
	ToolGeneralKnowledge ToolKind = "general_knowledge"
	ToolWebSearch        ToolKind = "web_search"
)

// ParseToolKind maps a planner-supplied name onto a known kind.
func ParseToolKind(name string) (ToolKind, bool) {
	switch ToolKind(name) {
	case ToolDocumentSearch, ToolCalculator, ToolDateTime, ToolGeneralKnowledge, ToolWebSearch:
		return ToolKind(name), true
	}
	return "", false
}

// Result is the immutable outcome of exactly one tool invocation. Tools
// never panic or return errors past their boundary; all failure is
// represented here.
type Result struct {
	Success bool           `json:"success"`
	Tool    ToolKind       `json:"tool"`
	Fields  map[string]any `json:"fields,omitempty"`
	Err     string         `json:"error,omitempty"`
}

// failure builds a failed result for a tool.
func failure(tool ToolKind, err error) Result {
	return Result{Success: false, Tool: tool, Err: err.Error()}
}

// Tool is one independently invocable capability. Descriptions are used
// verbatim in planning prompts and are part of the functional contract:
// they must be unambiguous and mutually exclusive in purpose, because the
// planning model selects tools by them.
type Tool interface {
	Kind() ToolKind
	Description() string
	Execute(ctx context.Context, input string) Result
}
