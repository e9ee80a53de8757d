package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/docqa/llm"
	"github.com/BaSui01/docqa/rag"
	"go.uber.org/zap"
)

// ===== document_search =====

// DocumentSearchTool answers from the private corpus by running the full
// retrieval pipeline for the planner-supplied query.
type DocumentSearchTool struct {
	engine *rag.Engine
	opts   rag.AskOptions
	logger *zap.Logger
}

// NewDocumentSearchTool wraps the engine as a tool.
func NewDocumentSearchTool(engine *rag.Engine, opts rag.AskOptions, logger *zap.Logger) *DocumentSearchTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentSearchTool{engine: engine, opts: opts, logger: logger}
}

func (t *DocumentSearchTool) Kind() ToolKind { return ToolDocumentSearch }

func (t *DocumentSearchTool) Description() string {
	return "Searches the loaded documents/knowledge base. Use for questions about the content of the loaded documents."
}

func (t *DocumentSearchTool) Execute(ctx context.Context, input string) Result {
	t.logger.Debug("document search", zap.String("query", input))

	answer, sources, err := t.engine.AskBlocking(ctx, input, t.opts)
	if err != nil {
		return failure(ToolDocumentSearch, err)
	}
	return Result{
		Success: true,
		Tool:    ToolDocumentSearch,
		Fields: map[string]any{
			"answer":  answer,
			"sources": sources,
			"query":   input,
		},
	}
}

// ===== calculator =====

// CalculatorTool evaluates arithmetic expressions through the constrained
// parser in calc.go.
type CalculatorTool struct {
	logger *zap.Logger
}

// NewCalculatorTool creates the calculator tool.
func NewCalculatorTool(logger *zap.Logger) *CalculatorTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalculatorTool{logger: logger}
}

func (t *CalculatorTool) Kind() ToolKind { return ToolCalculator }

func (t *CalculatorTool) Description() string {
	return "Performs mathematical calculations: addition, subtraction, multiplication, division, percentages. Example: '30 * 1500 / 100' for 30% of 1500."
}

// allowedCalcChars is a fast pre-check; the parser grammar is the real
// safety boundary.
const allowedCalcChars = "0123456789+-*/()., "

func (t *CalculatorTool) Execute(ctx context.Context, input string) Result {
	t.logger.Debug("calculating", zap.String("expression", input))

	for _, c := range input {
		if !strings.ContainsRune(allowedCalcChars, c) {
			return failure(ToolCalculator, fmt.Errorf("expression contains invalid character %q", c))
		}
	}

	result, err := evalExpression(input)
	if err != nil {
		return failure(ToolCalculator, err)
	}
	return Result{
		Success: true,
		Tool:    ToolCalculator,
		Fields: map[string]any{
			"expression": input,
			"result":     result,
		},
	}
}

// ===== datetime =====

// DateTimeTool reports the current date and time. The clock is injectable
// for tests.
type DateTimeTool struct {
	now func() time.Time
}

// NewDateTimeTool creates the datetime tool using the wall clock.
func NewDateTimeTool() *DateTimeTool {
	return &DateTimeTool{now: time.Now}
}

func (t *DateTimeTool) Kind() ToolKind { return ToolDateTime }

func (t *DateTimeTool) Description() string {
	return "Returns the current date and time. Use when you need to know today's date or the current time."
}

func (t *DateTimeTool) Execute(ctx context.Context, _ string) Result {
	now := t.now()
	return Result{
		Success: true,
		Tool:    ToolDateTime,
		Fields: map[string]any{
			"datetime":  now.Format(time.RFC3339),
			"formatted": now.Format("02/01/2006 15:04:05"),
			"date":      now.Format("02/01/2006"),
			"time":      now.Format("15:04:05"),
			"weekday":   now.Weekday().String(),
		},
	}
}

// ===== general_knowledge =====

// KnowledgeTool answers from the model's general knowledge, for questions
// neither in the corpus nor time-sensitive.
type KnowledgeTool struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewKnowledgeTool creates the general-knowledge tool.
func NewKnowledgeTool(provider llm.Provider, logger *zap.Logger) *KnowledgeTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeTool{provider: provider, logger: logger}
}

func (t *KnowledgeTool) Kind() ToolKind { return ToolGeneralKnowledge }

func (t *KnowledgeTool) Description() string {
	return "Uses the model's general knowledge. Use for general questions that are NOT in the documents and NOT current events (use web_search for current information)."
}

func (t *KnowledgeTool) Execute(ctx context.Context, input string) Result {
	prompt := fmt.Sprintf("Answer directly and concisely:\n\n%s", input)
	answer, err := t.provider.Generate(ctx, prompt, "")
	if err != nil {
		return failure(ToolGeneralKnowledge, err)
	}
	return Result{
		Success: true,
		Tool:    ToolGeneralKnowledge,
		Fields: map[string]any{
			"answer":   answer,
			"question": input,
		},
	}
}
