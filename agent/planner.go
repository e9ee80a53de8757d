package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/docqa/internal/metrics"
	"github.com/BaSui01/docqa/llm"
	"github.com/BaSui01/docqa/rag"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// defaultMaxIterations bounds the planning loop. Three steps cover every
// multi-hop pattern the tool set supports; anything longer is the model
// going in circles.
const defaultMaxIterations = 3

// resultSummaryLen truncates prior tool results inside planning prompts so
// prompt growth stays bounded across iterations.
const resultSummaryLen = 200

// PlannerConfig configures the planning loop.
type PlannerConfig struct {
	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
}

// Planner runs the iterative plan-act loop: each step asks the generation
// backend for a structured decision, executes at most one tool, and feeds
// the result back. The loop terminates when the plan reports completion,
// requests no tool, a tool fails, an unknown tool is named, or the
// iteration bound is reached, whichever comes first. It then synthesizes a
// final answer from the successful tool results.
type Planner struct {
	registry *Registry
	provider llm.Provider
	config   PlannerConfig
	metrics  *metrics.Collector
	tracer   trace.Tracer
	logger   *zap.Logger
}

// NewPlanner creates a planner.
func NewPlanner(registry *Registry, provider llm.Provider, config PlannerConfig, collector *metrics.Collector, logger *zap.Logger) *Planner {
	if config.MaxIterations <= 0 {
		config.MaxIterations = defaultMaxIterations
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		registry: registry,
		provider: provider,
		config:   config,
		metrics:  collector,
		tracer:   otel.Tracer("docqa/agent"),
		logger:   logger,
	}
}

// planDecision is one structured planning step. It is transient: it exists
// only within one loop iteration.
type planDecision struct {
	Reasoning  string `json:"reasoning"`
	Tool       string `json:"tool"`
	ToolInput  string `json:"tool_input"`
	NeedsTool  bool   `json:"needs_tool"`
	IsComplete bool   `json:"is_complete"`
}

// Process runs the agent loop for one question and returns its event
// stream. The channel is closed when the request finishes or ctx is
// cancelled.
func (p *Planner) Process(ctx context.Context, question string) <-chan rag.Event {
	events := make(chan rag.Event, 16)
	go func() {
		defer close(events)
		p.process(ctx, question, events)
	}()
	return events
}

func (p *Planner) process(ctx context.Context, question string, events chan<- rag.Event) {
	ctx, span := p.tracer.Start(ctx, "agent.process")
	defer span.End()

	if !p.emit(ctx, events, rag.Event{Type: rag.EventStatus, Data: "Agent analyzing the question..."}) {
		return
	}

	var results []Result
	catalog := p.registry.Catalog()

	for iteration := 0; iteration < p.config.MaxIterations; iteration++ {
		p.metrics.AgentIteration()

		response, err := p.provider.Generate(ctx, p.planningPrompt(question, catalog, results), "")
		if err != nil {
			p.logger.Warn("planning step failed, synthesizing with accumulated results",
				zap.Int("iteration", iteration+1), zap.Error(err))
			break
		}

		plan := parsePlanDecision(response)

		if iteration == 0 && plan.Reasoning != "" {
			if !p.emit(ctx, events, rag.Event{Type: rag.EventReasoning, Data: plan.Reasoning}) {
				return
			}
		}

		// The safe default for garbage output is "done": a malformed plan
		// must never keep the loop running.
		if plan.IsComplete || !plan.NeedsTool || plan.Tool == "" {
			break
		}

		kind, known := ParseToolKind(plan.Tool)
		if !known {
			p.logger.Warn("planner named unknown tool", zap.String("tool", plan.Tool))
			results = append(results, Result{
				Success: false,
				Tool:    ToolKind(plan.Tool),
				Err:     fmt.Sprintf("unknown tool %q", plan.Tool),
			})
			break
		}

		// A kind that parses but is not registered is handled like an unknown
		// tool name: the loop aborts rather than executing a nil tool.
		tool, ok := p.registry.Lookup(kind)
		if !ok {
			p.logger.Warn("planner named tool absent from registry", zap.String("tool", string(kind)))
			results = append(results, Result{
				Success: false,
				Tool:    kind,
				Err:     fmt.Sprintf("tool %q not registered", kind),
			})
			break
		}

		if !p.emit(ctx, events, rag.Event{Type: rag.EventStatus, Data: fmt.Sprintf("Step %d: %s", iteration+1, kind)}) {
			return
		}

		input := plan.ToolInput
		if input == "" {
			input = question
		}

		result := tool.Execute(ctx, input)
		results = append(results, result)
		p.metrics.ToolExecution(string(kind), result.Success)

		if result.Success {
			if !p.emit(ctx, events, rag.Event{Type: rag.EventToolResult, Data: fmt.Sprintf("%s: ok", kind)}) {
				return
			}
			continue
		}

		// Failures are not retried and not hidden: the loop aborts and the
		// final answer reflects only successful tool outputs.
		p.logger.Warn("tool failed, aborting loop",
			zap.String("tool", string(kind)), zap.String("error", result.Err))
		p.emit(ctx, events, rag.Event{Type: rag.EventToolResult, Data: fmt.Sprintf("%s: failed", kind)})
		break
	}

	p.synthesize(ctx, question, results, events)
}

// synthesize composes the final prompt from the successful tool results and
// streams the answer.
func (p *Planner) synthesize(ctx context.Context, question string, results []Result, events chan<- rag.Event) {
	if !p.emit(ctx, events, rag.Event{Type: rag.EventStatus, Data: "Synthesizing answer..."}) {
		return
	}

	prompt := fmt.Sprintf("Answer:\n\n%s", question)
	if len(results) > 0 {
		prompt = p.finalAnswerPrompt(question, results)
	}

	stream, err := p.provider.GenerateStream(ctx, prompt, "")
	if err != nil {
		p.emit(ctx, events, rag.Event{Type: rag.EventError, Data: err.Error()})
		return
	}
	for chunk := range stream {
		if chunk.Err != nil {
			p.emit(ctx, events, rag.Event{Type: rag.EventError, Data: chunk.Err.Error()})
			return
		}
		if !p.emit(ctx, events, rag.Event{Type: rag.EventChunk, Data: chunk.Text}) {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	toolsUsed := make([]string, 0, len(results))
	for _, r := range results {
		toolsUsed = append(toolsUsed, string(r.Tool))
	}
	if !p.emit(ctx, events, rag.Event{Type: rag.EventMetadata, Data: rag.AgentMetadata{
		AgentMode:  true,
		ToolsUsed:  toolsUsed,
		Iterations: len(results),
	}}) {
		return
	}

	// Sources surfaced to the caller are the union of document-search
	// sources across all successful executions.
	var sources rag.Sources
	for _, r := range results {
		if r.Tool != ToolDocumentSearch || !r.Success {
			continue
		}
		if s, ok := r.Fields["sources"].(rag.Sources); ok {
			sources = append(sources, s...)
		}
	}
	if len(sources) > 0 {
		p.emit(ctx, events, rag.Event{Type: rag.EventSources, Data: sources})
	}
}

// planningPrompt lists the tool catalog and a bounded summary of prior
// results, and requests a structured JSON decision.
func (p *Planner) planningPrompt(question string, catalog []ToolInfo, results []Result) string {
	var sb strings.Builder
	sb.WriteString("You are an AI assistant that uses tools across multiple steps.\n\nTools:\n")
	for _, info := range catalog {
		fmt.Fprintf(&sb, "- %s: %s\n", info.Name, info.Description)
	}

	sb.WriteString(`
IMPORTANT:
- For percentages with the calculator use "X * Y / 100"
- Use web_search for current information, news, and recent events
- Consider whether more steps are needed
`)

	fmt.Fprintf(&sb, "\nOriginal question: %s\n", question)

	if len(results) > 0 {
		sb.WriteString("\nPrevious results:\n")
		for _, r := range results {
			fmt.Fprintf(&sb, "- %s: %s\n", r.Tool, summarizeResult(r))
		}
	}

	sb.WriteString(`
Decide the next action. Respond in JSON:
{
    "reasoning": "analysis of what to do now",
    "tool": "tool_name (or null if finished)",
    "tool_input": "specific input",
    "needs_tool": true/false,
    "is_complete": true/false
}

If you already have enough information to answer, use is_complete: true.

JSON:`)
	return sb.String()
}

// finalAnswerPrompt formats each successful result by tool kind.
func (p *Planner) finalAnswerPrompt(question string, results []Result) string {
	var sb strings.Builder
	for _, r := range results {
		if !r.Success {
			continue
		}
		switch r.Tool {
		case ToolCalculator:
			fmt.Fprintf(&sb, "\nCalculation: %v = %v", r.Fields["expression"], r.Fields["result"])
		case ToolDocumentSearch:
			fmt.Fprintf(&sb, "\nDocuments: %s", truncate(stringField(r, "answer"), 300))
		case ToolDateTime:
			fmt.Fprintf(&sb, "\nDate/Time: %v", r.Fields["formatted"])
		case ToolGeneralKnowledge:
			fmt.Fprintf(&sb, "\nKnowledge: %s", truncate(stringField(r, "answer"), 200))
		case ToolWebSearch:
			web, _ := r.Fields["results"].([]WebResult)
			fmt.Fprintf(&sb, "\nWeb search (%d results):", len(web))
			for i, item := range web {
				if i == 3 {
					break
				}
				fmt.Fprintf(&sb, "\n  %d. %s\n     %s\n     URL: %s",
					i+1, item.Title, truncate(item.Description, 150), item.URL)
			}
		}
	}

	return fmt.Sprintf(`Based on the results, answer completely and naturally.

Question: %s

Tool results:%s

Your final answer (clear, direct and useful):`, question, sb.String())
}

// parsePlanDecision parses the planning response permissively: it takes
// the slice from the first '{' to the last '}' so surrounding prose is
// tolerated. Any parse failure means "the agent is done".
func parsePlanDecision(response string) planDecision {
	done := planDecision{IsComplete: true}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return done
	}

	var plan planDecision
	if err := json.Unmarshal([]byte(response[start:end+1]), &plan); err != nil {
		return done
	}
	return plan
}

// summarizeResult renders a result as bounded JSON for planning prompts.
func summarizeResult(r Result) string {
	raw, err := json.Marshal(r)
	if err != nil {
		return r.Err
	}
	return truncate(string(raw), resultSummaryLen)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func stringField(r Result, key string) string {
	s, _ := r.Fields[key].(string)
	return s
}

func (p *Planner) emit(ctx context.Context, events chan<- rag.Event, ev rag.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
