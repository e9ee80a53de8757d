package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCalculatorTool_Execute(t *testing.T) {
	t.Parallel()

	tool := NewCalculatorTool(zap.NewNop())

	result := tool.Execute(context.Background(), "30 * 1500 / 100")
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	if result.Fields["result"] != 450.0 {
		t.Fatalf("expected 450, got %v", result.Fields["result"])
	}
	if result.Tool != ToolCalculator {
		t.Fatalf("wrong tool kind %q", result.Tool)
	}
}

func TestCalculatorTool_RejectsInvalidCharacters(t *testing.T) {
	t.Parallel()

	tool := NewCalculatorTool(zap.NewNop())

	for _, expr := range []string{"os.exit(1)", "2**3", "1 + x"} {
		result := tool.Execute(context.Background(), expr)
		if result.Success {
			t.Fatalf("expression %q must be rejected", expr)
		}
	}
}

func TestDateTimeTool_Execute(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 3, 15, 14, 30, 5, 0, time.UTC)
	tool := &DateTimeTool{now: func() time.Time { return fixed }}

	result := tool.Execute(context.Background(), "")
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	if result.Fields["formatted"] != "15/03/2024 14:30:05" {
		t.Fatalf("unexpected formatted value %v", result.Fields["formatted"])
	}
	if result.Fields["weekday"] != "Friday" {
		t.Fatalf("unexpected weekday %v", result.Fields["weekday"])
	}
}

func TestKnowledgeTool_Execute(t *testing.T) {
	t.Parallel()

	provider := &scriptedProvider{responses: []string{"Paris."}}
	tool := NewKnowledgeTool(provider, zap.NewNop())

	result := tool.Execute(context.Background(), "What is the capital of France?")
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	if result.Fields["answer"] != "Paris." {
		t.Fatalf("unexpected answer %v", result.Fields["answer"])
	}
}

func TestWebSearchTool_NoProviderFails(t *testing.T) {
	t.Parallel()

	tool := NewWebSearchTool(nil, zap.NewNop())
	result := tool.Execute(context.Background(), "latest news")
	if result.Success {
		t.Fatal("missing provider must fail the execution")
	}
}

type fakeSearchProvider struct {
	results []WebResult
	err     error
}

func (f *fakeSearchProvider) Name() string { return "fake_search" }

func (f *fakeSearchProvider) Search(ctx context.Context, query string, count int) ([]WebResult, error) {
	return f.results, f.err
}

func TestWebSearchTool_Execute(t *testing.T) {
	t.Parallel()

	tool := NewWebSearchTool(&fakeSearchProvider{results: []WebResult{
		{Title: "t", URL: "https://example.com", Description: "d"},
	}}, zap.NewNop())

	result := tool.Execute(context.Background(), "query")
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Err)
	}
	web := result.Fields["results"].([]WebResult)
	if len(web) != 1 || web[0].URL != "https://example.com" {
		t.Fatalf("unexpected results %v", web)
	}

	failing := NewWebSearchTool(&fakeSearchProvider{err: errors.New("rate limited")}, zap.NewNop())
	if failing.Execute(context.Background(), "query").Success {
		t.Fatal("provider error must fail the execution")
	}
}

func TestParseToolKind(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"document_search", "calculator", "datetime", "general_knowledge", "web_search"} {
		kind, ok := ParseToolKind(name)
		if !ok || string(kind) != name {
			t.Fatalf("ParseToolKind(%q) = %q, %v", name, kind, ok)
		}
	}
	if _, ok := ParseToolKind("shell"); ok {
		t.Fatal("unknown tool name must not parse")
	}
}
