package agent

import (
	"github.com/BaSui01/docqa/llm"
	"github.com/BaSui01/docqa/rag"
	"go.uber.org/zap"
)

// ToolInfo is the catalog entry handed to planning prompts. The description
// is the documentation surface the planning model relies on, not cosmetics.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Registry is the fixed, enum-indexed capability set. It is immutable
// after construction.
type Registry struct {
	tools map[ToolKind]Tool
	order []ToolKind
}

// NewRegistry builds the standard tool set. webSearch may be nil; the tool
// is then registered but fails with a configuration error when invoked,
// which the planner treats as a loop-terminating condition.
func NewRegistry(engine *rag.Engine, provider llm.Provider, webSearch SearchProvider, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	docOpts := rag.DefaultAskOptions()
	tools := []Tool{
		NewDocumentSearchTool(engine, docOpts, logger),
		NewCalculatorTool(logger),
		NewDateTimeTool(),
		NewKnowledgeTool(provider, logger),
		NewWebSearchTool(webSearch, logger),
	}

	r := &Registry{tools: make(map[ToolKind]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Kind()] = t
		r.order = append(r.order, t.Kind())
	}
	logger.Info("tool registry initialized", zap.Int("tools", len(tools)))
	return r
}

// NewRegistryFromTools builds a registry from an explicit tool set, used in
// tests to substitute fakes.
func NewRegistryFromTools(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[ToolKind]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Kind()] = t
		r.order = append(r.order, t.Kind())
	}
	return r
}

// Lookup returns the tool for a kind.
func (r *Registry) Lookup(kind ToolKind) (Tool, bool) {
	t, ok := r.tools[kind]
	return t, ok
}

// Catalog lists the tools in registration order for prompt construction.
func (r *Registry) Catalog() []ToolInfo {
	infos := make([]ToolInfo, 0, len(r.order))
	for _, kind := range r.order {
		infos = append(infos, ToolInfo{Name: string(kind), Description: r.tools[kind].Description()})
	}
	return infos
}
