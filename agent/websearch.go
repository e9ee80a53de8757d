package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// WebResult is one web search hit.
type WebResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchProvider is the contract over a web search backend. Implementations
// can wrap Brave, SerpAPI, Tavily, and similar services.
type SearchProvider interface {
	Search(ctx context.Context, query string, count int) ([]WebResult, error)
	Name() string
}

// defaultWebResultCount is how many results the tool requests per query.
const defaultWebResultCount = 3

// WebSearchTool answers questions that need current information from the
// open web.
type WebSearchTool struct {
	provider SearchProvider
	logger   *zap.Logger
}

// NewWebSearchTool creates the web-search tool.
func NewWebSearchTool(provider SearchProvider, logger *zap.Logger) *WebSearchTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSearchTool{provider: provider, logger: logger}
}

func (t *WebSearchTool) Kind() ToolKind { return ToolWebSearch }

func (t *WebSearchTool) Description() string {
	return "Searches the internet. Use when the question requires current information, news, recent events, or knowledge that is NOT in the documents."
}

func (t *WebSearchTool) Execute(ctx context.Context, input string) Result {
	if t.provider == nil {
		return failure(ToolWebSearch, fmt.Errorf("no web search provider configured"))
	}
	t.logger.Debug("web search", zap.String("query", input), zap.String("provider", t.provider.Name()))

	results, err := t.provider.Search(ctx, input, defaultWebResultCount)
	if err != nil {
		return failure(ToolWebSearch, err)
	}
	return Result{
		Success: true,
		Tool:    ToolWebSearch,
		Fields: map[string]any{
			"results": results,
			"query":   input,
			"source":  t.provider.Name(),
		},
	}
}

// ===== Brave Search =====

// BraveProvider implements SearchProvider against the Brave Search API.
type BraveProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewBraveProvider creates a Brave Search backend.
func NewBraveProvider(apiKey string) *BraveProvider {
	return &BraveProvider{
		apiKey:  apiKey,
		baseURL: "https://api.search.brave.com/res/v1/web/search",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (b *BraveProvider) Name() string { return "brave_search" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (b *BraveProvider) Search(ctx context.Context, query string, count int) ([]WebResult, error) {
	endpoint := b.baseURL + "?q=" + url.QueryEscape(query) + "&count=" + strconv.Itoa(count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("brave: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("brave: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("brave: decode response: %w", err)
	}

	results := make([]WebResult, 0, count)
	for _, r := range out.Web.Results {
		results = append(results, WebResult{Title: r.Title, URL: r.URL, Description: r.Description})
		if len(results) == count {
			break
		}
	}
	return results, nil
}
