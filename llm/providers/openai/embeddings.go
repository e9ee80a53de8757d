package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/docqa/llm/providers"
	"go.uber.org/zap"
)

// Embedder calls the OpenAI embeddings endpoint. Any compatible API works
// through the base URL override.
type Embedder struct {
	cfg    providers.BaseConfig
	client *http.Client
	logger *zap.Logger
}

// NewEmbedder creates an embeddings client.
func NewEmbedder(cfg providers.BaseConfig, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.WithDefaults("https://api.openai.com", "text-embedding-3-small")
	return &Embedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds a batch in one request. The result is ordered by
// input position regardless of response order.
func (e *Embedder) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	if len(documents) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Model: e.cfg.Model, Input: documents})
	if err != nil {
		return nil, fmt.Errorf("embeddings: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/v1/embeddings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embeddings: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embeddings: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embeddings: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embeddings: decode response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("embeddings: api error: %s", out.Error.Message)
	}
	if len(out.Data) != len(documents) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(out.Data), len(documents))
	}

	vectors := make([][]float64, len(documents))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embeddings: index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
