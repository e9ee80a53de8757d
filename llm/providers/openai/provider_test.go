package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/docqa/llm/providers"
)

func TestProvider_Generate(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotReq request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hi there"}},
			},
		})
	}))
	t.Cleanup(server.Close)

	p := New(providers.BaseConfig{APIKey: "sk-test", BaseURL: server.URL}, zap.NewNop())
	answer, err := p.Generate(context.Background(), "hello", "be brief")
	require.NoError(t, err)

	assert.Equal(t, "hi there", answer)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "be brief", gotReq.Messages[0].Content)
	assert.False(t, gotReq.Stream)
}

func TestProvider_GenerateAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "invalid api key"},
		})
	}))
	t.Cleanup(server.Close)

	p := New(providers.BaseConfig{APIKey: "bad", BaseURL: server.URL}, zap.NewNop())
	_, err := p.Generate(context.Background(), "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestProvider_GenerateNon200(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	p := New(providers.BaseConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	_, err := p.Generate(context.Background(), "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestProvider_GenerateStream(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(server.Close)

	p := New(providers.BaseConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	stream, err := p.GenerateStream(context.Background(), "hello", "")
	require.NoError(t, err)

	var got string
	for chunk := range stream {
		require.NoError(t, chunk.Err)
		got += chunk.Text
	}
	assert.Equal(t, "Hello", got)
}

func TestNamedVariants(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "openai", New(providers.BaseConfig{}, zap.NewNop()).Name())
	assert.Equal(t, "groq", NewGroq(providers.BaseConfig{}, zap.NewNop()).Name())
	assert.Equal(t, "deepseek", NewDeepSeek(providers.BaseConfig{}, zap.NewNop()).Name())
}

func TestEmbedder_EmbedDocuments(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Input, 2)

		// Out-of-order response exercises the index-based reassembly.
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 1, "embedding": []float64{0, 1}},
				{"index": 0, "embedding": []float64{1, 0}},
			},
		})
	}))
	t.Cleanup(server.Close)

	e := NewEmbedder(providers.BaseConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	vectors, err := e.EmbedDocuments(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	require.Len(t, vectors, 2)
	assert.Equal(t, []float64{1, 0}, vectors[0])
	assert.Equal(t, []float64{0, 1}, vectors[1])
}

func TestEmbedder_CountMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"index": 0, "embedding": []float64{1}}},
		})
	}))
	t.Cleanup(server.Close)

	e := NewEmbedder(providers.BaseConfig{APIKey: "k", BaseURL: server.URL}, zap.NewNop())
	_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	t.Parallel()

	e := NewEmbedder(providers.BaseConfig{APIKey: "k"}, zap.NewNop())
	vectors, err := e.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}
