// Package claude implements the generation contract against the Anthropic
// messages API. The API differs from OpenAI-compatible backends: auth uses
// the x-api-key header, the system prompt travels as a top-level field, and
// streaming uses SSE content_block_delta events.
package claude

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/BaSui01/docqa/llm"
	"github.com/BaSui01/docqa/llm/providers"
	"go.uber.org/zap"
)

const apiVersion = "2023-06-01"

// Provider talks to the Anthropic messages API over HTTP.
type Provider struct {
	cfg    providers.BaseConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a Claude provider.
func New(cfg providers.BaseConfig, logger *zap.Logger) *Provider {
	cfg = cfg.WithDefaults("https://api.anthropic.com", "claude-sonnet-4-20250514")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string { return "claude" }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float32   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type response struct {
	Content []contentBlock `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// streamEvent covers the SSE payloads we care about: content_block_delta
// carries text deltas, error terminates.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	resp, err := p.do(ctx, prompt, systemPrompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("claude: decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("claude: api error: %s", out.Error.Message)
	}
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (p *Provider) GenerateStream(ctx context.Context, prompt, systemPrompt string) (<-chan llm.StreamChunk, error) {
	resp, err := p.do(ctx, prompt, systemPrompt, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.StreamChunk)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" {
				continue
			}

			var ev streamEvent
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				p.logger.Debug("claude: skipping malformed stream event", zap.Error(err))
				continue
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta.Text != "" {
					select {
					case ch <- llm.StreamChunk{Text: ev.Delta.Text}:
					case <-ctx.Done():
						return
					}
				}
			case "error":
				msg := "stream error"
				if ev.Error != nil {
					msg = ev.Error.Message
				}
				select {
				case ch <- llm.StreamChunk{Err: fmt.Errorf("claude: %s", msg)}:
				case <-ctx.Done():
				}
				return
			case "message_stop":
				return
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case ch <- llm.StreamChunk{Err: fmt.Errorf("claude: read stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()
	return ch, nil
}

func (p *Provider) do(ctx context.Context, prompt, systemPrompt string, stream bool) (*http.Response, error) {
	if systemPrompt == "" {
		systemPrompt = llm.DefaultSystemPrompt
	}
	body, err := json.Marshal(request{
		Model:       p.cfg.Model,
		Messages:    []message{{Role: "user", Content: prompt}},
		System:      systemPrompt,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("claude: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("claude: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("claude: request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("claude: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}
