// Package openai implements the generation contract against any
// chat-completions-compatible HTTP API. Groq and DeepSeek expose the same
// wire format, so one implementation covers all three; only the base URL,
// model, and provider name differ.
package openai

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

// Provider talks to an OpenAI-compatible chat completions endpoint.
type Provider struct {
	name   string
	cfg    providers.BaseConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an OpenAI provider.
func New(cfg providers.BaseConfig, logger *zap.Logger) *Provider {
	return newCompatible("openai", cfg.WithDefaults("https://api.openai.com", "gpt-4"), logger)
}

// NewGroq creates a Groq provider over the same wire format.
func NewGroq(cfg providers.BaseConfig, logger *zap.Logger) *Provider {
	return newCompatible("groq", cfg.WithDefaults("https://api.groq.com/openai", "llama-3.3-70b-versatile"), logger)
}

// NewDeepSeek creates a DeepSeek provider over the same wire format.
func NewDeepSeek(cfg providers.BaseConfig, logger *zap.Logger) *Provider {
	return newCompatible("deepseek", cfg.WithDefaults("https://api.deepseek.com", "deepseek-chat"), logger)
}

func newCompatible(name string, cfg providers.BaseConfig, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		name:   name,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (p *Provider) Name() string { return p.name }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float32   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type response struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type streamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *Provider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	resp, err := p.do(ctx, prompt, systemPrompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%s: api error: %s", p.name, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices in response", p.name)
	}
	return out.Choices[0].Message.Content, nil
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
			if payload == "" || payload == "[DONE]" {
				if payload == "[DONE]" {
					return
				}
				continue
			}

			var ev streamResponse
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				p.logger.Debug("skipping malformed stream event",
					zap.String("provider", p.name), zap.Error(err))
				continue
			}
			if len(ev.Choices) == 0 {
				continue
			}
			if text := ev.Choices[0].Delta.Content; text != "" {
				select {
				case ch <- llm.StreamChunk{Text: text}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			select {
			case ch <- llm.StreamChunk{Err: fmt.Errorf("%s: read stream: %w", p.name, err)}:
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
		Model: p.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", p.name, err)
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", p.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s: status %d: %s", p.name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}
