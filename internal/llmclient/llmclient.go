// Package llmclient is a minimal one-shot client for a Messages-API-style
// LLM endpoint: one system prompt and one user message in, the assistant's
// text out. No streaming, no tool calls, no conversation history.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"training-load-engine/internal/apperr"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
	defaultModel   = "claude-3-5-sonnet-20241022"
	defaultTimeout = 60 * time.Second
)

// Client calls a Messages-API-style completion endpoint over HTTPS.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// Config customizes a Client; zero values fall back to sane defaults.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		model:     model,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type messageRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Complete sends one system+user exchange and returns the concatenated text
// of the response's text blocks.
func (c *Client) Complete(ctx context.Context, system, userMessage string) (string, error) {
	reqBody := messageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages: []chatMessage{
			{Role: "user", Content: userMessage},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperr.New(apperr.KindValidation, "llmclient.Complete", fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", apperr.New(apperr.KindValidation, "llmclient.Complete", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", apperr.New(apperr.KindTransientProvider, "llmclient.Complete", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var parsed messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperr.New(apperr.KindParse, "llmclient.Complete", fmt.Errorf("decode response: %w", err))
	}

	var text string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

func classifyStatus(status int, body []byte) error {
	err := fmt.Errorf("llm API error %d: %s", status, string(body))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.New(apperr.KindAuth, "llmclient.Complete", err)
	case status == http.StatusTooManyRequests || status >= 500:
		return apperr.New(apperr.KindTransientProvider, "llmclient.Complete", err)
	default:
		return apperr.New(apperr.KindParse, "llmclient.Complete", err)
	}
}
