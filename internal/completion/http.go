// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/coursework-engine/internal/httputil"
	"github.com/pdiddy/coursework-engine/internal/logging"
	"github.com/pdiddy/coursework-engine/pkg/types"
)

const (
	defaultBaseURL   = "https://api.openai.com"
	defaultMaxTokens = 4096
	chatPath         = "/v1/chat/completions"

	// finishContentFilter is the provider's finish reason for refused requests.
	finishContentFilter = "content_filter"
)

// HTTPClient calls an OpenAI-compatible chat completions endpoint. Rate
// limits (429) are retried with exponential backoff inside a single Complete
// call; every other failure surfaces immediately as *ProviderError.
type HTTPClient struct {
	cfg    types.CompletionConfig
	client *http.Client
	log    *logging.Logger
}

// NewHTTPClient builds an HTTPClient from config, applying defaults for base
// URL and max output tokens. A zero TimeoutSeconds leaves the HTTP client
// without a timeout, so a stalled provider call blocks until the context is
// canceled.
func NewHTTPClient(cfg types.CompletionConfig, log *logging.Logger) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = defaultMaxTokens
	}
	client := &http.Client{}
	if cfg.TimeoutSeconds > 0 {
		client.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &HTTPClient{cfg: cfg, client: client, log: log}
}

// chatRequest is the request body for the chat completions endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Seed        int           `json:"seed,omitempty"`
}

// chatMessage is a single message in the chat completions conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the response body from the chat completions endpoint.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// chatChoice is one completion choice in the response.
type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// chatUsage is the provider's token accounting for one call.
type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Complete performs one chat completion call.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (Result, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxOutputTokens
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	seed := req.Seed
	if seed == 0 {
		seed = c.cfg.Seed
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Seed:        seed,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("marshaling completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("creating completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	c.log.Debug("completion call", "model", c.cfg.Model, "prompt_chars", len(req.Prompt))

	resp, err := httputil.DoWithRetry(ctx, c.client, httpReq, 0)
	if err != nil {
		return Result{}, fmt.Errorf("calling completion provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Result{}, &ProviderError{
			Kind:       KindHTTP,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var cResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return Result{}, &ProviderError{Kind: KindDecode, Message: err.Error()}
	}

	if len(cResp.Choices) == 0 {
		return Result{}, &ProviderError{Kind: KindEmpty, Message: "response carried no choices"}
	}

	choice := cResp.Choices[0]
	if choice.FinishReason == finishContentFilter {
		return Result{}, &ProviderError{Kind: KindRefusal, Message: "provider refused the request"}
	}

	text, err := decodeText(choice.Message.Content)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Text:             text,
		PromptTokens:     cResp.Usage.PromptTokens,
		CompletionTokens: cResp.Usage.CompletionTokens,
	}, nil
}
