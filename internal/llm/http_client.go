package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taleforge/taleforge/internal/logger"
)

const defaultMaxTokens = 4000

// HTTPClient implements Client against any OpenAI-compatible chat
// completions endpoint. If apiKey is empty, requests are sent without an
// Authorization header.
type HTTPClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient constructs a client for the given endpoint. Generation
// round-trips routinely take tens of seconds, so the timeout is generous.
func NewHTTPClient(endpoint, apiKey string) (*HTTPClient, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("api endpoint is required")
	}

	return &HTTPClient{
		endpoint: trimmed,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message *Message `json:"message"`
	} `json:"choices"`
}

// Complete sends a chat completion request and returns the first choice's
// content.
func (c *HTTPClient) Complete(ctx context.Context, messages []Message, model string) (string, error) {
	payload, err := json.Marshal(&chatRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logger.Debug("Completion request to %s (model: %s, messages: %d)", c.endpoint, model, len(messages))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message == nil {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}
