// Package proxy is a chat-completion client for the hosted OpenRouter API.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	requestTimeout = 180 * time.Second
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 10 * time.Second
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a non-streaming chat completion request.
type CompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openrouter: unexpected status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client calls the OpenRouter API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

// NewClient creates a client authenticated with apiKey.
func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, defaultBaseURL)
}

// NewClientWithBaseURL targets a custom endpoint.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
		backoff:    initialBackoff,
	}
}

// Complete returns the content of the first choice. Rate limits and server
// errors are retried with exponential backoff, honoring Retry-After.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	wait := c.backoff
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var resp completionResponse
		lastErr = c.do(ctx, http.MethodPost, "/chat/completions", body, &resp)
		if lastErr == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("openrouter: completion returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}

		var se *StatusError
		if !errors.As(lastErr, &se) || !se.Retryable() || attempt == maxAttempts {
			break
		}
		delay := wait
		if se.RetryAfter > 0 {
			delay = min(se.RetryAfter, maxBackoff)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		wait = min(wait*2, maxBackoff)
	}
	return "", lastErr
}

// ListModels returns the IDs of the catalog models.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var list modelList
	if err := c.do(ctx, http.MethodGet, "/models", nil, &list); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list.Data))
	for _, m := range list.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/kalambet/blueprint")
	req.Header.Set("X-Title", "blueprint")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("openrouter %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		se := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && s > 0 {
			se.RetryAfter = time.Duration(s) * time.Second
		}
		return se
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
