// Package local talks to an OpenAI-compatible model runtime on the user's
// machine (Ollama, llama.cpp server, LM Studio) and exposes it as the three
// praxis capabilities.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperengineering/praxis"
)

// ErrSessionDestroyed is returned by calls on a destroyed session.
var ErrSessionDestroyed = errors.New("session destroyed")

// StatusError is a non-2xx response from the runtime. Its message carries
// the wording the praxis classifier matches on.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	var reason string
	switch e.StatusCode {
	case http.StatusTooManyRequests:
		reason = "rate limit exceeded"
	case http.StatusNotFound, http.StatusServiceUnavailable:
		reason = "model not available"
	default:
		reason = "request failed"
	}
	msg := fmt.Sprintf("%s: %s (HTTP %d)", e.Operation, reason, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client implements the runtime's /models and /chat/completions endpoints.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client (for testing or custom timeouts).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithAPIKey sets a bearer token for runtimes that require one.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// New creates a client for the runtime at endpoint serving model.
func New(endpoint, model string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(endpoint, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Engines returns the runtime as praxis engines.
func (c *Client) Engines() praxis.Engines {
	return praxis.Engines{
		LanguageModel: languageModel{c},
		Translator:    translator{c},
		Rewriter:      rewriter{c},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

type modelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Availability reports readily when the model is served, after-download
// when the runtime is up without it, and no when the runtime is unreachable.
func (c *Client) Availability(ctx context.Context) (praxis.Availability, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return praxis.AvailabilityNo, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return praxis.AvailabilityNo, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return praxis.AvailabilityNo, newStatusError("list models", resp.StatusCode, body)
	}

	var models modelList
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return praxis.AvailabilityNo, fmt.Errorf("list models: decode: %w", err)
	}
	for _, m := range models.Data {
		if matchesModel(m.ID, c.model) {
			return praxis.AvailabilityReadily, nil
		}
	}
	return praxis.AvailabilityAfterDownload, nil
}

// matchesModel treats "llama3.2" and "llama3.2:latest" as the same model.
func matchesModel(served, want string) bool {
	if served == want {
		return true
	}
	return strings.TrimSuffix(served, ":latest") == strings.TrimSuffix(want, ":latest")
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one system + user exchange and returns the reply text.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("chat completion: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", newStatusError("chat completion", resp.StatusCode, respBody)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("chat completion: decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat completion: empty response")
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "praxis/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// maxErrorBody is how many characters of a response body an error keeps.
const maxErrorBody = 200

func newStatusError(op string, statusCode int, body []byte) *StatusError {
	msg := strings.TrimSpace(string(body))
	if r := []rune(msg); len(r) > maxErrorBody {
		msg = string(r[:maxErrorBody]) + "..."
	}
	return &StatusError{Operation: op, StatusCode: statusCode, Body: msg}
}
