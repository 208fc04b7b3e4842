// Package ollama implements llm.Generator on a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"hostpilot/internal/config"
	"hostpilot/internal/llm"
	"hostpilot/pkg/logger"
)

// Error definitions.
var (
	ErrConnectionFailed = errors.New("failed to connect to Ollama server")
	ErrModelNotFound    = errors.New("model not found")
	ErrInvalidResponse  = errors.New("invalid response from Ollama")
	ErrRequestTimeout   = errors.New("request timeout")
)

// Client talks to the Ollama /api/generate endpoint in JSON mode.
type Client struct {
	endpoint   string
	model      string
	keepAlive  string
	httpClient *http.Client
}

var _ llm.Generator = (*Client)(nil)

// New creates a client, filling unset fields with defaults.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = DefaultKeepAlive
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FromConfig creates a client from the application config.
func FromConfig(cfg config.OllamaConfig) *Client {
	return New(Config{Endpoint: cfg.Endpoint, Model: cfg.Model, Timeout: cfg.Timeout})
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt with JSON output forced. When schema is given it is passed as the
// structured output format; otherwise format is "json". The raw model text is returned
// unparsed so callers can apply their own strictness.
func (c *Client) Generate(ctx context.Context, prompt string, schema map[string]any) (json.RawMessage, error) {
	req := &generateRequest{
		Model:     c.model,
		Prompt:    prompt,
		Stream:    false,
		Format:    "json",
		Options:   &ollamaOptions{Temperature: 0},
		KeepAlive: c.keepAlive,
	}
	if schema != nil {
		req.Format = schema
	}

	logger.Debug().Str("model", c.model).Int("prompt_len", len(prompt)).Msg("Ollama generate request")

	resp, err := c.doRequest(ctx, "/api/generate", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Ollama error response")
		return nil, c.handleErrorResponse(resp.StatusCode, body)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		logger.Error().Err(err).Msg("Failed to parse Ollama response")
		return nil, ErrInvalidResponse
	}
	if !genResp.Done {
		return nil, fmt.Errorf("%w: generation incomplete", ErrInvalidResponse)
	}

	logger.Debug().
		Int("prompt_tokens", genResp.PromptEvalCount).
		Int("completion_tokens", genResp.EvalCount).
		Msg("Ollama generate done")

	return json.RawMessage(genResp.Response), nil
}

// doRequest sends an HTTP request to the Ollama API.
func (c *Client) doRequest(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrRequestTimeout, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return resp, nil
}

// handleErrorResponse converts an error response to an appropriate error.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var errResp ollamaErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		if statusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrModelNotFound, errResp.Error)
		}
		return fmt.Errorf("ollama error: %s", errResp.Error)
	}

	switch statusCode {
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusServiceUnavailable:
		return ErrConnectionFailed
	default:
		return fmt.Errorf("ollama returned status %d: %s", statusCode, string(body))
	}
}

// Ping checks if the Ollama server is available.
func (c *Client) Ping(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrConnectionFailed, resp.StatusCode)
	}
	return nil
}
