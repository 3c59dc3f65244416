package image

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kwalter/dungeonloom/internal/service/generation"
)

// Client calls an OpenAI-compatible images endpoint and returns the hosted
// URL of the rendered illustration. No artifact is stored locally.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	size       string
	httpClient *http.Client
}

// Config carries the opaque backend bindings for image generation.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Size    string
	Timeout time.Duration
}

// NewClient creates the image backend client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		size:       cfg.Size,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	ResponseFormat string `json:"response_format"`
}

type generateResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate renders the prompt and returns the image URL. Rate limits and
// upstream outages are marked transient for the gateway's retry policy;
// request rejections are returned as is.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:          c.model,
		Prompt:         prompt,
		N:              1,
		Size:           c.size,
		ResponseFormat: "url",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", generation.MarkTransient(fmt.Errorf("image request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", generation.MarkTransient(fmt.Errorf("failed to read image response: %w", err))
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return "", generation.MarkTransient(fmt.Errorf("image backend returned %d: %s", resp.StatusCode, body))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image backend rejected request with %d: %s", resp.StatusCode, body)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode image response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("image backend error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return "", fmt.Errorf("image generation succeeded but no URL was returned")
	}

	return parsed.Data[0].URL, nil
}
