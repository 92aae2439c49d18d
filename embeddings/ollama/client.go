// Package ollama implements the embeddings.Embedder contract over a local
// Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/viant/agentkb/embeddings"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	embedEndpoint      = "/api/embed"
	defaultHTTPTimeout = 30 * time.Second
)

// Client calls the Ollama embed API.
type Client struct {
	BaseURL    string
	ModelID    string
	HTTPClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the server base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// NewClient creates a client for the given model.
func NewClient(model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		ModelID:    model,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error"`
}

// Model returns the embedding model identifier.
func (c *Client) Model() string { return c.ModelID }

// EmbedDocuments embeds docs in one batched call, order-preserving.
func (c *Client) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if c.ModelID == "" {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("model is required")}
	}
	if len(docs) == 0 {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: embeddings.ErrEmptyInput}
	}
	body, err := json.Marshal(embedRequest{Model: c.ModelID, Input: docs})
	if err != nil {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+embedEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("API error: %s", strings.TrimSpace(string(raw)))}
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.Error != "" {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("API error: %s", out.Error)}
	}
	if len(out.Embeddings) != len(docs) {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("got %d vectors for %d texts", len(out.Embeddings), len(docs))}
	}
	return out.Embeddings, nil
}

// EmbedQuery embeds a single query text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
