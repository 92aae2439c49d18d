// Package openai implements the embeddings.Embedder contract over the
// OpenAI embeddings API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/viant/agentkb/embeddings"
)

const (
	defaultBaseURL        = "https://api.openai.com/v1"
	embeddingsEndpoint    = "/embeddings"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultHTTPTimeout    = 30 * time.Second
)

// Request represents the request payload for the embeddings endpoint.
type Request struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// Response represents the embeddings endpoint response.
type Response struct {
	Object string          `json:"object"`
	Data   []EmbeddingData `json:"data"`
	Model  string          `json:"model"`
}

// EmbeddingData represents a single embedding in the response.
type EmbeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// Client calls the OpenAI embeddings API.
type Client struct {
	BaseURL    string
	APIKey     string
	ModelID    string
	HTTPClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.BaseURL = baseURL
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// NewClient creates a client; the API key falls back to OPENAI_API_KEY.
func NewClient(apiKey, model string, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL:    defaultBaseURL,
		APIKey:     apiKey,
		ModelID:    model,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.ModelID == "" {
		c.ModelID = defaultEmbeddingModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the embedding model identifier.
func (c *Client) Model() string { return c.ModelID }

// EmbedDocuments embeds docs in one batched call, order-preserving.
func (c *Client) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: embeddings.ErrEmptyInput}
	}
	body, err := json.Marshal(Request{Model: c.ModelID, Input: docs})
	if err != nil {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("marshal request: %w", err)}
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+embeddingsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct{ Message, Type string } `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("API error (%s): %s", errResp.Error.Type, errResp.Error.Message)}
		}
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("API error: %s", resp.Status)}
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Data) != len(docs) {
		return nil, &embeddings.EmbeddingError{Model: c.ModelID, Err: fmt.Errorf("got %d vectors for %d texts", len(out.Data), len(docs))}
	}
	vectors := make([][]float32, len(out.Data))
	for i := range out.Data {
		vectors[out.Data[i].Index] = out.Data[i].Embedding
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
