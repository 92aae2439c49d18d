// Package embeddings defines the embedding capability contract and shared
// helpers for batching and caching vector computation.
package embeddings

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Embedder maps texts to fixed-dimension vectors. Implementations are
// stateless, order-preserving and deterministic for a fixed model version.
type Embedder interface {
	EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// Model returns the model identifier+version producing the vectors.
	Model() string
}

// EmbeddingError describes a failed embedding computation. A build that hits
// one aborts; no partial index state is persisted.
type EmbeddingError struct {
	Model string
	Err   error
}

// Error implements error.
func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embed with %s: %v", e.Model, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *EmbeddingError) Unwrap() error { return e.Err }

// ErrEmptyInput rejects embedding requests with no texts.
var ErrEmptyInput = fmt.Errorf("no input texts provided")

// EmbedBatches embeds texts in order-preserving batches, running up to
// parallelism backend calls concurrently.
func EmbedBatches(ctx context.Context, embedder Embedder, texts []string, batchSize, parallelism int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &EmbeddingError{Model: embedder.Model(), Err: ErrEmptyInput}
	}
	if batchSize <= 0 {
		batchSize = 32
	}
	if parallelism <= 0 {
		parallelism = 4
	}
	out := make([][]float32, len(texts))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		group.Go(func() error {
			vectors, err := embedder.EmbedDocuments(ctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vectors) != end-start {
				return &EmbeddingError{Model: embedder.Model(), Err: fmt.Errorf("got %d vectors for %d texts", len(vectors), end-start)}
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
