package embeddings

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

// countingEmbedder records how many texts reached the backend.
type countingEmbedder struct {
	mux   sync.Mutex
	calls int
	texts int
}

func (e *countingEmbedder) Model() string { return "counting-v1" }

func (e *countingEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, &EmbeddingError{Model: e.Model(), Err: ErrEmptyInput}
	}
	e.mux.Lock()
	e.calls++
	e.texts += len(docs)
	e.mux.Unlock()
	vectors := make([][]float32, len(docs))
	for i, doc := range docs {
		vectors[i] = []float32{float32(len(doc)), 1}
	}
	return vectors, nil
}

func (e *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func TestCache_ServesRepeatsLocally(t *testing.T) {
	delegate := &countingEmbedder{}
	cache := NewCache(delegate)
	ctx := context.Background()

	first, err := cache.EmbedDocuments(ctx, []string{"alpha", "beta", "alpha"})
	if err != nil {
		t.Fatalf("EmbedDocuments: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(first))
	}
	if delegate.texts != 2 {
		t.Fatalf("backend saw %d texts, want 2 (duplicate served from cache)", delegate.texts)
	}

	if _, err := cache.EmbedDocuments(ctx, []string{"beta", "gamma"}); err != nil {
		t.Fatalf("EmbedDocuments: %v", err)
	}
	if delegate.texts != 3 {
		t.Fatalf("backend saw %d texts, want 3", delegate.texts)
	}
	if cache.Size() != 3 {
		t.Fatalf("cache holds %d entries, want 3", cache.Size())
	}
}

func TestCache_QueryHit(t *testing.T) {
	delegate := &countingEmbedder{}
	cache := NewCache(delegate)
	ctx := context.Background()

	if _, err := cache.EmbedQuery(ctx, "what is the refund window"); err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if _, err := cache.EmbedQuery(ctx, "what is the refund window"); err != nil {
		t.Fatalf("EmbedQuery: %v", err)
	}
	if delegate.calls != 1 {
		t.Fatalf("backend called %d times, want 1", delegate.calls)
	}
}

func TestEmbedBatches_PreservesOrder(t *testing.T) {
	delegate := &countingEmbedder{}
	texts := make([]string, 100)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, i)
	}
	vectors, err := EmbedBatches(context.Background(), delegate, texts, 7, 4)
	if err != nil {
		t.Fatalf("EmbedBatches: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, vector := range vectors {
		if int(vector[0]) != len(texts[i]) {
			t.Fatalf("vector %d out of order", i)
		}
	}
}

func TestEmbedBatches_EmptyInput(t *testing.T) {
	if _, err := EmbedBatches(context.Background(), &countingEmbedder{}, nil, 8, 2); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestSimpleEmbedder_SharedVocabularyScoresHigh(t *testing.T) {
	embedder := NewSimpleEmbedder(0)
	ctx := context.Background()
	refund, _ := embedder.EmbedQuery(ctx, "What is the refund window?")
	policy, _ := embedder.EmbedQuery(ctx, "Refunds are accepted within 30 days.")
	unrelated, _ := embedder.EmbedQuery(ctx, "ATM withdrawal limits per card.")

	if cosine(refund, policy) <= cosine(refund, unrelated) {
		t.Fatalf("refund question should score closer to refund policy than to ATM limits")
	}
}

func cosine(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
