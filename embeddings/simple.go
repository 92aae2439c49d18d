package embeddings

import (
	"context"
	"math"
	"strings"
)

// SimpleEmbedder returns deterministic bag-of-words vectors for local runs
// and tests. Tokens are hashed into dimension buckets and the vector is
// L2-normalized, so texts sharing vocabulary score a higher cosine.
type SimpleEmbedder struct {
	Dim int
}

// NewSimpleEmbedder constructs a simple deterministic embedder.
func NewSimpleEmbedder(dim int) *SimpleEmbedder {
	if dim <= 0 {
		dim = 128
	}
	return &SimpleEmbedder{Dim: dim}
}

// Model identifies the deterministic local model.
func (e *SimpleEmbedder) Model() string { return "simple-bow-v1" }

// EmbedDocuments embeds documents deterministically.
func (e *SimpleEmbedder) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, &EmbeddingError{Model: e.Model(), Err: ErrEmptyInput}
	}
	out := make([][]float32, len(docs))
	for i, doc := range docs {
		out[i] = e.embed(doc)
	}
	return out, nil
}

// EmbedQuery embeds a query deterministically.
func (e *SimpleEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (e *SimpleEmbedder) embed(text string) []float32 {
	v := make([]float32, e.Dim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, `.,;:!?"'()[]`)
		word = strings.TrimSuffix(word, "s") // crude plural folding
		if word == "" {
			continue
		}
		var h uint32 = 2166136261
		for i := 0; i < len(word); i++ {
			h = h*16777619 ^ uint32(word[i])
		}
		v[h%uint32(e.Dim)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v
}
