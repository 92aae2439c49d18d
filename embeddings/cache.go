package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// contentHash hashes model version and text together so vectors cached for
// one model version are never served for another.
func contentHash(model, text string) (uint64, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte(model)); err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte{0}); err != nil {
		return 0, err
	}
	if _, err = h.Write([]byte(text)); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// Cache memoizes an Embedder by content hash. It is an optimization: a miss
// is always recomputed, never an error source of its own.
type Cache struct {
	delegate Embedder
	mux      sync.RWMutex
	vectors  map[uint64][]float32
}

// NewCache wraps delegate with content-hash memoization.
func NewCache(delegate Embedder) *Cache {
	return &Cache{
		delegate: delegate,
		vectors:  map[uint64][]float32{},
	}
}

// Model returns the delegate model identifier.
func (c *Cache) Model() string { return c.delegate.Model() }

// EmbedDocuments embeds docs, serving repeated texts from the cache and
// computing only the misses in one delegate call.
func (c *Cache) EmbedDocuments(ctx context.Context, docs []string) ([][]float32, error) {
	if len(docs) == 0 {
		return nil, &EmbeddingError{Model: c.Model(), Err: ErrEmptyInput}
	}
	keys := make([]uint64, len(docs))
	out := make([][]float32, len(docs))
	var missIdx []int
	var missTexts []string
	c.mux.RLock()
	for i, doc := range docs {
		key, err := contentHash(c.Model(), doc)
		if err != nil {
			c.mux.RUnlock()
			return nil, &EmbeddingError{Model: c.Model(), Err: err}
		}
		keys[i] = key
		if vector, ok := c.vectors[key]; ok {
			out[i] = vector
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, doc)
	}
	c.mux.RUnlock()
	if len(missIdx) == 0 {
		return out, nil
	}
	vectors, err := c.delegate.EmbedDocuments(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, &EmbeddingError{Model: c.Model(), Err: fmt.Errorf("got %d vectors for %d texts", len(vectors), len(missTexts))}
	}
	c.mux.Lock()
	for j, i := range missIdx {
		out[i] = vectors[j]
		c.vectors[keys[i]] = vectors[j]
	}
	c.mux.Unlock()
	return out, nil
}

// EmbedQuery embeds a single query text through the cache.
func (c *Cache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Size returns the number of cached vectors.
func (c *Cache) Size() int {
	c.mux.RLock()
	defer c.mux.RUnlock()
	return len(c.vectors)
}
