// Package retrieval turns a natural-language question into ranked evidence
// chunks by embedding the query and searching the collection.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/agentkb/embeddings"
	"github.com/viant/agentkb/schema"
)

const (
	defaultTopK            = 5
	defaultSimilarityFloor = 0.25
)

// Querier answers nearest-neighbour queries over the live collection.
type Querier interface {
	Query(ctx context.Context, vector []float32, k int) ([]schema.ScoredChunk, error)
}

// Config holds retrieval tuning knobs.
type Config struct {
	TopK            int     `yaml:"topK"`
	SimilarityFloor float32 `yaml:"similarityFloor"`
}

// Retriever embeds queries and filters search results.
type Retriever struct {
	embedder embeddings.Embedder
	index    Querier
	cfg      Config
}

// New creates a Retriever; zero config fields take defaults.
func New(embedder embeddings.Embedder, index Querier, cfg Config) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.SimilarityFloor <= 0 {
		cfg.SimilarityFloor = defaultSimilarityFloor
	}
	return &Retriever{embedder: embedder, index: index, cfg: cfg}
}

type querySettings struct {
	topK  int
	floor float32
	kind  schema.SourceKind
}

// QueryOption adjusts a single Retrieve call.
type QueryOption func(*querySettings)

// WithTopK overrides the number of chunks returned.
func WithTopK(k int) QueryOption {
	return func(s *querySettings) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithSimilarityFloor overrides the minimum score a chunk must reach.
func WithSimilarityFloor(floor float32) QueryOption {
	return func(s *querySettings) {
		s.floor = floor
	}
}

// WithKind restricts results to chunks of one source kind.
func WithKind(kind schema.SourceKind) QueryOption {
	return func(s *querySettings) {
		s.kind = kind
	}
}

// Retrieve returns the best-matching chunks for the query, strongest first.
// Chunks below the similarity floor are dropped; an empty result is returned
// as-is so callers can apply their no-evidence policy.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...QueryOption) (schema.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	settings := querySettings{topK: r.cfg.TopK, floor: r.cfg.SimilarityFloor}
	for _, opt := range opts {
		opt(&settings)
	}
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	fetch := settings.topK
	if settings.kind != "" {
		// Kind filtering happens after search, so fetch extra candidates.
		fetch *= 2
	}
	scored, err := r.index.Query(ctx, vector, fetch)
	if err != nil {
		return nil, err
	}
	result := make(schema.RetrievalResult, 0, settings.topK)
	for _, candidate := range scored {
		if candidate.Score < settings.floor {
			continue
		}
		if settings.kind != "" && candidate.Meta != nil && candidate.Meta.Kind() != settings.kind {
			continue
		}
		result = append(result, candidate)
		if len(result) == settings.topK {
			break
		}
	}
	return result, nil
}
