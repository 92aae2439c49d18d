// Package indexer builds and serves the vector collection: it drives
// normalization, chunking and embedding for a set of configured sources,
// rebuilds atomically through the store's staging protocol, and answers
// nearest-neighbour queries against the live collection.
package indexer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/viant/agentkb/chunking"
	"github.com/viant/agentkb/embeddings"
	"github.com/viant/agentkb/ingest"
	"github.com/viant/agentkb/schema"
	"github.com/viant/agentkb/vectordb"
	"go.uber.org/zap"
)

// overFetch widens store queries so post-decode sorting stays stable even
// when the backend returns score ties in arbitrary order.
const overFetch = 4

// Source names one ingestion root and the kind of documents it holds.
type Source struct {
	Location string            `yaml:"location"`
	Kind     schema.SourceKind `yaml:"kind"`
}

// Manager owns the collection lifecycle for a fixed set of sources.
type Manager struct {
	provider    vectordb.Provider
	normalizer  *ingest.Normalizer
	chunker     *chunking.Chunker
	embedder    embeddings.Embedder
	sources     []Source
	logger      *zap.Logger
	batchSize   int
	parallelism int

	mux   sync.RWMutex
	store vectordb.Store
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithEmbedBatch sets the embedding batch size and fan-out.
func WithEmbedBatch(batchSize, parallelism int) Option {
	return func(m *Manager) {
		m.batchSize = batchSize
		m.parallelism = parallelism
	}
}

// New creates a Manager over the given provider and pipeline components.
func New(provider vectordb.Provider, normalizer *ingest.Normalizer, chunker *chunking.Chunker, embedder embeddings.Embedder, sources []Source, opts ...Option) *Manager {
	m := &Manager{
		provider:   provider,
		normalizer: normalizer,
		chunker:    chunker,
		embedder:   embedder,
		sources:    sources,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BuildOrLoad opens the persisted collection when present, or builds it from
// the configured sources. With rebuild set it always builds; the previous
// collection stays live and queryable until the new one commits.
func (m *Manager) BuildOrLoad(ctx context.Context, rebuild bool) error {
	if !rebuild {
		exists, err := m.provider.Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			store, err := m.provider.Open(ctx)
			if err != nil {
				return err
			}
			count, err := store.Count(ctx)
			if err != nil {
				_ = store.Close()
				return err
			}
			m.logger.Info("loaded collection", zap.Int("entries", count), zap.String("model", store.Model()))
			m.swapStore(store)
			return nil
		}
	}
	return m.rebuild(ctx)
}

func (m *Manager) rebuild(ctx context.Context) error {
	entries, err := m.buildEntries(ctx)
	if err != nil {
		return err
	}
	staging, err := m.provider.Stage(ctx)
	if err != nil {
		return err
	}
	if err := staging.Upsert(ctx, entries); err != nil {
		_ = staging.Discard(ctx)
		return fmt.Errorf("stage collection: %w", err)
	}
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.store != nil {
		_ = m.store.Close()
		m.store = nil
	}
	store, err := staging.Commit(ctx)
	if err != nil {
		_ = staging.Discard(ctx)
		// The previous persisted collection is untouched; reopen it so
		// readers keep answering.
		if previous, openErr := m.provider.Open(ctx); openErr == nil {
			m.store = previous
		}
		return fmt.Errorf("commit collection: %w", err)
	}
	m.store = store
	m.logger.Info("built collection", zap.Int("entries", len(entries)), zap.String("model", store.Model()))
	return nil
}

// buildEntries runs the full ingestion pipeline for every configured source.
// A source whose listing fails is logged and skipped; individual document
// failures are already handled inside the normalizer.
func (m *Manager) buildEntries(ctx context.Context) ([]vectordb.Entry, error) {
	var chunks []schema.Chunk
	for _, source := range m.sources {
		docs, err := m.normalizer.Normalize(ctx, source.Location, source.Kind)
		if err != nil {
			m.logger.Warn("skipping source", zap.String("location", source.Location), zap.Error(err))
			continue
		}
		for _, doc := range docs {
			chunks = append(chunks, m.chunker.Chunk(doc)...)
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no chunks produced from %d source(s)", len(m.sources))
	}
	return m.embedChunks(ctx, chunks)
}

func (m *Manager) embedChunks(ctx context.Context, chunks []schema.Chunk) ([]vectordb.Entry, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := embeddings.EmbedBatches(ctx, m.embedder, texts, m.batchSize, m.parallelism)
	if err != nil {
		return nil, err
	}
	entries := make([]vectordb.Entry, 0, len(chunks))
	for i, chunk := range chunks {
		entry, err := vectordb.EncodeChunk(chunk, vectors[i])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Upsert embeds the supplied documents and writes their chunks into the live
// collection in place, replacing chunks whose IDs already exist.
func (m *Manager) Upsert(ctx context.Context, docs []schema.SourceDocument) error {
	var chunks []schema.Chunk
	for _, doc := range docs {
		chunks = append(chunks, m.chunker.Chunk(doc)...)
	}
	if len(chunks) == 0 {
		return nil
	}
	entries, err := m.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.store == nil {
		return ErrNotReady
	}
	return m.store.Upsert(ctx, entries)
}

// Query returns up to k chunks by descending similarity. Ties are broken by
// chunk sequence and then document ID so results are deterministic.
func (m *Manager) Query(ctx context.Context, vector []float32, k int) ([]schema.ScoredChunk, error) {
	m.mux.RLock()
	store := m.store
	m.mux.RUnlock()
	if store == nil {
		return nil, ErrNotReady
	}
	matches, err := store.Search(ctx, vector, k*overFetch)
	if err != nil {
		return nil, err
	}
	scored := make([]schema.ScoredChunk, 0, len(matches))
	for _, match := range matches {
		chunk, err := vectordb.DecodeChunk(match.Entry)
		if err != nil {
			m.logger.Warn("dropping undecodable entry", zap.String("id", match.ID), zap.Error(err))
			continue
		}
		scored = append(scored, schema.ScoredChunk{Chunk: chunk, Score: match.Score})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Seq != scored[j].Seq {
			return scored[i].Seq < scored[j].Seq
		}
		return scored[i].DocumentID < scored[j].DocumentID
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count returns the number of entries in the live collection.
func (m *Manager) Count(ctx context.Context) (int, error) {
	m.mux.RLock()
	store := m.store
	m.mux.RUnlock()
	if store == nil {
		return 0, ErrNotReady
	}
	return store.Count(ctx)
}

// Model returns the embedding model the live collection is bound to.
func (m *Manager) Model() string {
	return m.embedder.Model()
}

func (m *Manager) swapStore(store vectordb.Store) {
	m.mux.Lock()
	if m.store != nil {
		_ = m.store.Close()
	}
	m.store = store
	m.mux.Unlock()
}

// Close releases the live collection.
func (m *Manager) Close() error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}
