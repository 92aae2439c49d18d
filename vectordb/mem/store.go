// Package mem provides an in-memory vector store with the same staging
// semantics as the sqlite-vec backend. State lives for the lifetime of the
// process; it backs tests and ephemeral deployments.
package mem

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/agentkb/vectordb"
)

// Provider keeps named collections in a process-wide registry so that
// Commit can swap a staged collection in for the live one.
type Provider struct {
	collection string
	model      string
	registry   *registry
}

type registry struct {
	mux         sync.Mutex
	collections map[string]*collection
}

type collection struct {
	mux     sync.RWMutex
	model   string
	entries map[string]vectordb.Entry
}

var defaultRegistry = &registry{collections: map[string]*collection{}}

// NewProvider creates a provider for the named in-memory collection.
func NewProvider(collection, model string) *Provider {
	if collection == "" {
		collection = "default"
	}
	return &Provider{collection: collection, model: model, registry: defaultRegistry}
}

// Reset drops all in-memory collections.
func Reset() {
	defaultRegistry.mux.Lock()
	defaultRegistry.collections = map[string]*collection{}
	defaultRegistry.mux.Unlock()
}

func (p *Provider) Exists(ctx context.Context) (bool, error) {
	p.registry.mux.Lock()
	defer p.registry.mux.Unlock()
	_, ok := p.registry.collections[p.collection]
	return ok, nil
}

func (p *Provider) Open(ctx context.Context) (vectordb.Store, error) {
	p.registry.mux.Lock()
	defer p.registry.mux.Unlock()
	coll, ok := p.registry.collections[p.collection]
	if !ok {
		coll = &collection{model: p.model, entries: map[string]vectordb.Entry{}}
		p.registry.collections[p.collection] = coll
	}
	if coll.model != p.model {
		return nil, &vectordb.ModelMismatchError{Collection: p.collection, Want: p.model, Got: coll.model}
	}
	return &Store{collection: coll, model: p.model}, nil
}

func (p *Provider) Stage(ctx context.Context) (vectordb.Staging, error) {
	coll := &collection{model: p.model, entries: map[string]vectordb.Entry{}}
	return &staging{
		Store:    &Store{collection: coll, model: p.model},
		provider: p,
	}, nil
}

// Store reads and writes one in-memory collection.
type Store struct {
	collection *collection
	model      string
}

// Upsert inserts entries, replacing any existing entry with the same ID.
// Chunks of the batch's documents that are absent from the batch are
// dropped, so a document that shrank does not keep stale chunks live.
func (s *Store) Upsert(ctx context.Context, entries []vectordb.Entry) error {
	s.collection.mux.Lock()
	defer s.collection.mux.Unlock()
	keep := map[string]bool{}
	documents := map[string]bool{}
	for _, entry := range entries {
		s.collection.entries[entry.ID] = entry
		keep[entry.ID] = true
		documents[entry.DocumentID] = true
	}
	for id, entry := range s.collection.entries {
		if documents[entry.DocumentID] && !keep[id] {
			delete(s.collection.entries, id)
		}
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, k int) ([]vectordb.Match, error) {
	s.collection.mux.RLock()
	defer s.collection.mux.RUnlock()
	var matches []vectordb.Match
	for _, entry := range s.collection.entries {
		matches = append(matches, vectordb.Match{
			Entry: entry,
			Score: vectordb.Cosine(vector, entry.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Entry.Seq != matches[j].Entry.Seq {
			return matches[i].Entry.Seq < matches[j].Entry.Seq
		}
		return matches[i].Entry.DocumentID < matches[j].Entry.DocumentID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.collection.mux.RLock()
	defer s.collection.mux.RUnlock()
	return len(s.collection.entries), nil
}

func (s *Store) Model() string {
	return s.model
}

func (s *Store) Close() error {
	return nil
}

type staging struct {
	*Store
	provider *Provider
}

// Commit publishes the staged collection under the provider's name.
func (s *staging) Commit(ctx context.Context) (vectordb.Store, error) {
	reg := s.provider.registry
	reg.mux.Lock()
	reg.collections[s.provider.collection] = s.collection
	reg.mux.Unlock()
	return &Store{collection: s.collection, model: s.model}, nil
}

// Discard drops the staged collection without touching the live one.
func (s *staging) Discard(ctx context.Context) error {
	return nil
}
