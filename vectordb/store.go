// Package vectordb defines persistence contracts for the vector collection:
// entry storage, nearest-neighbour search, and the staging/commit protocol
// that keeps rebuilds atomic.
package vectordb

import (
	"context"

	"github.com/viant/agentkb/schema"
)

// Entry is the persisted (chunk_id, vector, metadata) triple. Exactly one
// live entry exists per ID; upserting an existing ID replaces it.
type Entry struct {
	ID         string
	DocumentID string
	Seq        int
	Kind       schema.SourceKind
	Content    string
	Meta       string // JSON-encoded chunk bounds and tagged provenance
	Vector     []float32
}

// Match pairs a stored entry with its similarity score.
type Match struct {
	Entry
	Score float32
}

// Store persists entries for one collection.
type Store interface {
	// Upsert inserts entries, replacing any existing entry with the same ID
	// and dropping stale entries of the documents present in the batch.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to k entries by descending cosine similarity.
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	// Count returns the number of live entries.
	Count(ctx context.Context) (int, error)
	// Model returns the embedding model version the collection is bound to.
	Model() string
	Close() error
}

// Staging is a not-yet-visible candidate collection built during rebuild.
// Either Commit or Discard must be called; readers never observe its state
// before Commit.
type Staging interface {
	Store
	// Commit atomically replaces the live collection with the staged one and
	// returns the newly opened live store.
	Commit(ctx context.Context) (Store, error)
	// Discard drops the staged state, leaving any live collection untouched.
	Discard(ctx context.Context) error
}

// Provider owns the lifecycle of one named collection.
type Provider interface {
	// Exists reports whether persisted state is present.
	Exists(ctx context.Context) (bool, error)
	// Open loads the existing persisted collection; it fails fast with
	// ModelMismatchError when the collection was built under a different
	// embedding model version.
	Open(ctx context.Context) (Store, error)
	// Stage creates an empty staging collection for an atomic rebuild.
	Stage(ctx context.Context) (Staging, error)
}
