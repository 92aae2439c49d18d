package sqlitevec

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/viant/agentkb/schema"
	"github.com/viant/agentkb/vectordb"
)

func chunkEntry(documentID string, seq int, vector ...float32) vectordb.Entry {
	return vectordb.Entry{
		ID:         fmt.Sprintf("%s#%04d", documentID, seq),
		DocumentID: documentID,
		Seq:        seq,
		Kind:       schema.KindTabular,
		Content:    fmt.Sprintf("%s chunk %d", documentID, seq),
		Vector:     vector,
	}
}

func buildLive(t *testing.T, provider *Provider, entries []vectordb.Entry) vectordb.Store {
	t.Helper()
	ctx := context.Background()
	stage, err := provider.Stage(ctx)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := stage.Upsert(ctx, entries); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	store, err := stage.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return store
}

func TestProvider_StageCommitSearch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")
	provider, err := NewProvider(path, "kb", "model-v1")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if ok, err := provider.Exists(ctx); err != nil || ok {
		t.Fatalf("collection must not exist before first commit: ok=%v err=%v", ok, err)
	}

	store := buildLive(t, provider, []vectordb.Entry{
		chunkEntry("alpha", 0, 1, 0, 0),
		chunkEntry("beta", 0, 0, 1, 0),
	})
	if count, err := store.Count(ctx); err != nil || count != 2 {
		t.Fatalf("Count after commit: count=%d err=%v", count, err)
	}
	matches, err := store.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatalf("Search on committed store: %v", err)
	}
	if len(matches) != 1 || matches[0].DocumentID != "alpha" {
		t.Fatalf("unexpected matches: %+v", matches)
	}
	if ok, err := provider.Exists(ctx); err != nil || !ok {
		t.Fatalf("collection must exist after commit: ok=%v err=%v", ok, err)
	}

	reopened, err := provider.Open(ctx)
	if err != nil {
		t.Fatalf("Open after commit: %v", err)
	}
	matches, err = reopened.Search(ctx, []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search on reopened store: %v", err)
	}
	if len(matches) != 1 || matches[0].DocumentID != "beta" {
		t.Fatalf("unexpected matches after reopen: %+v", matches)
	}
}

func TestProvider_DiscardKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")
	provider, err := NewProvider(path, "kb", "model-v1")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	buildLive(t, provider, []vectordb.Entry{
		chunkEntry("alpha", 0, 1, 0, 0),
		chunkEntry("beta", 0, 0, 1, 0),
	})

	stage, err := provider.Stage(ctx)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := stage.Upsert(ctx, []vectordb.Entry{chunkEntry("gamma", 0, 0, 0, 1)}); err != nil {
		t.Fatalf("staged Upsert: %v", err)
	}
	if err := stage.Discard(ctx); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	store, err := provider.Open(ctx)
	if err != nil {
		t.Fatalf("Open after discard: %v", err)
	}
	if count, err := store.Count(ctx); err != nil || count != 2 {
		t.Fatalf("discard touched the live collection: count=%d err=%v", count, err)
	}
	matches, err := store.Search(ctx, []float32{0, 0, 1}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, match := range matches {
		if match.DocumentID == "gamma" {
			t.Fatalf("discarded entry is visible: %+v", match)
		}
	}
}

func TestProvider_AbandonedStagingInvisible(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")
	provider, err := NewProvider(path, "kb", "model-v1")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	buildLive(t, provider, []vectordb.Entry{chunkEntry("alpha", 0, 1, 0, 0)})

	// A build that dies mid-way leaves staged rows with neither Commit
	// nor Discard. They must stay invisible and the next Stage starts clean.
	abandoned, err := provider.Stage(ctx)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if err := abandoned.Upsert(ctx, []vectordb.Entry{chunkEntry("zeta", 0, 0, 1, 0)}); err != nil {
		t.Fatalf("staged Upsert: %v", err)
	}

	live, err := provider.Open(ctx)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if count, err := live.Count(ctx); err != nil || count != 1 {
		t.Fatalf("abandoned staging leaked into live state: count=%d err=%v", count, err)
	}

	next, err := provider.Stage(ctx)
	if err != nil {
		t.Fatalf("second Stage: %v", err)
	}
	if count, err := next.Count(ctx); err != nil || count != 0 {
		t.Fatalf("second Stage not empty: count=%d err=%v", count, err)
	}
	if err := next.Upsert(ctx, []vectordb.Entry{chunkEntry("beta", 0, 0, 0, 1)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	store, err := next.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	matches, err := store.Search(ctx, []float32{0, 0, 1}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].DocumentID != "beta" {
		t.Fatalf("unexpected live state after rebuild: %+v", matches)
	}
}

func TestProvider_ModelMismatchOnReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")
	provider, err := NewProvider(path, "kb", "model-v1")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	buildLive(t, provider, []vectordb.Entry{chunkEntry("alpha", 0, 1, 0, 0)})

	other, err := NewProvider(path, "kb", "model-v2")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	_, err = other.Open(ctx)
	var mismatch *vectordb.ModelMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ModelMismatchError, got %v", err)
	}
	if mismatch.Want != "model-v2" || mismatch.Got != "model-v1" {
		t.Fatalf("unexpected mismatch detail: %+v", mismatch)
	}
}

func TestStore_UpsertPrunesShrunkenDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kb.db")
	provider, err := NewProvider(path, "kb", "model-v1")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	store := buildLive(t, provider, []vectordb.Entry{
		chunkEntry("doc", 0, 1, 0, 0),
		chunkEntry("doc", 1, 0, 1, 0),
		chunkEntry("doc", 2, 0, 0, 1),
		chunkEntry("other", 0, 1, 1, 0),
	})

	// Re-ingesting a document that shrank must drop its trailing chunks
	// while leaving unrelated documents alone.
	if err := store.Upsert(ctx, []vectordb.Entry{
		chunkEntry("doc", 0, 1, 0, 0),
		chunkEntry("doc", 1, 0, 1, 0),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if count, err := store.Count(ctx); err != nil || count != 3 {
		t.Fatalf("stale chunk not pruned: count=%d err=%v", count, err)
	}
	matches, err := store.Search(ctx, []float32{0, 0, 1}, 4)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, match := range matches {
		if match.ID == "doc#0002" {
			t.Fatalf("pruned chunk still searchable: %+v", match)
		}
	}
}
