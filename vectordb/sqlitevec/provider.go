package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/viant/agentkb/vectordb"
	"github.com/viant/sqlite-vec/engine"
	"github.com/viant/sqlite-vec/vec"
)

const stagingSuffix = ".staging"

var (
	dbMu     sync.Mutex
	dbByPath = map[string]*collectionDB{}
	vecBound bool
)

type collectionDB struct {
	db  *sql.DB
	vec bool
}

// sharedDB returns the process-wide handle for the collection at path,
// opening it on first use. The vec virtual-table registration is global to
// the sqlite driver and captures the handle it was registered with, so the
// handle is never closed and only the first-registered database serves
// MATCH queries; every other one scores in process.
func sharedDB(ctx context.Context, path string) (*collectionDB, error) {
	dbMu.Lock()
	defer dbMu.Unlock()
	if entry, ok := dbByPath[path]; ok {
		return entry, nil
	}
	db, err := engine.Open(collectionDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	entry := &collectionDB{db: db}
	if !vecBound {
		if err := vec.Register(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		vecBound = true
		entry.vec = true
	}
	dbByPath[path] = entry
	return entry, nil
}

// Provider manages one named sqlite-vec collection on disk. Live and staged
// state share one database; staging writes under a shadow dataset that
// Commit flips over the live one in a single transaction.
type Provider struct {
	path       string
	collection string
	model      string
}

// NewProvider creates a provider for the collection stored at path, bound
// to the given embedding model version.
func NewProvider(path, collection, model string) (*Provider, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlitevec: collection path is required")
	}
	if collection == "" {
		collection = "default"
	}
	if model == "" {
		return nil, fmt.Errorf("sqlitevec: embedding model is required")
	}
	return &Provider{path: path, collection: collection, model: model}, nil
}

// Exists reports whether a committed collection is present. The database
// file alone is not enough: staging creates it before any commit, so the
// collection counts as existing only once its model pin row is there.
func (p *Provider) Exists(ctx context.Context) (bool, error) {
	if _, err := os.Stat(p.path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	entry, err := sharedDB(ctx, p.path)
	if err != nil {
		return false, err
	}
	var name string
	err = entry.db.QueryRowContext(ctx, `SELECT name FROM kb_collection WHERE name = ?`, p.collection).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Open loads the persisted collection.
func (p *Provider) Open(ctx context.Context) (vectordb.Store, error) {
	entry, err := sharedDB(ctx, p.path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: entry.db, dataset: p.collection, model: p.model, vec: entry.vec}
	if err := store.pinModel(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// Stage prepares an empty staging dataset inside the collection database,
// clearing anything a crashed build left behind. Staged entries become
// visible only on Commit.
func (p *Provider) Stage(ctx context.Context) (vectordb.Staging, error) {
	entry, err := sharedDB(ctx, p.path)
	if err != nil {
		return nil, err
	}
	dataset := p.collection + stagingSuffix
	if _, err := entry.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE dataset_id = ?`, shadow), dataset); err != nil {
		return nil, fmt.Errorf("clear staging: %w", err)
	}
	return &staging{
		Store:    &Store{db: entry.db, dataset: dataset, model: p.model, vec: entry.vec},
		provider: p,
	}, nil
}

type staging struct {
	*Store
	provider *Provider
}

// Commit flips the staged dataset over the live one in one transaction and
// returns a store bound to the committed state.
func (s *staging) Commit(ctx context.Context) (vectordb.Store, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	live := s.provider.collection
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE dataset_id = ?`, shadow), live); err != nil {
		return nil, fmt.Errorf("swap collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET dataset_id = ? WHERE dataset_id = ?`, shadow), live, s.dataset); err != nil {
		return nil, fmt.Errorf("swap collection: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO kb_collection(name, embedding_model, built_at) VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(name) DO UPDATE SET embedding_model = excluded.embedding_model, built_at = CURRENT_TIMESTAMP`, live, s.model); err != nil {
		return nil, fmt.Errorf("pin model: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("swap collection: %w", err)
	}
	_ = s.Store.Close()
	return s.provider.Open(ctx)
}

// Discard drops the staged dataset, leaving the live collection untouched.
func (s *staging) Discard(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE dataset_id = ?`, shadow), s.dataset)
	_ = s.Store.Close()
	return err
}
