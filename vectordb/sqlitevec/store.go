// Package sqlitevec persists the vector collection in SQLite with the vec
// virtual-table extension, falling back to an in-process cosine scan when
// the extension is unavailable.
package sqlitevec

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/viant/agentkb/schema"
	"github.com/viant/agentkb/vectordb"
	"github.com/viant/sqlite-vec/vector"
)

const (
	vtable = "kb_chunks"
	shadow = "_vec_kb_chunks"
)

// Store is a sqlite-vec backed vectordb.Store over one dataset of the
// shared collection database. Live and staged state are datasets of the
// same database, so the handle the vec module is bound to never changes.
type Store struct {
	db      *sql.DB
	dataset string
	model   string
	vec     bool
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kb_collection (
			name            TEXT PRIMARY KEY,
			embedding_model TEXT NOT NULL,
			built_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			dataset_id  TEXT NOT NULL,
			id          TEXT NOT NULL,
			document_id TEXT NOT NULL,
			seq         INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			content     TEXT,
			meta        TEXT,
			embedding   BLOB,
			PRIMARY KEY (dataset_id, id)
		);`, shadow),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec(doc_id);`, vtable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_document ON %s(dataset_id, document_id, seq);`, vtable, shadow),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_kind ON %s(dataset_id, kind);`, vtable, shadow),
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// pinModel records the embedding model version on first use and fails fast
// when the persisted dataset was built under a different one.
func (s *Store) pinModel(ctx context.Context) error {
	var got string
	err := s.db.QueryRowContext(ctx, `SELECT embedding_model FROM kb_collection WHERE name = ?`, s.dataset).Scan(&got)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx, `INSERT INTO kb_collection(name, embedding_model) VALUES(?, ?)`, s.dataset, s.model)
		return err
	case err != nil:
		return err
	case got != s.model:
		return &vectordb.ModelMismatchError{Collection: s.dataset, Want: s.model, Got: got}
	}
	return nil
}

// Model returns the embedding model version the dataset is bound to.
func (s *Store) Model() string { return s.model }

// Close detaches the store. The database handle is shared per collection
// path and stays open for the life of the process; see sharedDB.
func (s *Store) Close() error {
	s.db = nil
	return nil
}

// Upsert inserts entries, replacing any existing entry with the same ID.
// Chunks of the batch's documents that are absent from the batch are
// dropped, so a document that shrank does not keep stale chunks live.
func (s *Store) Upsert(ctx context.Context, entries []vectordb.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(dataset_id, id, document_id, seq, kind, content, meta, embedding)
VALUES(?,?,?,?,?,?,?,?)
ON CONFLICT(dataset_id, id) DO UPDATE SET
	document_id=excluded.document_id,
	seq=excluded.seq,
	kind=excluded.kind,
	content=excluded.content,
	meta=excluded.meta,
	embedding=excluded.embedding`, shadow))
	if err != nil {
		return err
	}
	defer stmt.Close()
	byDocument := map[string][]any{}
	var documents []string
	for _, entry := range entries {
		blob, err := vector.EncodeEmbedding(entry.Vector)
		if err != nil {
			return fmt.Errorf("encode embedding %s: %w", entry.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, s.dataset, entry.ID, entry.DocumentID, entry.Seq, string(entry.Kind), entry.Content, entry.Meta, blob); err != nil {
			return fmt.Errorf("upsert %s: %w", entry.ID, err)
		}
		if _, seen := byDocument[entry.DocumentID]; !seen {
			documents = append(documents, entry.DocumentID)
		}
		byDocument[entry.DocumentID] = append(byDocument[entry.DocumentID], entry.ID)
	}
	for _, documentID := range documents {
		ids := byDocument[documentID]
		placeholders := strings.TrimPrefix(strings.Repeat(",?", len(ids)), ",")
		args := append([]any{s.dataset, documentID}, ids...)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE dataset_id = ? AND document_id = ? AND id NOT IN (%s)`, shadow, placeholders), args...); err != nil {
			return fmt.Errorf("prune %s: %w", documentID, err)
		}
	}
	return tx.Commit()
}

// Search returns up to k entries by descending cosine similarity, using the
// vec virtual table when this database is the one the module is bound to.
func (s *Store) Search(ctx context.Context, queryVector []float32, k int) ([]vectordb.Match, error) {
	if k <= 0 {
		k = 10
	}
	if !s.vec {
		return s.fallbackSearch(ctx, queryVector, k)
	}
	blob, err := vector.EncodeEmbedding(queryVector)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT d.id, d.document_id, d.seq, d.kind, d.content, d.meta, v.match_score
FROM %s v
JOIN %s d ON d.dataset_id = v.dataset_id AND d.id = v.doc_id
WHERE v.dataset_id = ?
  AND v.doc_id MATCH ?
ORDER BY v.match_score DESC
LIMIT ?`, vtable, shadow)
	rows, err := s.db.QueryContext(ctx, query, s.dataset, blob, k)
	if err != nil && isNoVecModule(err) {
		return s.fallbackSearch(ctx, queryVector, k)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []vectordb.Match
	for rows.Next() {
		var m vectordb.Match
		var kind string
		var score float64
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Seq, &kind, &m.Content, &m.Meta, &score); err != nil {
			return nil, err
		}
		m.Kind = schema.SourceKind(kind)
		m.Score = float32(score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// fallbackSearch scans the shadow table and scores in process.
func (s *Store) fallbackSearch(ctx context.Context, queryVector []float32, k int) ([]vectordb.Match, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, document_id, seq, kind, content, meta, embedding FROM %s WHERE dataset_id = ?`, shadow), s.dataset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []vectordb.Match
	for rows.Next() {
		var m vectordb.Match
		var kind string
		var blob []byte
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.Seq, &kind, &m.Content, &m.Meta, &blob); err != nil {
			return nil, err
		}
		stored, err := vector.DecodeEmbedding(blob)
		if err != nil {
			continue
		}
		m.Kind = schema.SourceKind(kind)
		m.Score = vectordb.Cosine(queryVector, stored)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Seq != matches[j].Seq {
			return matches[i].Seq < matches[j].Seq
		}
		return matches[i].DocumentID < matches[j].DocumentID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func isNoVecModule(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such module: vec") ||
		strings.Contains(msg, "no such table: "+vtable) ||
		strings.Contains(msg, "unable to use function MATCH")
}

// Count returns the number of entries in the dataset.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE dataset_id = ?`, shadow), s.dataset).Scan(&count)
	return count, err
}
