package schema

import (
	"fmt"
	"time"
)

// SourceKind identifies the shape of a source document.
type SourceKind string

const (
	// KindTabular marks spreadsheet-derived documents (one logical row each).
	KindTabular SourceKind = "tabular"
	// KindNarrative marks prose documents (one page or section each).
	KindNarrative SourceKind = "narrative"
)

// Valid reports whether the kind is one of the known variants.
func (k SourceKind) Valid() bool {
	return k == KindTabular || k == KindNarrative
}

// SourceDocument is a normalized text record extracted from a source file.
// It is immutable once created; re-ingestion regenerates it.
type SourceDocument struct {
	ID          string     // source path + locator, stable across rebuilds
	Path        string     // source file path
	Locator     string     // sheet/row or page locator within the file
	Kind        SourceKind // tabular | narrative
	Text        string     // normalized text
	Meta        ChunkMeta  // source-kind specific provenance
	ExtractedAt time.Time
}

// ChunkMeta is the tagged provenance variant attached to chunks. Exactly one
// concrete type exists per source kind so downstream code can switch on it
// exhaustively.
type ChunkMeta interface {
	Kind() SourceKind
	Source() string
}

// TabularMeta describes spreadsheet provenance.
type TabularMeta struct {
	File     string   `json:"file"`
	Sheet    string   `json:"sheet"`
	RowStart int      `json:"row_start"`
	RowEnd   int      `json:"row_end"`
	Columns  []string `json:"columns,omitempty"`
}

// Kind returns the tabular source kind.
func (m *TabularMeta) Kind() SourceKind { return KindTabular }

// Source returns the owning file path.
func (m *TabularMeta) Source() string { return m.File }

// NarrativeMeta describes PDF/prose provenance.
type NarrativeMeta struct {
	File      string `json:"file"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Heading   string `json:"heading,omitempty"`
}

// Kind returns the narrative source kind.
func (m *NarrativeMeta) Kind() SourceKind { return KindNarrative }

// Source returns the owning file path.
func (m *NarrativeMeta) Source() string { return m.File }

// Chunk is a bounded passage of a SourceDocument's normalized text, the
// atomic unit of retrieval. Start/End are byte offsets into the document
// text; Overlap is the byte length of the prefix shared with the previous
// chunk. Concatenating Text[Overlap:] over a document's chunks reconstructs
// the normalized text exactly.
type Chunk struct {
	DocumentID string
	Seq        int
	Start      int
	End        int
	Overlap    int
	Text       string
	Truncated  bool // a single logical unit exceeded the token budget and was hard-split
	Meta       ChunkMeta
}

// ID returns the stable chunk identity (document_id, sequence_index).
func (c *Chunk) ID() string {
	return fmt.Sprintf("%s#%04d", c.DocumentID, c.Seq)
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk
	Score float32 // cosine similarity in [-1, 1]
}

// RetrievalResult is a score-descending ranked sequence of retrieved chunks.
type RetrievalResult []ScoredChunk

// Empty reports whether no evidence cleared retrieval.
func (r RetrievalResult) Empty() bool { return len(r) == 0 }

// Best returns the top-ranked chunk, or nil when empty.
func (r RetrievalResult) Best() *ScoredChunk {
	if len(r) == 0 {
		return nil
	}
	return &r[0]
}
