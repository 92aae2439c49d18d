package vectordb

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/viant/agentkb/schema"
)

type chunkMeta struct {
	Start     int                   `json:"start"`
	End       int                   `json:"end"`
	Overlap   int                   `json:"overlap"`
	Truncated bool                  `json:"truncated,omitempty"`
	Kind      schema.SourceKind     `json:"kind"`
	Tabular   *schema.TabularMeta   `json:"tabular,omitempty"`
	Narrative *schema.NarrativeMeta `json:"narrative,omitempty"`
}

// EncodeChunk converts a chunk and its vector into a persistable entry.
func EncodeChunk(chunk schema.Chunk, vector []float32) (Entry, error) {
	meta := chunkMeta{
		Start:     chunk.Start,
		End:       chunk.End,
		Overlap:   chunk.Overlap,
		Truncated: chunk.Truncated,
	}
	switch m := chunk.Meta.(type) {
	case *schema.TabularMeta:
		meta.Kind = schema.KindTabular
		meta.Tabular = m
	case *schema.NarrativeMeta:
		meta.Kind = schema.KindNarrative
		meta.Narrative = m
	default:
		return Entry{}, fmt.Errorf("chunk %s: unsupported meta type %T", chunk.ID(), chunk.Meta)
	}
	data, err := json.Marshal(&meta)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:         chunk.ID(),
		DocumentID: chunk.DocumentID,
		Seq:        chunk.Seq,
		Kind:       meta.Kind,
		Content:    chunk.Text,
		Meta:       string(data),
		Vector:     vector,
	}, nil
}

// DecodeChunk reconstructs a chunk from a persisted entry.
func DecodeChunk(entry Entry) (schema.Chunk, error) {
	var meta chunkMeta
	if err := json.Unmarshal([]byte(entry.Meta), &meta); err != nil {
		return schema.Chunk{}, fmt.Errorf("entry %s: decode meta: %w", entry.ID, err)
	}
	chunk := schema.Chunk{
		DocumentID: entry.DocumentID,
		Seq:        entry.Seq,
		Start:      meta.Start,
		End:        meta.End,
		Overlap:    meta.Overlap,
		Text:       entry.Content,
		Truncated:  meta.Truncated,
	}
	switch meta.Kind {
	case schema.KindTabular:
		chunk.Meta = meta.Tabular
	case schema.KindNarrative:
		chunk.Meta = meta.Narrative
	default:
		return schema.Chunk{}, fmt.Errorf("entry %s: unknown meta kind %q", entry.ID, meta.Kind)
	}
	return chunk, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either is
// empty or all-zero.
func Cosine(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
