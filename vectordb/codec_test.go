package vectordb

import (
	"math"
	"testing"

	"github.com/viant/agentkb/schema"
)

func TestEncodeDecodeChunk(t *testing.T) {
	chunk := schema.Chunk{
		DocumentID: "kb/policies.xlsx#Sheet1!r2",
		Seq:        3,
		Start:      120,
		End:        480,
		Overlap:    24,
		Text:       "Policy: Refund Window\nValue: 30 days",
		Truncated:  true,
		Meta: &schema.TabularMeta{
			File:     "kb/policies.xlsx",
			Sheet:    "Sheet1",
			RowStart: 2,
			RowEnd:   2,
			Columns:  []string{"Policy", "Value"},
		},
	}
	entry, err := EncodeChunk(chunk, []float32{0.1, 0.2})
	if err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	if entry.ID != chunk.ID() || entry.Kind != schema.KindTabular {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	decoded, err := DecodeChunk(entry)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if decoded.DocumentID != chunk.DocumentID || decoded.Seq != chunk.Seq ||
		decoded.Start != chunk.Start || decoded.End != chunk.End ||
		decoded.Overlap != chunk.Overlap || !decoded.Truncated ||
		decoded.Text != chunk.Text {
		t.Fatalf("roundtrip mismatch: %+v", decoded)
	}
	meta, ok := decoded.Meta.(*schema.TabularMeta)
	if !ok {
		t.Fatalf("unexpected meta type %T", decoded.Meta)
	}
	if meta.Sheet != "Sheet1" || meta.RowStart != 2 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}

func TestEncodeChunk_UnknownMeta(t *testing.T) {
	if _, err := EncodeChunk(schema.Chunk{DocumentID: "x"}, nil); err == nil {
		t.Fatalf("expected error for missing meta")
	}
}

func TestDecodeChunk_BadMeta(t *testing.T) {
	if _, err := DecodeChunk(Entry{ID: "x", Meta: "{not json"}); err == nil {
		t.Fatalf("expected error for invalid meta json")
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tc := range tests {
		if got := Cosine(tc.a, tc.b); math.Abs(float64(got-tc.want)) > 1e-6 {
			t.Fatalf("%s: Cosine = %v, want %v", tc.name, got, tc.want)
		}
	}
}
