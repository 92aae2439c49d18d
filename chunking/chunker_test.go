package chunking

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/viant/agentkb/schema"
)

func narrativeDoc(text string) schema.SourceDocument {
	return schema.SourceDocument{
		ID:   "doc/playbook.pdf#page_1",
		Kind: schema.KindNarrative,
		Text: text,
		Meta: &schema.NarrativeMeta{File: "doc/playbook.pdf", PageStart: 1, PageEnd: 1},
	}
}

func tabularDoc(text string) schema.SourceDocument {
	return schema.SourceDocument{
		ID:   "doc/policies.xlsx#Sheet1!r2",
		Kind: schema.KindTabular,
		Text: text,
		Meta: &schema.TabularMeta{File: "doc/policies.xlsx", Sheet: "Sheet1", RowStart: 2, RowEnd: 2},
	}
}

// reconstruct stitches chunks back together by trimming each chunk's overlap
// prefix; the result must equal the original document text byte for byte.
func reconstruct(chunks []schema.Chunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 {
			b.WriteString(chunk.Text)
			continue
		}
		b.WriteString(chunk.Text[chunk.Overlap:])
	}
	return b.String()
}

func TestChunker_CoversFullText(t *testing.T) {
	var lines []string
	for i := 0; i < 120; i++ {
		lines = append(lines, fmt.Sprintf("Fee schedule item %d applies to savings accounts with rate %d.%d percent.", i, i%10, i%7))
	}
	text := strings.Join(lines, "\n")

	chunker := New(Config{MaxTokens: 50, OverlapTokens: 8})
	chunks := chunker.Chunk(narrativeDoc(text))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0].Start != 0 {
		t.Fatalf("first chunk starts at %d, want 0", chunks[0].Start)
	}
	if last := chunks[len(chunks)-1]; last.End != len(text) {
		t.Fatalf("last chunk ends at %d, want %d", last.End, len(text))
	}
	for i, chunk := range chunks {
		if chunk.Seq != i {
			t.Fatalf("chunk %d has seq %d", i, chunk.Seq)
		}
		if chunk.Text != text[chunk.Start:chunk.End] {
			t.Fatalf("chunk %d text does not match its offsets", i)
		}
		if i > 0 && chunks[i-1].End != chunk.Start+chunk.Overlap {
			t.Fatalf("chunk %d leaves a gap: prev end %d, fresh start %d", i, chunks[i-1].End, chunk.Start+chunk.Overlap)
		}
	}
	if got := reconstruct(chunks); got != text {
		t.Fatalf("reconstruction mismatch: got %d bytes, want %d", len(got), len(text))
	}
}

func TestChunker_Deterministic(t *testing.T) {
	text := strings.Repeat("The withdrawal limit resets at midnight. ", 200)
	chunker := New(Config{MaxTokens: 64, OverlapTokens: 16})
	first := chunker.Chunk(narrativeDoc(text))
	second := chunker.Chunk(narrativeDoc(text))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("chunking is not deterministic")
	}
}

func TestChunker_ShortDocumentSingleChunk(t *testing.T) {
	text := "Customer question: What is the refund window?\nCustomer answer: 30 days."
	chunks := New(Config{}).Chunk(tabularDoc(text))
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	chunk := chunks[0]
	if chunk.Text != text || chunk.Start != 0 || chunk.End != len(text) {
		t.Fatalf("unexpected chunk bounds: %+v", chunk)
	}
	if chunk.Overlap != 0 || chunk.Truncated {
		t.Fatalf("single chunk should have no overlap and no truncation: %+v", chunk)
	}
	if got, want := chunk.ID(), "doc/policies.xlsx#Sheet1!r2#0000"; got != want {
		t.Fatalf("chunk id %q, want %q", got, want)
	}
}

func TestChunker_OversizeUnitTruncated(t *testing.T) {
	// One row far above the token budget, no newline or sentence boundary.
	text := strings.TrimSpace(strings.Repeat("clause ", 120))
	chunks := New(Config{MaxTokens: 40, OverlapTokens: 5}).Chunk(tabularDoc(text))
	if len(chunks) < 2 {
		t.Fatalf("expected hard split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if !chunk.Truncated {
			t.Fatalf("chunk %d should be flagged truncated", i)
		}
	}
	if got := reconstruct(chunks); got != text {
		t.Fatalf("reconstruction mismatch after hard split")
	}
}

func TestChunker_TabularRowsStayWhole(t *testing.T) {
	var rows []string
	for i := 0; i < 40; i++ {
		rows = append(rows, fmt.Sprintf("Policy: rule %d\nValue: limit %d applies. Also see appendix.", i, i*100))
	}
	text := strings.Join(rows, "\n")
	chunks := New(Config{MaxTokens: 30, OverlapTokens: 0}).Chunk(tabularDoc(text))
	for i, chunk := range chunks {
		if chunk.Truncated {
			t.Fatalf("chunk %d truncated although every row fits the budget", i)
		}
		// Fresh text always starts at a line boundary for tabular documents.
		if start := chunk.Start + chunk.Overlap; start > 0 && text[start-1] != '\n' {
			t.Fatalf("chunk %d splits a row mid-line at byte %d", i, start)
		}
	}
}

func TestChunker_EmptyDocument(t *testing.T) {
	if chunks := New(Config{}).Chunk(narrativeDoc("   \n\t ")); chunks != nil {
		t.Fatalf("expected no chunks for whitespace-only text, got %d", len(chunks))
	}
}

func TestNew_ClampsOverlap(t *testing.T) {
	chunker := New(Config{MaxTokens: 20, OverlapTokens: 30})
	if chunker.cfg.OverlapTokens != 5 {
		t.Fatalf("overlap not clamped: %d", chunker.cfg.OverlapTokens)
	}
}
