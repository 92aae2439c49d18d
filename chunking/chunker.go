// Package chunking splits normalized source documents into bounded,
// overlapping passages with stable identity.
package chunking

import (
	"strings"
	"unicode"

	"github.com/viant/agentkb/schema"
)

const (
	defaultMaxTokens     = 400
	defaultOverlapTokens = 40
)

// Config bounds chunk size and overlap, both counted in tokens.
type Config struct {
	MaxTokens     int `yaml:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
}

// Chunker produces deterministic chunk sequences: the same document and
// configuration always yield byte-identical chunks.
type Chunker struct {
	cfg Config
}

// New creates a chunker, applying defaults and clamping a pathological
// overlap below the chunk budget.
func New(cfg Config) *Chunker {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = defaultOverlapTokens
	}
	if cfg.OverlapTokens >= cfg.MaxTokens {
		cfg.OverlapTokens = cfg.MaxTokens / 4
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits the document text into an ordered chunk sequence covering the
// full text with no gaps. Splits land on unit boundaries (rows for tabular
// documents, sentences for narrative ones); a single unit larger than the
// token budget is hard-split and flagged Truncated.
func (c *Chunker) Chunk(doc schema.SourceDocument) []schema.Chunk {
	text := doc.Text
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	unitEnd := unitEnds(text, tokens, doc.Kind)

	var chunks []schema.Chunk
	chunkStart := 0 // first token of the chunk, overlap included
	fresh := 0      // first token not yet covered by any chunk
	midUnit := false
	for fresh < len(tokens) {
		end := fresh
		truncated := midUnit
		for end < len(tokens) {
			ue := unitEnd[end]
			if ue-chunkStart > c.cfg.MaxTokens {
				break
			}
			end = ue
		}
		midUnit = false
		if end == fresh { // single unit exceeds the budget
			end = chunkStart + c.cfg.MaxTokens
			if end > len(tokens) {
				end = len(tokens)
			}
			truncated = true
			midUnit = end < unitEnd[end-1]
		}

		startByte := 0
		if chunkStart > 0 {
			startByte = tokens[chunkStart].start
		}
		endByte := len(text)
		if end < len(tokens) {
			endByte = tokens[end].start
		}
		overlapBytes := 0
		if fresh > chunkStart {
			overlapBytes = tokens[fresh].start - startByte
		}
		chunks = append(chunks, schema.Chunk{
			DocumentID: doc.ID,
			Seq:        len(chunks),
			Start:      startByte,
			End:        endByte,
			Overlap:    overlapBytes,
			Text:       text[startByte:endByte],
			Truncated:  truncated,
			Meta:       doc.Meta,
		})

		fresh = end
		chunkStart = end - c.cfg.OverlapTokens
		if chunkStart < 0 {
			chunkStart = 0
		}
	}
	return chunks
}

type token struct {
	start, end int // byte offsets
}

func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{start: start, end: len(text)})
	}
	return tokens
}

// unitEnds maps each token index to the exclusive token index ending the
// logical unit that contains it. Units never split a tabular row mid-value.
func unitEnds(text string, tokens []token, kind schema.SourceKind) []int {
	ends := make([]int, len(tokens))
	unitStart := 0
	for i := range tokens {
		last := i == len(tokens)-1
		boundary := last
		if !boundary {
			sep := text[tokens[i].end:tokens[i+1].start]
			boundary = strings.ContainsRune(sep, '\n')
		}
		if !boundary && kind == schema.KindNarrative {
			boundary = endsSentence(text[tokens[i].start:tokens[i].end])
		}
		if boundary {
			for j := unitStart; j <= i; j++ {
				ends[j] = i + 1
			}
			unitStart = i + 1
		}
	}
	return ends
}

func endsSentence(word string) bool {
	word = strings.TrimRight(word, `)"'”’`)
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}
