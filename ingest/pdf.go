package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/viant/agentkb/schema"
)

// normalizePDF emits one SourceDocument per page that carries usable English
// text. Playbook PDFs repeat a translated CJK block at the bottom of each
// page; extraction stops once that block starts.
func normalizePDF(path string, data []byte, extractedAt time.Time) ([]schema.SourceDocument, error) {
	heading := headingFromFileName(path)
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if doc, ok := printableFallback(path, data, heading, extractedAt); ok {
			return []schema.SourceDocument{doc}, nil
		}
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var docs []schema.SourceDocument
	for pageNo := 1; pageNo <= reader.NumPage(); pageNo++ {
		page := reader.Page(pageNo)
		if page.V.IsNull() {
			continue
		}
		raw, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text := extractEnglishBlock(normalizeWhitespace(raw))
		if text == "" {
			continue
		}
		locator := fmt.Sprintf("page_%d", pageNo)
		docs = append(docs, schema.SourceDocument{
			ID:      path + "#" + locator,
			Path:    path,
			Locator: locator,
			Kind:    schema.KindNarrative,
			Text:    text,
			Meta: &schema.NarrativeMeta{
				File:      path,
				PageStart: pageNo,
				PageEnd:   pageNo,
				Heading:   heading,
			},
			ExtractedAt: extractedAt,
		})
	}
	if len(docs) == 0 {
		if doc, ok := printableFallback(path, data, heading, extractedAt); ok {
			return []schema.SourceDocument{doc}, nil
		}
		return nil, fmt.Errorf("no extractable text")
	}
	return docs, nil
}

// printableFallback salvages text from PDFs the parser cannot handle by
// keeping printable runs from the raw bytes. Applied only to files with a
// PDF header that yield a substantial amount of text.
func printableFallback(path string, data []byte, heading string, extractedAt time.Time) (schema.SourceDocument, bool) {
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return schema.SourceDocument{}, false
	}
	text := extractEnglishBlock(normalizeWhitespace(printableText(data)))
	if len(text) < 64 {
		return schema.SourceDocument{}, false
	}
	return schema.SourceDocument{
		ID:      path + "#page_1",
		Path:    path,
		Locator: "page_1",
		Kind:    schema.KindNarrative,
		Text:    text,
		Meta: &schema.NarrativeMeta{
			File:      path,
			PageStart: 1,
			PageEnd:   1,
			Heading:   heading,
		},
		ExtractedAt: extractedAt,
	}, true
}

func printableText(data []byte) string {
	var b strings.Builder
	for _, r := range string(data) {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(r)
		case r >= 32 && r < 127:
			b.WriteRune(r)
		case r > 127 && r != 0xFFFD:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeText handles plain-text or markdown playbook exports as a single
// narrative document.
func normalizeText(path string, data []byte, extractedAt time.Time) ([]schema.SourceDocument, error) {
	text := normalizeWhitespace(string(data))
	if text == "" {
		return nil, fmt.Errorf("empty document")
	}
	heading := firstMarkdownHeading(text)
	if heading == "" {
		heading = headingFromFileName(path)
	}
	return []schema.SourceDocument{
		{
			ID:      path + "#page_1",
			Path:    path,
			Locator: "page_1",
			Kind:    schema.KindNarrative,
			Text:    text,
			Meta: &schema.NarrativeMeta{
				File:      path,
				PageStart: 1,
				PageEnd:   1,
				Heading:   heading,
			},
			ExtractedAt: extractedAt,
		},
	}, nil
}

// extractEnglishBlock keeps the English section of a page. Collection starts
// at the first line containing Latin letters and stops when a CJK line is
// seen after collection started.
func extractEnglishBlock(pageText string) string {
	var kept []string
	started := false
	for _, line := range strings.Split(pageText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if started {
				kept = append(kept, "")
			}
			continue
		}
		if hasCJK(line) {
			if started {
				break
			}
			continue
		}
		if !started && hasLatin(line) {
			started = true
		}
		if started {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func hasCJK(line string) bool {
	for _, r := range line {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}

func hasLatin(line string) bool {
	for _, r := range line {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// normalizeWhitespace fixes extraction artifacts: CRLF line endings,
// end-of-line hyphenation, tab and space runs, and excess blank lines.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "-\n", "")
	var b strings.Builder
	blankRun := 0
	for _, line := range strings.Split(text, "\n") {
		line = collapseSpaces(line)
		if line == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
		} else {
			blankRun = 0
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func collapseSpaces(line string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range line {
		if unicode.IsSpace(r) {
			inSpace = true
			continue
		}
		if inSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// headingFromFileName derives a section heading from a playbook file name,
// e.g. "6. Terms and Conditions for Savings.pdf" -> "Savings".
func headingFromFileName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := base
	if idx := strings.Index(name, ". "); idx != -1 {
		name = name[idx+2:]
	}
	name = strings.TrimPrefix(name, "Terms and Conditions for ")
	name = strings.TrimSpace(name)
	if name == "" {
		return base
	}
	return name
}

func firstMarkdownHeading(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}
