package ingest

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/viant/agentkb/schema"
	"github.com/xuri/excelize/v2"
)

// normalizeExcel turns each populated data row into one SourceDocument with
// column headers folded into the text so a row stays self-describing once it
// is retrieved out of context.
func normalizeExcel(path string, data []byte, extractedAt time.Time) ([]schema.SourceDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	var docs []schema.SourceDocument
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if len(rows) < 2 {
			continue
		}
		header := rows[0]
		for i := 1; i < len(rows); i++ {
			rowIdx := i + 1 // spreadsheet rows are 1-based
			text := foldRow(header, rows[i])
			if text == "" {
				continue
			}
			docs = append(docs, rowDocument(path, sheet, rowIdx, header, text, extractedAt))
		}
	}
	return docs, nil
}

func rowDocument(path, sheet string, rowIdx int, header []string, text string, extractedAt time.Time) schema.SourceDocument {
	locator := fmt.Sprintf("%s!r%d", sheet, rowIdx)
	return schema.SourceDocument{
		ID:      path + "#" + locator,
		Path:    path,
		Locator: locator,
		Kind:    schema.KindTabular,
		Text:    text,
		Meta: &schema.TabularMeta{
			File:     path,
			Sheet:    sheet,
			RowStart: rowIdx,
			RowEnd:   rowIdx,
			Columns:  append([]string(nil), header...),
		},
		ExtractedAt: extractedAt,
	}
}

// foldRow renders a knowledge-base row as "Field: Value" lines. Well-known
// column names get the canonical labels the answer templates refer to.
func foldRow(header, row []string) string {
	var parts []string
	for col := 0; col < len(row); col++ {
		value := strings.TrimSpace(row[col])
		if value == "" {
			continue
		}
		name := ""
		if col < len(header) {
			name = strings.TrimSpace(header[col])
		}
		parts = append(parts, foldCell(name, value))
	}
	return strings.Join(parts, "\n")
}

func foldCell(column, value string) string {
	lower := strings.ToLower(column)
	switch {
	case strings.Contains(lower, "question"):
		return "Customer question: " + value
	case strings.Contains(lower, "answer"):
		return "Customer answer: " + value
	case strings.Contains(lower, "internal"):
		return "Internal notes: " + value
	case strings.Contains(lower, "step"):
		return "Steps: " + value
	case column == "":
		return value
	default:
		return column + ": " + value
	}
}
