package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/shakinm/xlsReader/xls"
	"github.com/shakinm/xlsReader/xls/structure"
	"github.com/viant/agentkb/schema"
)

// normalizeXLS handles the legacy binary workbook format, producing the same
// row-per-document shape as normalizeExcel.
func normalizeXLS(path string, data []byte, extractedAt time.Time) ([]schema.SourceDocument, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	var docs []schema.SourceDocument
	for i := 0; i < wb.GetNumberSheets(); i++ {
		sheet, err := wb.GetSheet(i)
		if err != nil || sheet == nil {
			continue
		}
		rows := sheet.GetRows()
		if len(rows) < 2 {
			continue
		}
		header := xlsRowValues(rows[0].GetCols())
		for r := 1; r < len(rows); r++ {
			rowIdx := r + 1
			text := foldRow(header, xlsRowValues(rows[r].GetCols()))
			if text == "" {
				continue
			}
			docs = append(docs, rowDocument(path, sheet.GetName(), rowIdx, header, text, extractedAt))
		}
	}
	return docs, nil
}

func xlsRowValues(cols []structure.CellData) []string {
	out := make([]string, 0, len(cols))
	for _, col := range cols {
		val := col.GetString()
		if val == "" {
			if num := col.GetFloat64(); num != 0 {
				val = strconv.FormatFloat(num, 'f', -1, 64)
			} else if in := col.GetInt64(); in != 0 {
				val = strconv.FormatInt(in, 10)
			}
		}
		out = append(out, val)
	}
	return out
}
