// Package report renders batch processing results as an XLSX workbook.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/scan-classifier/internal/core/domain"
)

const sheetName = "Documents"

var header = []any{
	"File", "Status", "Document type", "Confidence", "Pages processed",
	"Text length", "Extraction", "Structured data", "Error",
}

// Row is one processed file. Exactly one of Result and Err is set.
type Row struct {
	Path   string
	Result *domain.ProcessResult
	Err    error
}

func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := rowValues(row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	if err := f.SetColWidth(sheetName, "A", "A", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "H", "H", 60); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func rowValues(row Row) []any {
	if row.Err != nil || row.Result == nil {
		msg := "no result"
		if row.Err != nil {
			msg = domain.Stage(row.Err) + ": " + row.Err.Error()
		}
		return []any{row.Path, "failed", "", "", "", "", "", "", msg}
	}

	res := row.Result
	structured := ""
	if len(res.StructuredData) > 0 {
		if data, err := json.Marshal(res.StructuredData); err == nil {
			structured = string(data)
		}
	}
	return []any{
		row.Path,
		"ok",
		res.DocumentType,
		res.Confidence,
		res.ProcessingInfo.PagesProcessed,
		res.ProcessingInfo.TextLength,
		string(res.ProcessingInfo.ExtractionStatus),
		structured,
		"",
	}
}
