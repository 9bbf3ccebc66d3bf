package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/productscan/internal/model"
)

// Sheet names of the Excel workbook.
const (
	SummarySheet  = "Summary"
	ProductsSheet = "Products"
)

// ExcelWriter outputs the run report as an .xlsx workbook with a summary
// sheet (one row per site) and a products sheet (one row per product URL).
type ExcelWriter struct {
	baseWriter
}

// NewExcelWriter creates an ExcelWriter that outputs to the given writer.
func NewExcelWriter(output io.Writer) *ExcelWriter {
	return &ExcelWriter{baseWriter: newBaseWriter(output)}
}

// Write builds the workbook and writes it to the output.
func (w *ExcelWriter) Write(report *model.RunReport) (int, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close() //nolint:errcheck // in-memory workbook
	}()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return 0, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ProductsSheet); err != nil {
		return 0, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("failed to create style: %w", err)
	}

	summary := [][]any{{"Site", "Key", "Products", "Visited", "Render Attempts", "Render Failures", "Duration (s)", "Error"}}
	for _, site := range report.Sites {
		summary = append(summary, []any{
			site.URL,
			site.SiteKey,
			len(site.Products),
			site.Visited,
			site.RenderAttempts,
			site.RenderFailures,
			site.Duration.Seconds(),
			site.Error,
		})
	}
	if err := writeRows(f, SummarySheet, summary, headerStyle); err != nil {
		return 0, err
	}

	products := [][]any{{"Site", "Product URL"}}
	for _, site := range report.Sites {
		for _, u := range site.Products {
			products = append(products, []any{site.URL, u})
		}
	}
	if err := writeRows(f, ProductsSheet, products, headerStyle); err != nil {
		return 0, err
	}

	if err := f.SetColWidth(SummarySheet, "A", "A", 40); err != nil {
		return 0, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(ProductsSheet, "A", "B", 60); err != nil {
		return 0, fmt.Errorf("failed to set column width: %w", err)
	}
	f.SetActiveSheet(0)

	n, err := f.WriteTo(w.output)
	if err != nil {
		return int(n), fmt.Errorf("failed to write workbook: %w", err)
	}
	return int(n), nil
}

// writeRows writes rows starting at A1 and styles the first row.
func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("invalid cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to set %s!%s: %w", sheet, cell, err)
			}
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return fmt.Errorf("invalid cell: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return nil
}
