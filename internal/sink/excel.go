package sink

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Audiências"

// ExcelWriter writes the spreadsheet export: same columns as the CSV, bold
// filterable header, columns sized to their content.
type ExcelWriter struct {
	log *zap.Logger
}

// NewExcelWriter builds the spreadsheet sink.
func NewExcelWriter(logger *zap.Logger) *ExcelWriter {
	return &ExcelWriter{log: logger.Named("excel_sink")}
}

// Write renders all rows into a workbook at path.
func (w *ExcelWriter) Write(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &columns); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("bad row coordinate: %w", err)
		}
		values := row.values()
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to build header style: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		return fmt.Errorf("bad column count: %w", err)
	}
	headerRange := fmt.Sprintf("A1:%s1", lastCol)
	if err := f.SetCellStyle(sheetName, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if err := f.AutoFilter(sheetName, headerRange, nil); err != nil {
		return fmt.Errorf("failed to set auto filter: %w", err)
	}

	if err := w.sizeColumns(f, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	w.log.Info("Spreadsheet export written.", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

// sizeColumns widens each column to its longest value, within sane bounds.
func (w *ExcelWriter) sizeColumns(f *excelize.File, rows []Row) error {
	widths := make([]int, len(columns))
	for i, name := range columns {
		widths[i] = len([]rune(name))
	}
	for _, row := range rows {
		for i, v := range row.values() {
			if n := len([]rune(v)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("bad column index %d: %w", i, err)
		}
		sized := float64(width) + 2
		if sized > 60 {
			sized = 60
		}
		if err := f.SetColWidth(sheetName, col, col, sized); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	return nil
}
