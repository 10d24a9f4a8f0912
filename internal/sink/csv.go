package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// utf8BOM prefixes the export so spreadsheet tools pick the right encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes the delimited export: BOM, one header row, one row per
// record. Quoting and escaping are the encoding/csv defaults.
type CSVWriter struct {
	log *zap.Logger
}

// NewCSVWriter builds the CSV sink.
func NewCSVWriter(logger *zap.Logger) *CSVWriter {
	return &CSVWriter{log: logger.Named("csv_sink")}
}

// Write creates path and streams all rows into it.
func (w *CSVWriter) Write(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	if err := w.writeTo(f, rows); err != nil {
		return err
	}

	w.log.Info("CSV export written.", zap.String("path", path), zap.Int("rows", len(rows)))
	return nil
}

func (w *CSVWriter) writeTo(out io.Writer, rows []Row) error {
	if _, err := out.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write byte order mark: %w", err)
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.values()); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
