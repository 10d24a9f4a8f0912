package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/sink"
)

// FileWriter renders rows into a file at path.
type FileWriter interface {
	Write(path string, rows []sink.Row) error
}

// Notifier delivers the run summary with attachments.
type Notifier interface {
	Notify(ctx context.Context, subject, body string, attachments []string) error
}

// Publisher finalizes a batch: CSV first, then the spreadsheet, then the
// notifier, which only fires after both files landed. File sinks are
// independent; one failing does not stop the other, and a batch is published
// even when the sweep before it ended fatally.
type Publisher struct {
	outputDir string
	csv       FileWriter
	excel     FileWriter
	notifier  Notifier
	logger    *zap.Logger
}

// NewPublisher wires the finalization pipeline. notifier may be nil.
func NewPublisher(outputDir string, csv, excel FileWriter, notifier Notifier, logger *zap.Logger) *Publisher {
	return &Publisher{
		outputDir: outputDir,
		csv:       csv,
		excel:     excel,
		notifier:  notifier,
		logger:    logger.Named("publisher"),
	}
}

// Publish writes the batch to every configured destination. The returned
// error aggregates the file sink failures; a notification failure is logged
// and never unwinds the written data.
func (p *Publisher) Publish(ctx context.Context, run *BatchRun) error {
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := run.StartedAt.Format("20060102_150405")
	csvPath := filepath.Join(p.outputDir, "audiencias_"+stamp+".csv")
	xlsxPath := filepath.Join(p.outputDir, "audiencias_"+stamp+".xlsx")

	csvErr := p.csv.Write(csvPath, run.Rows)
	if csvErr != nil {
		p.logger.Error("CSV sink failed.", zap.Error(csvErr))
	}
	xlsxErr := p.excel.Write(xlsxPath, run.Rows)
	if xlsxErr != nil {
		p.logger.Error("Spreadsheet sink failed.", zap.Error(xlsxErr))
	}

	if csvErr == nil && xlsxErr == nil && p.notifier != nil {
		subject := fmt.Sprintf("Pauta de audiências: extração de %s", run.StartedAt.Format("02/01/2006"))
		if err := p.notifier.Notify(ctx, subject, summarize(run), []string{xlsxPath}); err != nil {
			p.logger.Warn("Notification failed; written outputs are kept.", zap.Error(err))
		}
	}

	return errors.Join(csvErr, xlsxErr)
}

// summarize renders the mail body: totals first, then one line per skip.
func summarize(run *BatchRun) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Registros extraídos: %d\n", len(run.Rows))
	fmt.Fprintf(&b, "Células processadas: %d (puladas: %d)\n", len(run.Outcomes), run.Skips())

	for _, o := range run.Outcomes {
		if !o.Skipped {
			continue
		}
		fmt.Fprintf(&b, "- %s em %s: %s\n", o.Unit, o.Date.Display(), o.Reason)
	}
	return b.String()
}
