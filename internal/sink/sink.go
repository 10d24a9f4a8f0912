// Package sink delivers extracted hearing records to their destinations: a
// CSV file, a spreadsheet, an optional Postgres store and an optional mail
// notifier. Sinks are independent; one failing must not corrupt another.
package sink

import (
	"time"

	"github.com/LabsAtivai/boaventura/internal/navigator"
	"github.com/LabsAtivai/boaventura/internal/schedule"
)

// Row is the flat projection of one Record plus its run metadata. Every sink
// consumes the same projection so the outputs stay column-compatible.
type Row struct {
	GeneratedAt  time.Time
	Unit         string
	DateDisplay  string
	DateISO      string
	ProcessID    string
	SessionLabel string
	Judge        string
	Claimant     string
	Respondent   string
}

// columns is the shared header, in output order.
var columns = []string{
	"gerado_em", "vara", "data", "processo", "sessao", "juiz", "autor", "reu",
}

// values renders the row in column order. The timestamp uses RFC 3339 so the
// export round-trips without locale guessing.
func (r Row) values() []string {
	return []string{
		r.GeneratedAt.Format(time.RFC3339),
		r.Unit,
		r.DateDisplay,
		r.ProcessID,
		r.SessionLabel,
		r.Judge,
		r.Claimant,
		r.Respondent,
	}
}

// BuildRows projects one cell's records into rows carrying the unit and date
// context they were extracted under.
func BuildRows(unit string, date schedule.Date, records []navigator.Record, generatedAt time.Time) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, Row{
			GeneratedAt:  generatedAt,
			Unit:         unit,
			DateDisplay:  date.Display(),
			DateISO:      date.ISO(),
			ProcessID:    rec.ProcessID,
			SessionLabel: rec.SessionLabel,
			Judge:        rec.Judge,
			Claimant:     rec.Claimant,
			Respondent:   rec.Respondent,
		})
	}
	return rows
}
