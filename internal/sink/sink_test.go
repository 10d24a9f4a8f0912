package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LabsAtivai/boaventura/internal/navigator"
	"github.com/LabsAtivai/boaventura/internal/schedule"
)

func sampleRows(t *testing.T) []Row {
	t.Helper()
	generated := time.Date(2026, 2, 20, 10, 30, 0, 0, time.UTC)
	records := []navigator.Record{
		{
			ProcessID:    "0100234-55.2026.5.01.0041",
			SessionLabel: "09:00 - Designada",
			Judge:        "Juíza Maria Souza",
			Claimant:     "João da Silva",
			Respondent:   "Transportes Guanabara Ltda",
		},
		{
			SessionLabel: "09:30 - Sigiloso",
		},
	}
	date := schedule.Date{Day: 5, Month: 3, Year: 2026}
	return BuildRows("41ª Vara do Trabalho do Rio de Janeiro", date, records, generated)
}

func TestBuildRowsCarriesCellContext(t *testing.T) {
	rows := sampleRows(t)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "41ª Vara do Trabalho do Rio de Janeiro", first.Unit)
	assert.Equal(t, "05/03/2026", first.DateDisplay)
	assert.Equal(t, "2026-03-05", first.DateISO)
	assert.Equal(t, "0100234-55.2026.5.01.0041", first.ProcessID)
	assert.Equal(t, "Juíza Maria Souza", first.Judge)

	// Identifier-less records stay in the projection with an empty key field.
	assert.Empty(t, rows[1].ProcessID)
	assert.Equal(t, "09:30 - Sigiloso", rows[1].SessionLabel)
	assert.Equal(t, first.Unit, rows[1].Unit)
}

func TestBuildRowsEmptyInput(t *testing.T) {
	rows := BuildRows("vara", schedule.Date{Day: 5, Month: 3, Year: 2026}, nil, time.Now())
	assert.Empty(t, rows)
}

func TestRowValuesOrderMatchesColumns(t *testing.T) {
	rows := sampleRows(t)
	values := rows[0].values()
	require.Len(t, values, len(columns))

	assert.Equal(t, "2026-02-20T10:30:00Z", values[0])
	assert.Equal(t, rows[0].Unit, values[1])
	assert.Equal(t, rows[0].DateDisplay, values[2])
	assert.Equal(t, rows[0].ProcessID, values[3])
	assert.Equal(t, rows[0].SessionLabel, values[4])
	assert.Equal(t, rows[0].Judge, values[5])
	assert.Equal(t, rows[0].Claimant, values[6])
	assert.Equal(t, rows[0].Respondent, values[7])
}
