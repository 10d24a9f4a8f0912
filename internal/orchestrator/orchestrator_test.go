package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/config"
	"github.com/LabsAtivai/boaventura/internal/navigator"
	"github.com/LabsAtivai/boaventura/internal/schedule"
	"github.com/LabsAtivai/boaventura/internal/sink"
)

// fixedNow is a Monday; with the test window the sweep covers Tuesday through
// Thursday, three business days.
var fixedNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func testConfig(t *testing.T, units ...string) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("target.url", "https://pje.example.jus.br/pauta")
	v.Set("target.units", units)
	v.Set("target.cells_per_minute", 0)
	v.Set("target.retry_attempts", 2)
	v.Set("target.retry_delay", "1ms")
	v.Set("schedule.lead_days", 1)
	v.Set("schedule.horizon_months", 0)
	v.Set("schedule.horizon_extra_days", 3)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

type fakeSelector struct {
	units    []string
	unitsErr error
	selected []string
	selectFn func(unit string) error
}

func (f *fakeSelector) Units(context.Context) ([]string, error) {
	return f.units, f.unitsErr
}

func (f *fakeSelector) Select(_ context.Context, unit string) error {
	f.selected = append(f.selected, unit)
	if f.selectFn != nil {
		return f.selectFn(unit)
	}
	return nil
}

type fakeDates struct {
	calls []schedule.Date
	fn    func(schedule.Date) (bool, error)
}

func (f *fakeDates) GoToDate(_ context.Context, d schedule.Date) (bool, error) {
	f.calls = append(f.calls, d)
	if f.fn != nil {
		return f.fn(d)
	}
	return true, nil
}

type fakeStabilizer struct{ calls int }

func (f *fakeStabilizer) AwaitStable(context.Context) { f.calls++ }

type fakeExtractor struct {
	records []navigator.Record
	err     error
	calls   int
}

func (f *fakeExtractor) Records(context.Context) ([]navigator.Record, error) {
	f.calls++
	return f.records, f.err
}

type fakeStore struct {
	batches [][]sink.Row
	err     error
}

func (f *fakeStore) UpsertRows(_ context.Context, rows []sink.Row) error {
	f.batches = append(f.batches, rows)
	return f.err
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, deps Deps) *Orchestrator {
	t.Helper()
	o, err := New(cfg, deps, nil, zap.NewNop())
	require.NoError(t, err)
	o.now = func() time.Time { return fixedNow }
	return o
}

func TestRunSweepsEveryCell(t *testing.T) {
	cfg := testConfig(t, "1ª Vara", "2ª Vara")
	sel := &fakeSelector{}
	dates := &fakeDates{}
	stab := &fakeStabilizer{}
	ext := &fakeExtractor{records: []navigator.Record{
		{ProcessID: "0100001-11.2026.5.01.0041"},
		{ProcessID: "0100002-22.2026.5.01.0041"},
	}}
	store := &fakeStore{}

	o := newTestOrchestrator(t, cfg, Deps{
		Selector: sel, Dates: dates, Stabilizer: stab, Extractor: ext, Store: store,
	})

	run, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, []string{"1ª Vara", "2ª Vara"}, sel.selected)
	require.Len(t, dates.calls, 6, "two units over three business days")
	assert.Equal(t, "03/03/2026", dates.calls[0].Display())
	assert.Equal(t, "05/03/2026", dates.calls[2].Display())

	assert.Equal(t, 6, stab.calls)
	assert.Equal(t, 6, ext.calls)
	assert.Len(t, run.Rows, 12)
	assert.Len(t, run.Outcomes, 6)
	assert.Zero(t, run.Skips())
	assert.Len(t, store.batches, 6, "rows stream to the store per cell")

	// Every row stays attributable to the cell it came from.
	assert.Equal(t, "1ª Vara", run.Rows[0].Unit)
	assert.Equal(t, "2026-03-03", run.Rows[0].DateISO)
	assert.Equal(t, "2ª Vara", run.Rows[11].Unit)
	assert.Equal(t, "2026-03-05", run.Rows[11].DateISO)
}

func TestRunSkipsUnreachableDates(t *testing.T) {
	cfg := testConfig(t, "1ª Vara")
	bad := schedule.Date{Day: 4, Month: 3, Year: 2026}
	dates := &fakeDates{fn: func(d schedule.Date) (bool, error) {
		if d == bad {
			return false, nil
		}
		return true, nil
	}}
	ext := &fakeExtractor{records: []navigator.Record{{ProcessID: "x"}}}

	o := newTestOrchestrator(t, cfg, Deps{
		Selector: &fakeSelector{}, Dates: dates, Stabilizer: &fakeStabilizer{}, Extractor: ext,
	})

	run, err := o.Run(context.Background())
	require.NoError(t, err, "a cell failure never aborts the run")

	assert.Equal(t, 1, run.Skips())
	assert.Len(t, run.Rows, 2, "the remaining cells still extract")
	// Two attempts for the bad date plus one for each good one.
	assert.Len(t, dates.calls, 4)
}

func TestRunRetriesBeforeSkipping(t *testing.T) {
	cfg := testConfig(t, "1ª Vara")
	attempts := map[int]int{}
	dates := &fakeDates{fn: func(d schedule.Date) (bool, error) {
		attempts[d.Key()]++
		// Fails once, succeeds on the second attempt.
		return attempts[d.Key()] > 1, nil
	}}
	ext := &fakeExtractor{records: []navigator.Record{{ProcessID: "x"}}}

	o := newTestOrchestrator(t, cfg, Deps{
		Selector: &fakeSelector{}, Dates: dates, Stabilizer: &fakeStabilizer{}, Extractor: ext,
	})

	run, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, run.Skips(), "a transient miss recovers within the retry budget")
	assert.Len(t, run.Rows, 3)
}

func TestRunUnitSelectionFailureIsFatal(t *testing.T) {
	cfg := testConfig(t, "1ª Vara", "2ª Vara")
	sel := &fakeSelector{selectFn: func(unit string) error {
		if unit == "2ª Vara" {
			return errors.New("panel never opened")
		}
		return nil
	}}
	ext := &fakeExtractor{records: []navigator.Record{{ProcessID: "x"}}}

	o := newTestOrchestrator(t, cfg, Deps{
		Selector: sel, Dates: &fakeDates{}, Stabilizer: &fakeStabilizer{}, Extractor: ext,
	})

	run, err := o.Run(context.Background())
	require.ErrorContains(t, err, `unit selection failed for "2ª Vara"`)
	assert.Len(t, run.Rows, 3, "rows from the first unit survive the abort")
}

func TestRunEnumeratesUnitsWhenNoSubsetConfigured(t *testing.T) {
	cfg := testConfig(t)
	sel := &fakeSelector{units: []string{"1ª Vara"}}
	ext := &fakeExtractor{}

	o := newTestOrchestrator(t, cfg, Deps{
		Selector: sel, Dates: &fakeDates{}, Stabilizer: &fakeStabilizer{}, Extractor: ext,
	})

	run, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1ª Vara"}, sel.selected)
	assert.Len(t, run.Outcomes, 3)
}

func TestRunFailsWhenNoUnitsDiscovered(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(t, cfg, Deps{
		Selector: &fakeSelector{}, Dates: &fakeDates{}, Stabilizer: &fakeStabilizer{}, Extractor: &fakeExtractor{},
	})

	_, err := o.Run(context.Background())
	assert.ErrorContains(t, err, "no selectable options")
}

func TestRunDegradesStoreAfterFirstFailure(t *testing.T) {
	cfg := testConfig(t, "1ª Vara")
	store := &fakeStore{err: errors.New("connection reset")}
	ext := &fakeExtractor{records: []navigator.Record{{ProcessID: "x"}}}

	o := newTestOrchestrator(t, cfg, Deps{
		Selector: &fakeSelector{}, Dates: &fakeDates{}, Stabilizer: &fakeStabilizer{}, Extractor: ext, Store: store,
	})

	run, err := o.Run(context.Background())
	require.NoError(t, err, "a sink failure never aborts extraction")
	assert.Len(t, store.batches, 1, "the store is dropped after its first failure, not retried per cell")
	assert.Len(t, run.Rows, 3, "rows keep accumulating for the file sinks")
}

func TestRunSkipsCellOnExtractionError(t *testing.T) {
	cfg := testConfig(t, "1ª Vara")
	ext := &fakeExtractor{err: errors.New("list detached")}

	o := newTestOrchestrator(t, cfg, Deps{
		Selector: &fakeSelector{}, Dates: &fakeDates{}, Stabilizer: &fakeStabilizer{}, Extractor: ext,
	})

	run, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, run.Skips())
	assert.Empty(t, run.Rows)
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	cfg := testConfig(t, "1ª Vara")
	ctx, cancel := context.WithCancel(context.Background())
	dates := &fakeDates{fn: func(schedule.Date) (bool, error) {
		cancel()
		return false, errors.New("session gone")
	}}

	o := newTestOrchestrator(t, cfg, Deps{
		Selector: &fakeSelector{}, Dates: dates, Stabilizer: &fakeStabilizer{}, Extractor: &fakeExtractor{},
	})

	run, err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, run, "the partial batch is still handed back")
}

func TestNewRejectsNilDependencies(t *testing.T) {
	cfg := testConfig(t, "1ª Vara")
	_, err := New(cfg, Deps{}, nil, zap.NewNop())
	assert.Error(t, err)
}
