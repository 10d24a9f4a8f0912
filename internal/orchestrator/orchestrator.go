// Package orchestrator runs the unit × date sweep: select a unit, target each
// date, wait for the result list to settle, extract, accumulate. Cells are
// independent; a cell that cannot be reached is skipped, never fatal. It is
// injected with its collaborators via interfaces, making it decoupled and
// testable.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/LabsAtivai/boaventura/internal/config"
	"github.com/LabsAtivai/boaventura/internal/navigator"
	"github.com/LabsAtivai/boaventura/internal/schedule"
	"github.com/LabsAtivai/boaventura/internal/sink"
)

// UnitSelector enumerates and applies the cascading unit selection.
type UnitSelector interface {
	Units(ctx context.Context) ([]string, error)
	Select(ctx context.Context, unitLabel string) error
}

// Stabilizer certifies the result list as quiescent.
type Stabilizer interface {
	AwaitStable(ctx context.Context)
}

// Extractor reads the stabilized list into records.
type Extractor interface {
	Records(ctx context.Context) ([]navigator.Record, error)
}

// RowStore persists rows. A nil store means persistence is absent for the
// whole run; it is probed once at startup and never retried per cell.
type RowStore interface {
	UpsertRows(ctx context.Context, rows []sink.Row) error
}

// CellOutcome records how one (unit, date) cell ended.
type CellOutcome struct {
	Unit    string
	Date    schedule.Date
	Records int
	Skipped bool
	Reason  string
}

// BatchRun accumulates everything a run produced. Single writer, owned by the
// orchestrator; sinks consume it after the sweep.
type BatchRun struct {
	RunID     string
	StartedAt time.Time
	Rows      []sink.Row
	Outcomes  []CellOutcome
}

// Skips counts the cells that ended in a skip.
func (r *BatchRun) Skips() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Skipped {
			n++
		}
	}
	return n
}

// errDateNotReached marks a goToDate attempt that completed without error but
// could not confirm the target. It is retried like any other failure.
var errDateNotReached = errors.New("target date not reached")

// Deps are the orchestrator's collaborators. Store may be nil.
type Deps struct {
	Selector   UnitSelector
	Dates      navigator.DateNavigator
	Stabilizer Stabilizer
	Extractor  Extractor
	Store      RowStore
}

// Orchestrator manages the high-level lifecycle of a sweep.
type Orchestrator struct {
	cfg     *config.Config
	deps    Deps
	logger  *zap.Logger
	limiter *rate.Limiter
	retry   navigator.RetryPolicy
	now     func() time.Time
}

// New wires an orchestrator. All collaborators except Store are required.
func New(cfg *config.Config, deps Deps, guard *navigator.OverlayGuard, logger *zap.Logger) (*Orchestrator, error) {
	if cfg == nil || deps.Selector == nil || deps.Dates == nil ||
		deps.Stabilizer == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}

	var limiter *rate.Limiter
	if cfg.Target.CellsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.Target.CellsPerMinute)/60.0), 1)
	}

	retry := navigator.RetryPolicy{
		Attempts: cfg.Target.RetryAttempts,
		Delay:    cfg.Target.RetryDelay,
	}
	if guard != nil {
		retry.Cleanup = guard.Dismiss
	}

	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		logger:  logger.Named("orchestrator"),
		limiter: limiter,
		retry:   retry,
		now:     time.Now,
	}, nil
}

// Run executes the sweep and returns the accumulated batch. The batch is
// returned even alongside a fatal error so already extracted records are never
// discarded; callers finalize it regardless.
func (o *Orchestrator) Run(ctx context.Context) (*BatchRun, error) {
	run := &BatchRun{RunID: uuid.New().String(), StartedAt: o.now()}

	units, err := o.resolveUnits(ctx)
	if err != nil {
		return run, err
	}

	window := schedule.Window{
		LeadDays:         o.cfg.Schedule.LeadDays,
		HorizonMonths:    o.cfg.Schedule.HorizonMonths,
		HorizonExtraDays: o.cfg.Schedule.HorizonExtraDays,
	}
	dates := schedule.Range(run.StartedAt, window)

	o.logger.Info("Sweep starting.", zap.String("runID", run.RunID),
		zap.Int("units", len(units)), zap.Int("dates", len(dates)))

	for _, unit := range units {
		// A unit that cannot be selected leaves no context to target dates
		// in; this is the one failure that ends the run.
		if err := o.deps.Selector.Select(ctx, unit); err != nil {
			return run, fmt.Errorf("unit selection failed for %q: %w", unit, err)
		}
		o.logger.Info("Unit selected.", zap.String("unit", unit))

		for _, date := range dates {
			if err := o.pace(ctx); err != nil {
				return run, err
			}
			if err := o.runCell(ctx, run, unit, date); err != nil {
				return run, err
			}
		}
	}

	o.logger.Info("Sweep finished.",
		zap.Int("rows", len(run.Rows)), zap.Int("skips", run.Skips()))
	return run, nil
}

// runCell processes one (unit, date) cell. Only a dead context escapes as an
// error; everything else becomes a skip outcome.
func (o *Orchestrator) runCell(ctx context.Context, run *BatchRun, unit string, date schedule.Date) error {
	err := o.retry.Do(ctx, func(ctx context.Context) error {
		ok, err := o.deps.Dates.GoToDate(ctx, date)
		if err != nil {
			return err
		}
		if !ok {
			return errDateNotReached
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.skip(run, unit, date, fmt.Sprintf("date targeting: %v", err))
		return nil
	}

	o.deps.Stabilizer.AwaitStable(ctx)

	records, err := o.deps.Extractor.Records(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.skip(run, unit, date, fmt.Sprintf("extraction: %v", err))
		return nil
	}

	rows := sink.BuildRows(unit, date, records, o.now())
	run.Rows = append(run.Rows, rows...)
	run.Outcomes = append(run.Outcomes, CellOutcome{
		Unit: unit, Date: date, Records: len(records),
	})
	o.logger.Info("Cell extracted.",
		zap.String("unit", unit), zap.String("date", date.Display()),
		zap.Int("records", len(records)))

	o.persist(ctx, rows)
	return nil
}

// persist streams the cell's rows to the store, if one survived the startup
// probe. A failing store is degraded to absent for the rest of the run.
func (o *Orchestrator) persist(ctx context.Context, rows []sink.Row) {
	if o.deps.Store == nil || len(rows) == 0 {
		return
	}
	if err := o.deps.Store.UpsertRows(ctx, rows); err != nil {
		o.logger.Error("Store write failed; dropping store for the remainder of the run.", zap.Error(err))
		o.deps.Store = nil
	}
}

func (o *Orchestrator) skip(run *BatchRun, unit string, date schedule.Date, reason string) {
	run.Outcomes = append(run.Outcomes, CellOutcome{
		Unit: unit, Date: date, Skipped: true, Reason: reason,
	})
	o.logger.Warn("Cell skipped.",
		zap.String("unit", unit), zap.String("date", date.Display()),
		zap.String("reason", reason))
}

// resolveUnits freezes the unit list for the run: the configured subset when
// present, otherwise whatever the unit dropdown offers at start.
func (o *Orchestrator) resolveUnits(ctx context.Context) ([]string, error) {
	if len(o.cfg.Target.Units) > 0 {
		units := make([]string, len(o.cfg.Target.Units))
		copy(units, o.cfg.Target.Units)
		return units, nil
	}

	units, err := o.deps.Selector.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate units: %w", err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("unit dropdown offered no selectable options")
	}
	return units, nil
}

func (o *Orchestrator) pace(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	return o.limiter.Wait(ctx)
}
