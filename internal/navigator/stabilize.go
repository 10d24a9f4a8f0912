// internal/navigator/stabilize.go
package navigator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/config"
)

const (
	indicatorProbeTimeout  = 2 * time.Second
	indicatorHiddenTimeout = 20 * time.Second
	maxStabilizeIterations = 20
	confirmInterval        = 500 * time.Millisecond
)

// Stabilizer waits for the result list to stop changing. It first waits out
// the known loading indicators, then polls the result count until two
// consecutive reads spaced confirmInterval apart agree. A single equal read
// is not enough: list insertion pauses between batches, and one quiet sample
// proves nothing.
type Stabilizer struct {
	page     Page
	sel      config.SelectorsConfig
	logger   *zap.Logger
	interval time.Duration
}

// NewStabilizer wires the detector against a page facade.
func NewStabilizer(page Page, sel config.SelectorsConfig, logger *zap.Logger) *Stabilizer {
	return &Stabilizer{
		page:     page,
		sel:      sel,
		logger:   logger.Named("stabilizer"),
		interval: confirmInterval,
	}
}

// AwaitStable blocks until the result list is quiescent or the iteration
// budget runs out. It never fails: a permanently churning count must not
// stall the run, so exhaustion returns as if stable.
func (s *Stabilizer) AwaitStable(ctx context.Context) {
	for _, indicator := range s.sel.LoadingIndicators {
		// A missing indicator is not an error; probe briefly, and only wait
		// for the ones actually on screen.
		if !s.page.Exists(ctx, indicator, indicatorProbeTimeout) {
			continue
		}
		if err := s.page.WaitHidden(ctx, indicator, indicatorHiddenTimeout); err != nil {
			s.logger.Debug("Loading indicator did not hide within bound.",
				zap.String("indicator", indicator), zap.Error(err))
		}
	}

	prev := -1
	for i := 0; i < maxStabilizeIterations; i++ {
		if ctx.Err() != nil {
			return
		}

		count, err := s.page.Count(ctx, s.sel.ResultItem)
		if err != nil {
			s.logger.Debug("Result count read failed during stabilization.", zap.Error(err))
			count = -1
		}

		if count >= 0 && count == prev {
			if !sleep(ctx, s.interval) {
				return
			}
			again, err := s.page.Count(ctx, s.sel.ResultItem)
			if err == nil && again == count {
				s.logger.Debug("Result list stable.", zap.Int("count", count))
				return
			}
			if err == nil {
				count = again
			}
		}

		prev = count
		if !sleep(ctx, s.interval) {
			return
		}
	}

	s.logger.Warn("Stabilization budget exhausted; proceeding with current list.")
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
