// internal/navigator/stepper.go
package navigator

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/config"
	"github.com/LabsAtivai/boaventura/internal/schedule"
)

// maxLinearSteps bounds the prev/next walk. The scheduling window never needs
// more than ~70 steps; the slack absorbs a cursor that starts far away.
const maxLinearSteps = 220

const labelSettle = 2 * time.Second

var datePattern = regexp.MustCompile(`(\d{2})/(\d{2})/(\d{4})`)

// StepperNavigator reaches a target date through a linear prev/next control
// that mutates an inline date label. No grid: direction is chosen by
// comparing whatever date token the label currently carries against the
// target, stepping until the label contains the canonical target string.
type StepperNavigator struct {
	page   Page
	sel    config.SelectorsConfig
	guard  *OverlayGuard
	logger *zap.Logger
}

// NewStepperNavigator builds the linear strategy.
func NewStepperNavigator(page Page, sel config.SelectorsConfig, guard *OverlayGuard, logger *zap.Logger) *StepperNavigator {
	return &StepperNavigator{
		page:   page,
		sel:    sel,
		guard:  guard,
		logger: logger.Named("stepper_navigator"),
	}
}

var _ DateNavigator = (*StepperNavigator)(nil)

// GoToDate steps the date cursor toward target. Succeeds the moment the label
// contains the canonical string; reports false when the step budget runs out
// or the label control is absent.
func (n *StepperNavigator) GoToDate(ctx context.Context, target schedule.Date) (bool, error) {
	n.guard.Dismiss(ctx)

	if !n.page.Exists(ctx, n.sel.DateLabel, triggerProbeTimeout) {
		n.logger.Warn("Date label absent; cannot navigate.", zap.String("target", target.Display()))
		return false, nil
	}

	label, err := n.page.Text(ctx, n.sel.DateLabel)
	if err != nil {
		return false, fmt.Errorf("failed to read date label: %w", err)
	}
	if strings.Contains(label, target.Display()) {
		return true, nil
	}

	for step := 0; step < maxLinearSteps; step++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		control := n.sel.StepNext
		if key, ok := extractDateKey(label); ok && key > target.Key() {
			control = n.sel.StepPrev
		}
		// An unreadable label defaults to stepping forward; the docket
		// cursor starts at today and targets are always in the future.

		if err := n.page.Click(ctx, control); err != nil {
			return false, fmt.Errorf("date step click failed: %w", err)
		}

		// Wait for the label to actually change before reading direction
		// again; a fixed sleep would race the renderer and misread "no
		// change yet" as "no effect".
		label = waitTextChange(ctx, n.page, n.sel.DateLabel, label, labelSettle)

		if strings.Contains(label, target.Display()) {
			n.logger.Debug("Date confirmed via stepper.",
				zap.String("target", target.Display()), zap.Int("steps", step+1))
			return true, nil
		}
	}

	n.logger.Warn("Step budget exhausted before reaching target.",
		zap.String("target", target.Display()), zap.String("label", strings.TrimSpace(label)))
	return false, nil
}

// extractDateKey pulls the first embedded DD/MM/YYYY token out of a label and
// linearizes it for ordering. ok is false when no token is present.
func extractDateKey(label string) (int, bool) {
	m := datePattern.FindStringSubmatch(label)
	if m == nil {
		return 0, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	return year*10000 + month*100 + day, true
}
