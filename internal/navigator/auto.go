// internal/navigator/auto.go
package navigator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/schedule"
)

// AutoNavigator picks a date strategy per attempt: if the calendar trigger is
// present it uses the month grid, otherwise the linear stepper. The two
// deployed variants of the docket UI differ exactly here, so probing collapses
// them into one code path.
type AutoNavigator struct {
	page     Page
	trigger  string
	calendar DateNavigator
	stepper  DateNavigator
	logger   *zap.Logger
}

// NewAutoNavigator builds the probing strategy switch.
func NewAutoNavigator(page Page, trigger string, calendar, stepper DateNavigator, logger *zap.Logger) *AutoNavigator {
	return &AutoNavigator{
		page:     page,
		trigger:  trigger,
		calendar: calendar,
		stepper:  stepper,
		logger:   logger.Named("auto_navigator"),
	}
}

var _ DateNavigator = (*AutoNavigator)(nil)

// GoToDate delegates to whichever strategy matches the rendered variant.
func (n *AutoNavigator) GoToDate(ctx context.Context, target schedule.Date) (bool, error) {
	if n.page.Exists(ctx, n.trigger, 1*time.Second) {
		return n.calendar.GoToDate(ctx, target)
	}
	n.logger.Debug("No calendar trigger; using linear stepper.")
	return n.stepper.GoToDate(ctx, target)
}
