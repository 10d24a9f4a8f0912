// internal/navigator/calendar.go
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

// maxMonthSteps bounds month navigation; 36 steps covers three years in
// either direction, far beyond the scheduling window.
const maxMonthSteps = 36

const (
	triggerProbeTimeout = 2 * time.Second
	gridTimeout         = 10 * time.Second
	headerSettle        = 1500 * time.Millisecond
)

// monthFragments maps a month number to the label fragments that identify it
// in a calendar header. Kept as data so locales are an edit, not a branch.
// Fragments are matched as case-insensitive prefixes of header tokens.
var monthFragments = []struct {
	Month     int
	Fragments []string
}{
	{1, []string{"jan"}},
	{2, []string{"fev", "feb"}},
	{3, []string{"mar"}},
	{4, []string{"abr", "apr"}},
	{5, []string{"mai", "may"}},
	{6, []string{"jun"}},
	{7, []string{"jul"}},
	{8, []string{"ago", "aug"}},
	{9, []string{"set", "sep"}},
	{10, []string{"out", "oct"}},
	{11, []string{"nov"}},
	{12, []string{"dez", "dec"}},
}

var yearPattern = regexp.MustCompile(`\b(\d{4})\b`)

// CalendarNavigator reaches a target date through a month-grid date picker:
// open the picker, step the grid to the target month, click the day cell,
// and let the caller-visible date label confirm the result.
type CalendarNavigator struct {
	page   Page
	sel    config.SelectorsConfig
	guard  *OverlayGuard
	logger *zap.Logger
}

// NewCalendarNavigator builds the month-grid strategy.
func NewCalendarNavigator(page Page, sel config.SelectorsConfig, guard *OverlayGuard, logger *zap.Logger) *CalendarNavigator {
	return &CalendarNavigator{
		page:   page,
		sel:    sel,
		guard:  guard,
		logger: logger.Named("calendar_navigator"),
	}
}

var _ DateNavigator = (*CalendarNavigator)(nil)

// GoToDate runs one full attempt: open picker, converge on the month, click
// the day, verify the displayed label. The attempt is idempotent and meant to
// be retried externally.
func (n *CalendarNavigator) GoToDate(ctx context.Context, target schedule.Date) (bool, error) {
	n.guard.Dismiss(ctx)

	if !n.page.Exists(ctx, n.sel.CalendarTrigger, triggerProbeTimeout) {
		n.logger.Warn("Calendar trigger absent; cannot navigate.", zap.String("target", target.Display()))
		return false, nil
	}

	if err := n.page.Click(ctx, n.sel.CalendarTrigger); err != nil {
		return false, fmt.Errorf("failed to open date picker: %w", err)
	}
	if err := n.page.WaitVisible(ctx, n.sel.CalendarGrid, gridTimeout); err != nil {
		return false, fmt.Errorf("month grid did not render: %w", err)
	}

	if !n.reachMonth(ctx, target) {
		// Could not certify the month, but the day click below is still
		// attempted: the grid may well be on the right month with an
		// unreadable header.
		n.logger.Warn("Month navigation budget exhausted.", zap.String("target", target.Display()))
	}

	if err := n.clickDay(ctx, target); err != nil {
		return false, err
	}

	return n.confirmDisplayed(ctx, target)
}

// reachMonth steps the grid until the header matches the target's month, or
// the step ceiling is hit. Returns whether the month was positively reached.
func (n *CalendarNavigator) reachMonth(ctx context.Context, target schedule.Date) bool {
	for step := 0; step < maxMonthSteps; step++ {
		if ctx.Err() != nil {
			return false
		}

		header, err := n.page.Text(ctx, n.sel.CalendarHeader)
		if err != nil {
			n.logger.Debug("Header read failed; advancing blindly.", zap.Error(err))
			n.stepMonth(ctx, n.sel.CalendarNext)
			continue
		}

		year, month, ok := parseMonthHeader(header)
		if !ok {
			// Header parsing is best-effort. Advance one month forward and
			// retry rather than failing; the budget above bounds this.
			n.logger.Debug("Unreadable month header; advancing blindly.", zap.String("header", header))
			n.stepMonth(ctx, n.sel.CalendarNext)
			continue
		}

		current := year*12 + month
		switch {
		case current == target.MonthKey():
			return true
		case current < target.MonthKey():
			n.stepMonth(ctx, n.sel.CalendarNext)
		default:
			n.stepMonth(ctx, n.sel.CalendarPrev)
		}
	}
	return false
}

// stepMonth clicks a direction control and gives the header a bounded chance
// to re-render before the next read.
func (n *CalendarNavigator) stepMonth(ctx context.Context, control string) {
	before, _ := n.page.Text(ctx, n.sel.CalendarHeader)

	if err := n.page.Click(ctx, control); err != nil {
		n.logger.Debug("Month step click failed.", zap.String("control", control), zap.Error(err))
		return
	}

	waitTextChange(ctx, n.page, n.sel.CalendarHeader, before, headerSettle)
}

// clickDay locates the target's day cell. The grid's markup is inconsistent
// about where the accessible label lives, hence three tiers: a cell whose
// label carries the year and whose text is the day number, then a label match
// on the cell's inner button, then any enabled cell showing the day number.
func (n *CalendarNavigator) clickDay(ctx context.Context, target schedule.Date) error {
	dayText := strconv.Itoa(target.Day)
	yearText := strconv.Itoa(target.Year)

	cells, err := n.page.Elements(ctx, n.sel.CalendarCell)
	if err != nil {
		return fmt.Errorf("failed to enumerate day cells: %w", err)
	}

	for i, cell := range cells {
		if strings.Contains(cell.Label, yearText) && strings.TrimSpace(cell.Text) == dayText {
			return n.page.ClickNth(ctx, n.sel.CalendarCell, i)
		}
	}

	buttons, err := n.page.Elements(ctx, n.sel.CalendarCellButton)
	if err == nil {
		for i, btn := range buttons {
			if strings.Contains(btn.Label, yearText) && strings.Contains(btn.Label, dayText) {
				return n.page.ClickNth(ctx, n.sel.CalendarCellButton, i)
			}
		}
	}

	for i, cell := range cells {
		if !cell.Disabled && strings.TrimSpace(cell.Text) == dayText {
			return n.page.ClickNth(ctx, n.sel.CalendarCell, i)
		}
	}

	return fmt.Errorf("no day cell found for %s", target.Display())
}

// confirmDisplayed re-reads the date label and accepts success only when it
// carries the canonical target string.
func (n *CalendarNavigator) confirmDisplayed(ctx context.Context, target schedule.Date) (bool, error) {
	label, err := n.page.Text(ctx, n.sel.DateLabel)
	if err != nil {
		return false, fmt.Errorf("failed to re-read date label: %w", err)
	}
	if strings.Contains(label, target.Display()) {
		n.logger.Debug("Date confirmed via calendar.", zap.String("target", target.Display()))
		return true, nil
	}
	n.logger.Debug("Displayed date does not match target.",
		zap.String("label", strings.TrimSpace(label)), zap.String("target", target.Display()))
	return false, nil
}

// parseMonthHeader extracts (year, month) from a calendar header label such
// as "MAR. 2026" or "março de 2026". ok is false when either token is
// missing.
func parseMonthHeader(header string) (year, month int, ok bool) {
	m := yearPattern.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, false
	}
	year, _ = strconv.Atoi(m[1])

	lower := strings.ToLower(header)
	for _, entry := range monthFragments {
		for _, frag := range entry.Fragments {
			if strings.Contains(lower, frag) {
				return year, entry.Month, true
			}
		}
	}
	return 0, 0, false
}

// waitTextChange polls the selector's text until it differs from before or
// the bound elapses. It distinguishes "render still pending" from "click had
// no visible effect" without racing the renderer on a fixed sleep.
func waitTextChange(ctx context.Context, page Page, selector, before string, bound time.Duration) string {
	deadline := time.Now().Add(bound)
	for {
		current, err := page.Text(ctx, selector)
		if err == nil && current != before {
			return current
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return before
		}
		select {
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			return before
		}
	}
}
