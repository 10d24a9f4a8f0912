// internal/navigator/calendar_test.go
package navigator

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/schedule"
)

var ptMonths = []string{"", "janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro"}

// calendarFake simulates a month-grid picker: a header label, prev/next
// controls mutating the displayed month, and day cells for that month.
type calendarFake struct {
	fakePage
	year, month int

	headerFn  func() string // overridable for unreadable-header cases
	dateLabel string
	bareCells bool // strip accessible labels to force the text-only tier
}

func newCalendarFake(year, month int) *calendarFake {
	sels := testSelectors()
	f := &calendarFake{year: year, month: month}
	f.headerFn = func() string {
		return fmt.Sprintf("%s de %d", ptMonths[f.month], f.year)
	}

	f.existsFn = func(sel string, _ time.Duration) bool {
		return sel == sels.CalendarTrigger
	}
	f.textFn = func(sel string) (string, error) {
		switch sel {
		case sels.CalendarHeader:
			return f.headerFn(), nil
		case sels.DateLabel:
			return f.dateLabel, nil
		}
		return "", nil
	}
	f.clickFn = func(sel string) error {
		switch sel {
		case sels.CalendarNext:
			f.month++
			if f.month > 12 {
				f.month = 1
				f.year++
			}
		case sels.CalendarPrev:
			f.month--
			if f.month < 1 {
				f.month = 12
				f.year--
			}
		}
		return nil
	}
	f.elementsFn = func(sel string) ([]ElementInfo, error) {
		if sel != sels.CalendarCell {
			return nil, nil
		}
		cells := make([]ElementInfo, 0, 28)
		for day := 1; day <= 28; day++ {
			cell := ElementInfo{Text: strconv.Itoa(day)}
			if !f.bareCells {
				cell.Label = fmt.Sprintf("%d de %s de %d", day, ptMonths[f.month], f.year)
			}
			cells = append(cells, cell)
		}
		return cells, nil
	}
	f.clickNthFn = func(sel string, index int) error {
		if sel == sels.CalendarCell {
			f.dateLabel = schedule.Date{Day: index + 1, Month: f.month, Year: f.year}.Display()
		}
		return nil
	}
	return f
}

func newCalendarNav(f *calendarFake) *CalendarNavigator {
	sels := testSelectors()
	guard := NewOverlayGuard(f, sels.OverlayBackdrop, zap.NewNop())
	return NewCalendarNavigator(f, sels, guard, zap.NewNop())
}

func TestCalendarNavigatesForwardWithoutOvershoot(t *testing.T) {
	f := newCalendarFake(2026, 1)
	nav := newCalendarNav(f)
	target := schedule.Date{Day: 5, Month: 3, Year: 2026}

	ok, err := nav.GoToDate(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "05/03/2026", f.dateLabel)
	assert.Equal(t, 2, f.clicksOn(testSelectors().CalendarNext), "January to March is exactly two forward steps")
	assert.Zero(t, f.clicksOn(testSelectors().CalendarPrev))
}

func TestCalendarNavigatesBackward(t *testing.T) {
	f := newCalendarFake(2026, 6)
	nav := newCalendarNav(f)
	target := schedule.Date{Day: 10, Month: 4, Year: 2026}

	ok, err := nav.GoToDate(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, f.clicksOn(testSelectors().CalendarPrev))
}

func TestCalendarCrossesYearBoundary(t *testing.T) {
	f := newCalendarFake(2025, 12)
	nav := newCalendarNav(f)
	target := schedule.Date{Day: 15, Month: 1, Year: 2026}

	ok, err := nav.GoToDate(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "15/01/2026", f.dateLabel)
}

func TestCalendarTriggerAbsentReportsFailure(t *testing.T) {
	f := newCalendarFake(2026, 1)
	f.existsFn = func(string, time.Duration) bool { return false }
	nav := newCalendarNav(f)

	ok, err := nav.GoToDate(context.Background(), schedule.Date{Day: 5, Month: 3, Year: 2026})
	require.NoError(t, err, "an absent trigger is a reported failure, not an error")
	assert.False(t, ok)
}

func TestCalendarUnreadableHeaderStillAttemptsDayClick(t *testing.T) {
	f := newCalendarFake(2026, 3)
	// No year token and no month fragment, but distinct per displayed month
	// so the settle poll sees the render.
	f.headerFn = func() string { return fmt.Sprintf("p. %d", f.year*12+f.month) }
	nav := newCalendarNav(f)
	target := schedule.Date{Day: 5, Month: 3, Year: 2026}

	ok, err := nav.GoToDate(context.Background(), target)
	require.NoError(t, err)

	// Blind advance burns the whole budget but the day click still runs.
	assert.Equal(t, maxMonthSteps, f.clicksOn(testSelectors().CalendarNext))
	// The fake drifted forward 36 months, so the clicked cell belongs to a
	// later month and confirmation correctly rejects it.
	assert.False(t, ok)
}

func TestCalendarDayCellTextFallback(t *testing.T) {
	f := newCalendarFake(2026, 3)
	f.bareCells = true // markup without accessible labels
	nav := newCalendarNav(f)
	target := schedule.Date{Day: 12, Month: 3, Year: 2026}

	ok, err := nav.GoToDate(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, ok, "text-only cells must still be clickable via the last fallback tier")
	assert.Equal(t, "12/03/2026", f.dateLabel)
}

func TestCalendarRejectsMismatchedLabel(t *testing.T) {
	sels := testSelectors()
	f := newCalendarFake(2026, 3)
	base := f.clickNthFn
	f.clickNthFn = func(sel string, index int) error {
		if err := base(sel, index); err != nil {
			return err
		}
		if sel == sels.CalendarCell {
			f.dateLabel = "01/01/1999" // the click landed somewhere wrong
		}
		return nil
	}
	nav := newCalendarNav(f)

	ok, err := nav.GoToDate(context.Background(), schedule.Date{Day: 5, Month: 3, Year: 2026})
	require.NoError(t, err)
	assert.False(t, ok, "success requires the displayed label to match the canonical target")
}

func TestParseMonthHeader(t *testing.T) {
	tests := []struct {
		header    string
		wantYear  int
		wantMonth int
		wantOK    bool
	}{
		{"março de 2026", 2026, 3, true},
		{"MAR. 2026", 2026, 3, true},
		{"fev 2027", 2027, 2, true},
		{"DEZ. 2025", 2025, 12, true},
		{"May 2026", 2026, 5, true},
		{"2026", 0, 0, false},    // year but no month token
		{"março", 0, 0, false},   // month but no year
		{"· · ·", 0, 0, false},   // neither
		{"mar 26", 0, 0, false},  // two-digit year is not a year token
	}

	for _, tc := range tests {
		t.Run(tc.header, func(t *testing.T) {
			year, month, ok := parseMonthHeader(tc.header)
			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantYear, year)
				assert.Equal(t, tc.wantMonth, month)
			}
		})
	}
}

func TestWaitTextChange(t *testing.T) {
	f := &fakePage{}
	reads := 0
	f.textFn = func(sel string) (string, error) {
		reads++
		if reads >= 3 {
			return "after", nil
		}
		return "before", nil
	}

	got := waitTextChange(context.Background(), f, "#label", "before", time.Second)
	assert.Equal(t, "after", got)

	// Never changes: returns the old value at the bound.
	f.textFn = func(sel string) (string, error) { return "same", nil }
	got = waitTextChange(context.Background(), f, "#label", "same", 300*time.Millisecond)
	assert.Equal(t, "same", got)
}
