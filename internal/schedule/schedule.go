// internal/schedule/schedule.go
package schedule

import (
	"fmt"
	"time"
)

// Date is a plain calendar date. It is a value type; once built it is never
// mutated, only formatted and compared.
type Date struct {
	Day   int
	Month int
	Year  int
}

// FromTime projects the calendar portion of t into a Date.
func FromTime(t time.Time) Date {
	return Date{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}
}

// Parse reads a canonical DD/MM/YYYY string back into a Date.
func Parse(s string) (Date, error) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// Display returns the canonical zero-padded DD/MM/YYYY form. This is the
// string the navigators compare against the rendered date label, so it must
// stay byte-for-byte stable.
func (d Date) Display() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// ISO returns the YYYY-MM-DD form used as part of the store key.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Time converts the date to a time.Time at midnight local time.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.Local)
}

// Key linearizes the date for numeric ordering comparisons.
func (d Date) Key() int {
	return d.Year*10000 + d.Month*100 + d.Day
}

// MonthKey linearizes (year, month) so month navigation can compare the
// calendar header against the target with a single integer.
func (d Date) MonthKey() int {
	return d.Year*12 + d.Month
}

// IsBusinessDay reports whether the date falls on Monday through Friday.
func (d Date) IsBusinessDay() bool {
	wd := d.Time().Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// Window describes the scheduling horizon relative to "now". The zero value
// is not useful; DefaultWindow matches the court's publication window.
type Window struct {
	LeadDays         int
	HorizonMonths    int
	HorizonExtraDays int
}

// DefaultWindow covers hearings published between one week and roughly two
// months out.
func DefaultWindow() Window {
	return Window{LeadDays: 7, HorizonMonths: 2, HorizonExtraDays: 10}
}

// Range generates the ascending sequence of business days inside the window,
// from now+LeadDays through now+HorizonMonths+HorizonExtraDays inclusive.
// The result carries no duplicates and is computed once per run.
func Range(now time.Time, w Window) []Date {
	start := now.AddDate(0, 0, w.LeadDays)
	end := now.AddDate(0, w.HorizonMonths, w.HorizonExtraDays)

	var dates []Date
	for t := start; !t.After(end); t = t.AddDate(0, 0, 1) {
		d := FromTime(t)
		if d.IsBusinessDay() {
			dates = append(dates, d)
		}
	}
	return dates
}
