// internal/navigator/page.go
package navigator

import (
	"context"
	"time"

	"github.com/LabsAtivai/boaventura/internal/schedule"
)

// ElementInfo is the projection of a DOM element the navigation core reads:
// visible text, accessible label and interactability.
type ElementInfo struct {
	Text     string `json:"text"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
}

// Page is the session facade contract the navigation core is written against.
// The production implementation drives a real browser tab; tests substitute
// fakes. Every operation may fail or time out and must be treated as
// unreliable by callers.
type Page interface {
	Click(ctx context.Context, selector string) error
	ClickNth(ctx context.Context, selector string, index int) error
	Text(ctx context.Context, selector string) (string, error)
	Elements(ctx context.Context, selector string) ([]ElementInfo, error)
	Count(ctx context.Context, selector string) (int, error)
	Exists(ctx context.Context, selector string, timeout time.Duration) bool
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error
	WaitDetached(ctx context.Context, selector string, timeout time.Duration) error
	OuterHTML(ctx context.Context, selector string) (string, error)
	PressEscape(ctx context.Context) error
}

// Record is one extracted docket entry. Immutable once produced.
type Record struct {
	ProcessID    string
	SessionLabel string
	Judge        string
	Claimant     string
	Respondent   string
}

// DateNavigator moves the session's date cursor to a target date. A false
// return with nil error means the strategy ran out of budget or could not
// confirm the displayed date; the caller decides whether to retry.
type DateNavigator interface {
	GoToDate(ctx context.Context, target schedule.Date) (bool, error)
}
