// internal/navigator/selector.go
package navigator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/config"
)

// ErrOptionNotFound reports that a dropdown panel rendered but did not carry
// the requested option. It is surfaced, not retried here; the caller decides.
var ErrOptionNotFound = fmt.Errorf("option not found in panel")

const (
	panelTimeout   = 10 * time.Second
	enableTimeout  = 15 * time.Second
	enablePollStep = 250 * time.Millisecond
)

// SelectorStepper drives the cascading type → region → unit selection. Each
// control only becomes interactive after the previous one resolves, so every
// step waits out an enabled transition before touching the next control.
type SelectorStepper struct {
	page       Page
	sel        config.SelectorsConfig
	target     config.TargetConfig
	guard      *OverlayGuard
	logger     *zap.Logger
	enableWait time.Duration
}

// NewSelectorStepper wires the stepper against a page facade.
func NewSelectorStepper(page Page, sel config.SelectorsConfig, target config.TargetConfig, guard *OverlayGuard, logger *zap.Logger) *SelectorStepper {
	return &SelectorStepper{
		page:       page,
		sel:        sel,
		target:     target,
		guard:      guard,
		logger:     logger.Named("selector_stepper"),
		enableWait: enableTimeout,
	}
}

// Units walks the cascade far enough to open the unit dropdown, enumerates
// its option labels, and closes the panel again. The returned slice is the
// frozen unit set for the run.
func (s *SelectorStepper) Units(ctx context.Context) ([]string, error) {
	s.guard.Dismiss(ctx)

	if err := s.selectPrefix(ctx); err != nil {
		return nil, err
	}

	if err := s.openPanel(ctx, s.sel.UnitTrigger); err != nil {
		return nil, fmt.Errorf("failed to open unit panel for enumeration: %w", err)
	}

	options, err := s.page.Elements(ctx, s.sel.Option)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate unit options: %w", err)
	}

	var units []string
	for _, opt := range options {
		label := strings.TrimSpace(opt.Text)
		if label != "" && !opt.Disabled {
			units = append(units, label)
		}
	}

	// Close the panel without committing a choice.
	s.guard.Dismiss(ctx)

	s.logger.Info("Enumerated available units.", zap.Int("count", len(units)))
	return units, nil
}

// Select drives the full cascade down to unitLabel and presses the confirm
// control once it enables.
func (s *SelectorStepper) Select(ctx context.Context, unitLabel string) error {
	s.guard.Dismiss(ctx)

	if err := s.selectPrefix(ctx); err != nil {
		return err
	}

	if err := s.choose(ctx, s.sel.UnitTrigger, unitLabel); err != nil {
		return fmt.Errorf("unit selection %q: %w", unitLabel, err)
	}

	s.confirm(ctx)
	s.logger.Info("Unit selected.", zap.String("unit", unitLabel))
	return nil
}

// selectPrefix resolves the first two dependent controls (type, region).
func (s *SelectorStepper) selectPrefix(ctx context.Context) error {
	if err := s.choose(ctx, s.sel.TypeTrigger, s.target.TypeOption); err != nil {
		return fmt.Errorf("type selection %q: %w", s.target.TypeOption, err)
	}
	if err := s.awaitEnabled(ctx, s.sel.RegionTrigger); err != nil {
		return fmt.Errorf("region control never enabled: %w", err)
	}

	if err := s.choose(ctx, s.sel.RegionTrigger, s.target.RegionOption); err != nil {
		return fmt.Errorf("region selection %q: %w", s.target.RegionOption, err)
	}
	if err := s.awaitEnabled(ctx, s.sel.UnitTrigger); err != nil {
		return fmt.Errorf("unit control never enabled: %w", err)
	}
	return nil
}

// choose opens the trigger's panel, clicks the option matching wanted, and
// waits for the panel to dismiss.
func (s *SelectorStepper) choose(ctx context.Context, trigger, wanted string) error {
	if err := s.openPanel(ctx, trigger); err != nil {
		return err
	}

	options, err := s.page.Elements(ctx, s.sel.Option)
	if err != nil {
		return fmt.Errorf("failed to read options: %w", err)
	}

	idx := matchOption(options, wanted)
	if idx < 0 {
		return fmt.Errorf("%w: wanted %q among %d options", ErrOptionNotFound, wanted, len(options))
	}

	if err := s.page.ClickNth(ctx, s.sel.Option, idx); err != nil {
		return fmt.Errorf("failed to click option %q: %w", wanted, err)
	}

	if err := s.page.WaitDetached(ctx, s.sel.OptionPanel, panelTimeout); err != nil {
		// The panel sometimes lingers while the selection is already applied.
		s.logger.Debug("Option panel did not detach after selection.", zap.Error(err))
	}
	return nil
}

// openPanel clicks the dropdown trigger and waits for its option panel.
func (s *SelectorStepper) openPanel(ctx context.Context, trigger string) error {
	if err := s.page.WaitVisible(ctx, trigger, panelTimeout); err != nil {
		return fmt.Errorf("dropdown trigger %q not visible: %w", trigger, err)
	}
	if err := s.page.Click(ctx, trigger); err != nil {
		return fmt.Errorf("failed to open dropdown %q: %w", trigger, err)
	}
	if err := s.page.WaitVisible(ctx, s.sel.OptionPanel, panelTimeout); err != nil {
		return fmt.Errorf("option panel did not render for %q: %w", trigger, err)
	}
	return nil
}

// awaitEnabled polls the control's disabled state until it clears, bounded by
// the stepper's enable wait.
func (s *SelectorStepper) awaitEnabled(ctx context.Context, selector string) error {
	deadline := time.Now().Add(s.enableWait)
	for {
		infos, err := s.page.Elements(ctx, selector)
		if err == nil && len(infos) > 0 && !infos[0].Disabled {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("control %q still disabled after %s", selector, s.enableWait)
		}
		select {
		case <-time.After(enablePollStep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// confirm waits for the confirm control's disabled→enabled transition, then
// presses it. A disabled confirm is never clicked; if it never enables the
// step is logged and execution continues, since not every workflow variant
// has a confirm layer.
func (s *SelectorStepper) confirm(ctx context.Context) {
	if s.sel.ConfirmButton == "" {
		return
	}

	if err := s.awaitEnabled(ctx, s.sel.ConfirmButton); err != nil {
		s.logger.Warn("Confirm control never enabled; continuing without it.", zap.Error(err))
		return
	}
	if err := s.page.Click(ctx, s.sel.ConfirmButton); err != nil {
		s.logger.Warn("Confirm click failed; continuing.", zap.Error(err))
	}
}

// matchOption returns the index of the option matching wanted: exact match
// first (case-insensitive, trimmed), then substring containment.
func matchOption(options []ElementInfo, wanted string) int {
	want := strings.ToLower(strings.TrimSpace(wanted))

	for i, opt := range options {
		if strings.ToLower(strings.TrimSpace(opt.Text)) == want {
			return i
		}
	}
	for i, opt := range options {
		if strings.Contains(strings.ToLower(opt.Text), want) {
			return i
		}
	}
	return -1
}
