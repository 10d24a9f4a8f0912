// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/config"
	"github.com/LabsAtivai/boaventura/internal/navigator"
)

// Session wraps a single browser tab and exposes the page primitives the
// navigation core is written against. Every primitive is timeout-bounded and
// treats the remote UI as unreliable; callers wrap them in retries.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    *config.Config

	mu       sync.Mutex
	isClosed bool
}

// Session is the production implementation of the navigation core's facade.
var _ navigator.Page = (*Session)(nil)

func newSession(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, logger *zap.Logger) *Session {
	sessionID := uuid.New().String()
	return &Session{
		id:     sessionID,
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.Named("session").With(zap.String("session_id", sessionID)),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// actionTimeout returns the configured per-action bound.
func (s *Session) actionTimeout() time.Duration {
	if t := s.cfg.Browser.ActionTimeout; t > 0 {
		return t
	}
	return 30 * time.Second
}

// run executes chromedp actions bounded by both the session lifetime and the
// supplied operation context.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, opCancel := combineContext(s.ctx, ctx)
	defer opCancel()

	runCtx, runCancel := context.WithTimeout(opCtx, timeout)
	defer runCancel()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads the URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating to URL", zap.String("url", url))

	navTimeout := s.cfg.Browser.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = 90 * time.Second
	}

	if err := s.run(ctx, navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Click scrolls the first match into view and clicks it.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.actionTimeout(),
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("click failed for selector %q: %w", selector, err)
	}
	return nil
}

// ClickNth clicks the element at index among all matches of selector. The
// click is dispatched in page because CSS has no nth-match addressing for
// arbitrary selectors.
func (s *Session) ClickNth(ctx context.Context, selector string, index int) error {
	script := fmt.Sprintf(`(function() {
		const els = document.querySelectorAll(%q);
		if (%d >= els.length) { return false; }
		els[%d].scrollIntoView({block: 'center'});
		els[%d].click();
		return true;
	})()`, selector, index, index, index)

	var clicked bool
	if err := s.run(ctx, s.actionTimeout(), chromedp.Evaluate(script, &clicked)); err != nil {
		return fmt.Errorf("indexed click failed for selector %q[%d]: %w", selector, index, err)
	}
	if !clicked {
		return fmt.Errorf("indexed click: no element at %q[%d]", selector, index)
	}
	return nil
}

// Text reads the visible text of the first match.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	var out string
	if err := s.run(ctx, s.actionTimeout(),
		chromedp.Text(selector, &out, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("text read failed for selector %q: %w", selector, err)
	}
	return out, nil
}

// Elements returns text, aria-label and disabled state for every match of
// selector, in document order.
func (s *Session) Elements(ctx context.Context, selector string) ([]navigator.ElementInfo, error) {
	script := fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map(el => ({
		text: (el.innerText || el.textContent || ''),
		label: el.getAttribute('aria-label') || '',
		disabled: el.hasAttribute('disabled')
			|| el.getAttribute('aria-disabled') === 'true'
			|| el.classList.contains('mat-calendar-body-disabled'),
	}))`, selector)

	var infos []navigator.ElementInfo
	if err := s.run(ctx, s.actionTimeout(), chromedp.Evaluate(script, &infos)); err != nil {
		return nil, fmt.Errorf("element enumeration failed for selector %q: %w", selector, err)
	}
	return infos, nil
}

// Count returns the number of elements currently matching selector.
func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, selector)
	if err := s.run(ctx, s.actionTimeout(), chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("count failed for selector %q: %w", selector, err)
	}
	return n, nil
}

// Exists polls for the selector to appear, bounded by timeout. A false return
// means "not there within the bound", never an error.
func (s *Session) Exists(ctx context.Context, selector string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)

	for {
		var present bool
		err := s.run(ctx, s.actionTimeout(), chromedp.Evaluate(script, &present))
		if err == nil && present {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		select {
		case <-time.After(200 * time.Millisecond):
		case <-ctx.Done():
			return false
		}
	}
}

// WaitVisible blocks until the first match is visible.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait visible timed out for selector %q: %w", selector, err)
	}
	return nil
}

// WaitHidden blocks until no match is visible.
func (s *Session) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitNotVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait hidden timed out for selector %q: %w", selector, err)
	}
	return nil
}

// WaitDetached blocks until the selector no longer matches any node.
func (s *Session) WaitDetached(ctx context.Context, selector string, timeout time.Duration) error {
	if err := s.run(ctx, timeout, chromedp.WaitNotPresent(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait detached timed out for selector %q: %w", selector, err)
	}
	return nil
}

// OuterHTML captures the serialized HTML of the first match.
func (s *Session) OuterHTML(ctx context.Context, selector string) (string, error) {
	var html string
	if err := s.run(ctx, s.actionTimeout(),
		chromedp.OuterHTML(selector, &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("outer html read failed for selector %q: %w", selector, err)
	}
	return html, nil
}

// PressEscape sends an Escape key event to the page.
func (s *Session) PressEscape(ctx context.Context) error {
	if err := s.run(ctx, s.actionTimeout(), chromedp.KeyEvent(kb.Escape)); err != nil {
		return fmt.Errorf("escape key dispatch failed: %w", err)
	}
	return nil
}

// Close tears down the tab. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return nil
	}
	s.isClosed = true

	s.logger.Debug("Closing session.")
	s.cancel()
	return nil
}

// combineContext derives a context cancelled when either parent is done. The
// session context carries the CDP target, so it must stay the chromedp parent;
// the operation context contributes deadline and cancellation.
func combineContext(sessionCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(sessionCtx)
	stop := context.AfterFunc(opCtx, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
