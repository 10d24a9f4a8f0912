// internal/navigator/overlay.go
package navigator

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OverlayGuard clears transient modal backdrops that would otherwise swallow
// clicks. Its one operation is best-effort by contract: every sub-step
// tolerates failure and the guard never reports one.
type OverlayGuard struct {
	page     Page
	backdrop string
	logger   *zap.Logger
}

// NewOverlayGuard builds a guard for the given backdrop selector.
func NewOverlayGuard(page Page, backdrop string, logger *zap.Logger) *OverlayGuard {
	return &OverlayGuard{
		page:     page,
		backdrop: backdrop,
		logger:   logger.Named("overlay_guard"),
	}
}

// Dismiss sends an escape, and if a backdrop is still attached, clicks it
// (outside any modal content) and waits briefly for it to detach. Failures in
// any step are logged at debug and swallowed.
func (g *OverlayGuard) Dismiss(ctx context.Context) {
	if err := g.page.PressEscape(ctx); err != nil {
		g.logger.Debug("Escape dispatch failed while dismissing overlays.", zap.Error(err))
	}

	select {
	case <-time.After(300 * time.Millisecond):
	case <-ctx.Done():
		return
	}

	if !g.page.Exists(ctx, g.backdrop, 500*time.Millisecond) {
		return
	}

	g.logger.Debug("Overlay backdrop still attached after escape; clicking it.")
	if err := g.page.Click(ctx, g.backdrop); err != nil {
		g.logger.Debug("Backdrop click failed.", zap.Error(err))
	}

	if err := g.page.WaitDetached(ctx, g.backdrop, 3*time.Second); err != nil {
		g.logger.Debug("Overlay backdrop did not detach within bound.", zap.Error(err))
	}
}
