// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the browser process lifecycle. It holds the exec allocator
// context from which sessions (tabs) are derived.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocCtx    context.Context
	allocCancel context.CancelFunc

	mu       sync.Mutex
	sessions []*Session
}

// NewManager creates the allocator for a browser process. The process itself
// launches lazily when the first session runs an action.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Manager {
	opts := execOptions(cfg.Browser)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)

	return &Manager{
		logger:      logger.Named("browser_manager"),
		cfg:         cfg,
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}
}

// execOptions translates browser config into chromedp allocator options.
func execOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		// Recommended for stability in containers and headless environments.
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.DisableGPU {
		opts = append(opts, chromedp.DisableGPU)
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

// NewSession opens a new tab and verifies the CDP connection.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	tabCtx, tabCancel := chromedp.NewContext(m.allocCtx)

	// Force target creation now so a broken Chrome install fails loudly here
	// instead of on the first navigation.
	initCtx, initCancel := context.WithTimeout(ctx, 60*time.Second)
	defer initCancel()
	if err := chromedp.Run(initCtx); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to connect browser target: %w", err)
	}

	s := newSession(tabCtx, tabCancel, m.cfg, m.logger)

	m.mu.Lock()
	m.sessions = append(m.sessions, s)
	m.mu.Unlock()

	m.logger.Info("New browser session created.", zap.String("session_id", s.ID()))
	return s, nil
}

// Shutdown closes all sessions and tears down the browser process.
func (m *Manager) Shutdown() {
	m.logger.Info("Shutting down browser manager.")

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = nil
	m.mu.Unlock()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()

	for _, s := range sessions {
		if err := s.Close(closeCtx); err != nil {
			m.logger.Warn("Error closing session during shutdown.",
				zap.String("session_id", s.ID()), zap.Error(err))
		}
	}

	m.allocCancel()
	m.logger.Info("Browser manager shutdown complete.")
}
