package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/config"
)

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context did not cancel within bound")
	}
}

func TestCombineContextCancelsWithOperation(t *testing.T) {
	sessionCtx := context.Background()
	opCtx, opCancel := context.WithCancel(context.Background())

	combined, cancel := combineContext(sessionCtx, opCtx)
	defer cancel()

	assert.NoError(t, combined.Err())
	opCancel()
	waitDone(t, combined)
}

func TestCombineContextCancelsWithSession(t *testing.T) {
	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	defer sessionCancel()

	combined, cancel := combineContext(sessionCtx, context.Background())
	defer cancel()

	sessionCancel()
	waitDone(t, combined)
}

func TestCombineContextReleaseStopsWatcher(t *testing.T) {
	opCtx, opCancel := context.WithCancel(context.Background())
	defer opCancel()

	combined, cancel := combineContext(context.Background(), opCtx)
	cancel()
	waitDone(t, combined)
}

func TestActionTimeoutFallsBackToDefault(t *testing.T) {
	s := &Session{cfg: &config.Config{}, logger: zap.NewNop()}
	assert.Equal(t, 30*time.Second, s.actionTimeout())

	s.cfg.Browser.ActionTimeout = 5 * time.Second
	assert.Equal(t, 5*time.Second, s.actionTimeout())
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	cancelled := 0
	s := newSession(context.Background(), func() { cancelled++ }, &config.Config{}, zap.NewNop())

	assert.NoError(t, s.Close(context.Background()))
	assert.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, cancelled)
}
