// internal/navigator/auto_test.go
package navigator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/schedule"
)

type stubNavigator struct {
	calls int
	ok    bool
}

func (s *stubNavigator) GoToDate(context.Context, schedule.Date) (bool, error) {
	s.calls++
	return s.ok, nil
}

func TestAutoNavigatorProbesVariant(t *testing.T) {
	sels := testSelectors()
	target := schedule.Date{Day: 5, Month: 3, Year: 2026}

	t.Run("calendar trigger present", func(t *testing.T) {
		f := &fakePage{}
		f.existsFn = func(sel string, _ time.Duration) bool {
			return sel == sels.CalendarTrigger
		}
		cal := &stubNavigator{ok: true}
		step := &stubNavigator{}
		nav := NewAutoNavigator(f, sels.CalendarTrigger, cal, step, zap.NewNop())

		ok, err := nav.GoToDate(context.Background(), target)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, cal.calls)
		assert.Zero(t, step.calls)
	})

	t.Run("calendar trigger absent", func(t *testing.T) {
		f := &fakePage{}
		cal := &stubNavigator{}
		step := &stubNavigator{ok: true}
		nav := NewAutoNavigator(f, sels.CalendarTrigger, cal, step, zap.NewNop())

		ok, err := nav.GoToDate(context.Background(), target)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Zero(t, cal.calls)
		assert.Equal(t, 1, step.calls)
	})
}
