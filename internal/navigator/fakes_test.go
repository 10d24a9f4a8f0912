// internal/navigator/fakes_test.go
package navigator

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/LabsAtivai/boaventura/internal/config"
)

// fakePage is a scriptable Page. Each behavior has a benign default; tests
// override only the functions they care about. Clicks and escapes are
// recorded for assertions.
type fakePage struct {
	clickFn        func(sel string) error
	clickNthFn     func(sel string, index int) error
	textFn         func(sel string) (string, error)
	elementsFn     func(sel string) ([]ElementInfo, error)
	countFn        func(sel string) (int, error)
	existsFn       func(sel string, timeout time.Duration) bool
	waitVisibleFn  func(sel string, timeout time.Duration) error
	waitHiddenFn   func(sel string, timeout time.Duration) error
	waitDetachedFn func(sel string, timeout time.Duration) error
	outerHTMLFn    func(sel string) (string, error)

	clicks  []string
	escapes int
}

var _ Page = (*fakePage)(nil)

func (f *fakePage) Click(_ context.Context, sel string) error {
	f.clicks = append(f.clicks, sel)
	if f.clickFn != nil {
		return f.clickFn(sel)
	}
	return nil
}

func (f *fakePage) ClickNth(_ context.Context, sel string, index int) error {
	f.clicks = append(f.clicks, fmt.Sprintf("%s[%d]", sel, index))
	if f.clickNthFn != nil {
		return f.clickNthFn(sel, index)
	}
	return nil
}

func (f *fakePage) Text(_ context.Context, sel string) (string, error) {
	if f.textFn != nil {
		return f.textFn(sel)
	}
	return "", nil
}

func (f *fakePage) Elements(_ context.Context, sel string) ([]ElementInfo, error) {
	if f.elementsFn != nil {
		return f.elementsFn(sel)
	}
	return nil, nil
}

func (f *fakePage) Count(_ context.Context, sel string) (int, error) {
	if f.countFn != nil {
		return f.countFn(sel)
	}
	return 0, nil
}

func (f *fakePage) Exists(_ context.Context, sel string, timeout time.Duration) bool {
	if f.existsFn != nil {
		return f.existsFn(sel, timeout)
	}
	return false
}

func (f *fakePage) WaitVisible(_ context.Context, sel string, timeout time.Duration) error {
	if f.waitVisibleFn != nil {
		return f.waitVisibleFn(sel, timeout)
	}
	return nil
}

func (f *fakePage) WaitHidden(_ context.Context, sel string, timeout time.Duration) error {
	if f.waitHiddenFn != nil {
		return f.waitHiddenFn(sel, timeout)
	}
	return nil
}

func (f *fakePage) WaitDetached(_ context.Context, sel string, timeout time.Duration) error {
	if f.waitDetachedFn != nil {
		return f.waitDetachedFn(sel, timeout)
	}
	return nil
}

func (f *fakePage) OuterHTML(_ context.Context, sel string) (string, error) {
	if f.outerHTMLFn != nil {
		return f.outerHTMLFn(sel)
	}
	return "", nil
}

func (f *fakePage) PressEscape(_ context.Context) error {
	f.escapes++
	return nil
}

// clicksOn counts recorded clicks whose target starts with sel.
func (f *fakePage) clicksOn(sel string) int {
	n := 0
	for _, c := range f.clicks {
		if c == sel || (len(c) > len(sel) && c[:len(sel)] == sel && c[len(sel)] == '[') {
			n++
		}
	}
	return n
}

// testSelectors returns the default selector set so tests and production
// share the same wiring shape.
func testSelectors() config.SelectorsConfig {
	v := viper.New()
	config.SetDefaults(v)
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return cfg.Selectors
}

func testTarget() config.TargetConfig {
	return config.TargetConfig{
		TypeOption:   "Justiça do Trabalho",
		RegionOption: "TRT da 1ª Região",
	}
}
