package driver

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Firefox launches Firefox. It has no device emulation.
type Firefox struct {
	Headless bool
	SlowMo   time.Duration
}

func (f *Firefox) Kind() Kind { return KindFirefox }

func (f *Firefox) LaunchOptions() playwright.BrowserTypeLaunchOptions {
	return playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(f.Headless),
		SlowMo:   slowMoMS(f.SlowMo),
	}
}

// ContextOptions always returns a plain context.
func (f *Firefox) ContextOptions(DeviceTable) (playwright.BrowserNewContextOptions, error) {
	return playwright.BrowserNewContextOptions{}, nil
}

func (f *Firefox) Launch(ctx context.Context, eng *Engine) (playwright.Browser, error) {
	return launch(ctx, KindFirefox, eng.pw.Firefox, f.LaunchOptions())
}

func (f *Firefox) NewContext(ctx context.Context, eng *Engine, browser playwright.Browser) (playwright.BrowserContext, error) {
	opts, _ := f.ContextOptions(eng.Devices())
	return newContext(ctx, KindFirefox, browser, opts)
}
