package driver

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
)

// EdgeChannel selects the Microsoft Edge build of the Chromium engine.
const EdgeChannel = "msedge"

// Edge launches Microsoft Edge through the Chromium engine.
type Edge struct {
	Headless bool
	SlowMo   time.Duration
}

func (e *Edge) Kind() Kind { return KindEdge }

func (e *Edge) LaunchOptions() playwright.BrowserTypeLaunchOptions {
	return playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.Headless),
		Channel:  playwright.String(EdgeChannel),
		SlowMo:   slowMoMS(e.SlowMo),
	}
}

// ContextOptions always returns a plain context.
func (e *Edge) ContextOptions(DeviceTable) (playwright.BrowserNewContextOptions, error) {
	return playwright.BrowserNewContextOptions{}, nil
}

func (e *Edge) Launch(ctx context.Context, eng *Engine) (playwright.Browser, error) {
	return launch(ctx, KindEdge, eng.pw.Chromium, e.LaunchOptions())
}

func (e *Edge) NewContext(ctx context.Context, eng *Engine, browser playwright.Browser) (playwright.BrowserContext, error) {
	opts, _ := e.ContextOptions(eng.Devices())
	return newContext(ctx, KindEdge, browser, opts)
}
