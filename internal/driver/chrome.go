package driver

import (
	"context"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Chrome launches Chromium, optionally emulating a named mobile device.
type Chrome struct {
	Headless   bool
	Mobile     bool
	DeviceName string
	SlowMo     time.Duration
}

func (c *Chrome) Kind() Kind { return KindChrome }

// LaunchOptions returns the Chromium launch parameters.
func (c *Chrome) LaunchOptions() playwright.BrowserTypeLaunchOptions {
	return playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(c.Headless),
		SlowMo:   slowMoMS(c.SlowMo),
	}
}

// ContextOptions returns the context parameters. With Mobile set, the named
// preset's viewport, screen, user agent, scale factor and touch flags apply.
func (c *Chrome) ContextOptions(devices DeviceTable) (playwright.BrowserNewContextOptions, error) {
	if !c.Mobile {
		return playwright.BrowserNewContextOptions{}, nil
	}
	device, err := devices.Lookup(c.DeviceName)
	if err != nil {
		return playwright.BrowserNewContextOptions{}, err
	}
	return emulate(device), nil
}

func (c *Chrome) Launch(ctx context.Context, eng *Engine) (playwright.Browser, error) {
	return launch(ctx, KindChrome, eng.pw.Chromium, c.LaunchOptions())
}

func (c *Chrome) NewContext(ctx context.Context, eng *Engine, browser playwright.Browser) (playwright.BrowserContext, error) {
	opts, err := c.ContextOptions(eng.Devices())
	if err != nil {
		return nil, err
	}
	return newContext(ctx, KindChrome, browser, opts)
}

func emulate(d *playwright.DeviceDescriptor) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(d.UserAgent),
		DeviceScaleFactor: playwright.Float(d.DeviceScaleFactor),
		IsMobile:          playwright.Bool(d.IsMobile),
		HasTouch:          playwright.Bool(d.HasTouch),
	}
	if d.Viewport != nil {
		opts.Viewport = &playwright.Size{Width: d.Viewport.Width, Height: d.Viewport.Height}
	}
	if d.Screen != nil {
		opts.Screen = &playwright.Size{Width: d.Screen.Width, Height: d.Screen.Height}
	}
	return opts
}
