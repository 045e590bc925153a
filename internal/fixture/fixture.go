// Package fixture owns the per-test browser session: one engine, one browser,
// one context and one page, acquired in that order and released in reverse.
package fixture

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/storefront-e2e/internal/config"
	"github.com/kuitang/storefront-e2e/internal/driver"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/pages"
)

// Session is an isolated browser session ready for page objects.
type Session struct {
	Config         *config.Config
	Driver         driver.Driver
	Engine         *driver.Engine
	Browser        playwright.Browser
	BrowserContext playwright.BrowserContext
	Page           playwright.Page
	Surface        *pages.PlaywrightSurface

	teardown *Teardown
}

// Open resolves the configured driver, then starts the engine, launches the
// browser and creates the context and page. The browser name is validated
// before any process starts. On failure nothing stays running.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	d, err := driver.New(cfg.Browser, driver.Options{
		Headless:   cfg.Headless,
		Mobile:     cfg.Mobile,
		DeviceName: cfg.DeviceName,
		SlowMo:     cfg.SlowMo,
	})
	if err != nil {
		return nil, err
	}

	ctx = obs.WithCorrelation(ctx, obs.Correlation{Browser: string(d.Kind())})
	s := &Session{Config: cfg, Driver: d}

	td, err := Acquire(ctx, []Step{
		{Name: "engine", Acquire: func(ctx context.Context) (func() error, error) {
			eng, err := driver.StartEngine(ctx)
			if err != nil {
				return nil, err
			}
			s.Engine = eng
			return eng.Stop, nil
		}},
		{Name: "browser", Acquire: func(ctx context.Context) (func() error, error) {
			browser, err := d.Launch(ctx, s.Engine)
			if err != nil {
				return nil, err
			}
			s.Browser = browser
			return func() error { return browser.Close() }, nil
		}},
		{Name: "context", Acquire: func(ctx context.Context) (func() error, error) {
			bctx, err := d.NewContext(ctx, s.Engine, s.Browser)
			if err != nil {
				return nil, err
			}
			bctx.SetDefaultTimeout(float64(cfg.ActionTimeout.Milliseconds()))
			bctx.SetDefaultNavigationTimeout(float64(cfg.NavigationTimeout.Milliseconds()))
			s.BrowserContext = bctx
			return func() error { return bctx.Close() }, nil
		}},
		{Name: "page", Acquire: func(ctx context.Context) (func() error, error) {
			page, err := s.BrowserContext.NewPage()
			if err != nil {
				return nil, errs.Wrap(errs.Unavailable, "open page", err)
			}
			s.Page = page
			return func() error { return page.Close() }, nil
		}},
	})
	if err != nil {
		return nil, err
	}

	s.teardown = td
	s.Surface = pages.NewPlaywrightSurface(s.Page, cfg.ActionTimeout, cfg.NavigationTimeout)
	obs.From(ctx).Info("session opened", "pkg", "fixture", "mobile", cfg.Mobile && d.Kind() == driver.KindChrome)
	return s, nil
}

// Close releases page, context, browser and engine in that order. It is safe
// to call more than once.
func (s *Session) Close() error {
	if s == nil || s.teardown == nil {
		return nil
	}
	return s.teardown.Run()
}

// Login navigates to the base URL and signs in with the configured
// credentials. It owns no resources of its own.
func (s *Session) Login(ctx context.Context) (*pages.LoginPage, error) {
	login := pages.NewLoginPage(s.Surface)
	if err := login.Navigate(ctx, s.Config.BaseURL); err != nil {
		return nil, err
	}
	if err := login.Login(ctx, s.Config.Username, s.Config.Password); err != nil {
		return nil, err
	}
	return login, nil
}

// Screenshot captures the current page.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.Surface.Screenshot(ctx)
}
