// Package driver launches browsers through Playwright. A Driver knows how to
// start one browser engine variant and how to open isolated contexts in it;
// New maps a configured browser name onto the matching variant.
package driver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

// Kind names a supported browser variant.
type Kind string

const (
	KindChrome  Kind = "chrome"
	KindFirefox Kind = "firefox"
	KindEdge    Kind = "edge"
)

var kinds = []Kind{KindChrome, KindFirefox, KindEdge}

// Driver launches a browser process and creates isolated contexts in it.
type Driver interface {
	Kind() Kind
	Launch(ctx context.Context, eng *Engine) (playwright.Browser, error)
	NewContext(ctx context.Context, eng *Engine, browser playwright.Browser) (playwright.BrowserContext, error)
}

// Options are the launch parameters handed to the factory.
type Options struct {
	Headless   bool
	Mobile     bool
	DeviceName string
	SlowMo     time.Duration
}

// ParseKind matches name case-insensitively against the supported variants.
func ParseKind(name string) (Kind, error) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, k := range kinds {
		if normalized == k {
			return k, nil
		}
	}
	return "", errs.New(errs.InvalidArgument, fmt.Sprintf("invalid browser name: %q", name))
}

// KindNames returns the supported names as a comma separated list.
func KindNames() string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// New returns the Driver for the named browser. Mobile emulation is only
// honoured by chrome; firefox and edge ignore it.
func New(name string, opts Options) (Driver, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return nil, err
	}

	if opts.Mobile && kind != KindChrome {
		obs.Pkg("driver").Warn("mobile emulation ignored", "browser", string(kind), "device", opts.DeviceName)
	}

	switch kind {
	case KindFirefox:
		return &Firefox{Headless: opts.Headless, SlowMo: opts.SlowMo}, nil
	case KindEdge:
		return &Edge{Headless: opts.Headless, SlowMo: opts.SlowMo}, nil
	default:
		return &Chrome{
			Headless:   opts.Headless,
			Mobile:     opts.Mobile,
			DeviceName: opts.DeviceName,
			SlowMo:     opts.SlowMo,
		}, nil
	}
}

// launchTimeoutMS bounds a launch by the context deadline, if any.
func launchTimeoutMS(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	remaining := time.Until(deadline)
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	return playwright.Float(float64(remaining.Milliseconds()))
}

func slowMoMS(d time.Duration) *float64 {
	if d <= 0 {
		return nil
	}
	return playwright.Float(float64(d.Milliseconds()))
}

func launch(ctx context.Context, kind Kind, bt playwright.BrowserType, opts playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts.Timeout = launchTimeoutMS(ctx)

	log := obs.From(ctx).With("pkg", "driver")
	log.Info("launching browser", "browser", string(kind), "headless", opts.Headless != nil && *opts.Headless)

	browser, err := bt.Launch(opts)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("launch %s", kind), err)
	}
	log.Info("browser launched", "browser", string(kind), "version", browser.Version())
	return browser, nil
}

func newContext(ctx context.Context, kind Kind, browser playwright.Browser, opts playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := browser.NewContext(opts)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, fmt.Sprintf("create %s context", kind), err)
	}
	obs.From(ctx).Debug("browser context created", "pkg", "driver", "browser", string(kind), "mobile", opts.IsMobile != nil && *opts.IsMobile)
	return bctx, nil
}
