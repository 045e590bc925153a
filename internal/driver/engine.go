package driver

import (
	"context"
	"fmt"
	"sort"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

// Engine is a running Playwright driver process. One Engine backs one session.
type Engine struct {
	pw      *playwright.Playwright
	devices DeviceTable
}

// StartEngine starts the Playwright driver.
func StartEngine(ctx context.Context) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "start playwright", err)
	}
	obs.From(ctx).Debug("playwright started", "pkg", "driver", "devices", len(pw.Devices))
	return &Engine{pw: pw, devices: DeviceTable(pw.Devices)}, nil
}

// Stop shuts the Playwright driver down.
func (e *Engine) Stop() error {
	if e == nil || e.pw == nil {
		return nil
	}
	return e.pw.Stop()
}

// Devices returns the engine's device preset table.
func (e *Engine) Devices() DeviceTable {
	return e.devices
}

// InstallBrowsers downloads the Playwright driver and the browsers the given
// kinds need.
func InstallBrowsers(kinds ...Kind) error {
	seen := map[string]bool{}
	var browsers []string
	for _, k := range kinds {
		name := installName(k)
		if !seen[name] {
			seen[name] = true
			browsers = append(browsers, name)
		}
	}
	if err := playwright.Install(&playwright.RunOptions{Browsers: browsers}); err != nil {
		return errs.Wrap(errs.Unavailable, "install playwright browsers", err)
	}
	return nil
}

func installName(k Kind) string {
	switch k {
	case KindFirefox:
		return "firefox"
	case KindEdge:
		return "msedge"
	default:
		return "chromium"
	}
}

// DeviceTable maps preset names ("iPhone X", "Pixel 5") to emulation parameters.
type DeviceTable map[string]*playwright.DeviceDescriptor

// Lookup returns the named preset or a NotFound error.
func (t DeviceTable) Lookup(name string) (*playwright.DeviceDescriptor, error) {
	if d, ok := t[name]; ok && d != nil {
		return d, nil
	}
	return nil, errs.New(errs.NotFound, fmt.Sprintf("unknown device preset: %q", name))
}

// Names returns the preset names in sorted order.
func (t DeviceTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
