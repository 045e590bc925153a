package driver

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/playwright-community/playwright-go"
	"pgregory.net/rapid"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

func testDevices() DeviceTable {
	return DeviceTable{
		"iPhone X": {
			UserAgent:         "Mozilla/5.0 (iPhone; CPU iPhone OS 11_0 like Mac OS X) Mobile/15A372 Safari/604.1",
			Viewport:          &playwright.Size{Width: 375, Height: 812},
			Screen:            &playwright.Size{Width: 375, Height: 812},
			DeviceScaleFactor: 3,
			IsMobile:          true,
			HasTouch:          true,
		},
		"Desktop Chrome": {
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/130.0 Safari/537.36",
			Viewport:          &playwright.Size{Width: 1280, Height: 720},
			DeviceScaleFactor: 1,
		},
	}
}

// randomCase flips the case of each letter and pads with whitespace.
func randomCase(t *rapid.T, name string) string {
	var b strings.Builder
	b.WriteString(rapid.SampledFrom([]string{"", " ", "\t"}).Draw(t, "lead"))
	for i, r := range name {
		if rapid.Bool().Draw(t, "upper_"+string(rune('a'+i%26))) {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteString(rapid.SampledFrom([]string{"", " ", "\n"}).Draw(t, "trail"))
	return b.String()
}

func testNew_MatchesKnownNamesInAnyCase(t *rapid.T) {
	kind := rapid.SampledFrom(kinds).Draw(t, "kind")
	name := randomCase(t, string(kind))
	opts := Options{
		Headless: rapid.Bool().Draw(t, "headless"),
		Mobile:   rapid.Bool().Draw(t, "mobile"),
	}

	d, err := New(name, opts)
	if err != nil {
		t.Fatalf("New(%q) error: %v", name, err)
	}
	if d.Kind() != kind {
		t.Fatalf("New(%q).Kind() = %q, want %q", name, d.Kind(), kind)
	}

	switch kind {
	case KindChrome:
		c, ok := d.(*Chrome)
		if !ok {
			t.Fatalf("expected *Chrome, got %T", d)
		}
		if c.Headless != opts.Headless || c.Mobile != opts.Mobile {
			t.Fatalf("chrome options not carried: %+v vs %+v", c, opts)
		}
	case KindFirefox:
		f, ok := d.(*Firefox)
		if !ok {
			t.Fatalf("expected *Firefox, got %T", d)
		}
		if f.Headless != opts.Headless {
			t.Fatal("firefox headless not carried")
		}
	case KindEdge:
		e, ok := d.(*Edge)
		if !ok {
			t.Fatalf("expected *Edge, got %T", d)
		}
		if e.Headless != opts.Headless {
			t.Fatal("edge headless not carried")
		}
	}
}

func TestNew_MatchesKnownNamesInAnyCase(t *testing.T) {
	restore := obs.SetOutputForTests(&bytes.Buffer{})
	defer restore()
	rapid.Check(t, testNew_MatchesKnownNamesInAnyCase)
}

func testNew_RejectsUnknownNames(t *rapid.T) {
	name := rapid.StringMatching(`[a-zA-Z0-9_-]{0,16}`).Draw(t, "name")
	if _, err := ParseKind(name); err == nil {
		t.Skip("drew a valid browser name")
	}

	d, err := New(name, Options{})
	if err == nil {
		t.Fatalf("New(%q) returned %T, want error", name, d)
	}
	if errs.CodeOf(err) != errs.InvalidArgument {
		t.Fatalf("New(%q) code = %q, want invalid_argument", name, errs.CodeOf(err))
	}
	if !strings.Contains(err.Error(), name) {
		t.Fatalf("error %q does not name the input %q", err.Error(), name)
	}
}

func TestNew_RejectsUnknownNames(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testNew_RejectsUnknownNames)
}

func TestNew_InvalidNameMessage(t *testing.T) {
	t.Parallel()
	_, err := New("safari", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := errs.MessageOf(err); got != `invalid browser name: "safari"` {
		t.Fatalf("message = %q", got)
	}
}

func TestNew_MobileIgnoredOutsideChromeIsLogged(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutputForTests(&buf)
	defer restore()

	if _, err := New("firefox", Options{Mobile: true, DeviceName: "iPhone X"}); err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.Contains(buf.String(), "mobile emulation ignored") {
		t.Fatalf("expected warning, got %q", buf.String())
	}

	buf.Reset()
	if _, err := New("chrome", Options{Mobile: true, DeviceName: "iPhone X"}); err != nil {
		t.Fatalf("New: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("chrome should not warn, got %q", buf.String())
	}
}

func TestChrome_MobileContextMatchesPreset(t *testing.T) {
	t.Parallel()
	devices := testDevices()
	c := &Chrome{Headless: true, Mobile: true, DeviceName: "iPhone X"}

	opts, err := c.ContextOptions(devices)
	if err != nil {
		t.Fatalf("ContextOptions: %v", err)
	}
	preset := devices["iPhone X"]
	if opts.UserAgent == nil || *opts.UserAgent != preset.UserAgent {
		t.Errorf("user agent = %v, want %q", opts.UserAgent, preset.UserAgent)
	}
	if opts.Viewport == nil || *opts.Viewport != *preset.Viewport {
		t.Errorf("viewport = %+v, want %+v", opts.Viewport, preset.Viewport)
	}
	if opts.Screen == nil || *opts.Screen != *preset.Screen {
		t.Errorf("screen = %+v, want %+v", opts.Screen, preset.Screen)
	}
	if opts.DeviceScaleFactor == nil || *opts.DeviceScaleFactor != preset.DeviceScaleFactor {
		t.Errorf("scale factor = %v", opts.DeviceScaleFactor)
	}
	if opts.IsMobile == nil || !*opts.IsMobile {
		t.Error("IsMobile not set")
	}
	if opts.HasTouch == nil || !*opts.HasTouch {
		t.Error("HasTouch not set")
	}

	// The preset must not be aliased into the options.
	opts.Viewport.Width = 1
	if preset.Viewport.Width != 375 {
		t.Fatal("ContextOptions aliased the preset viewport")
	}
}

func TestChrome_DesktopContextHasNoEmulation(t *testing.T) {
	t.Parallel()
	c := &Chrome{Headless: true, DeviceName: "iPhone X"}
	opts, err := c.ContextOptions(testDevices())
	if err != nil {
		t.Fatalf("ContextOptions: %v", err)
	}
	if !reflect.DeepEqual(opts, playwright.BrowserNewContextOptions{}) {
		t.Fatalf("expected zero options, got %+v", opts)
	}
}

func TestChrome_UnknownDeviceIsLookupError(t *testing.T) {
	t.Parallel()
	c := &Chrome{Mobile: true, DeviceName: "Nokia 3310"}
	_, err := c.ContextOptions(testDevices())
	if errs.CodeOf(err) != errs.NotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	if !strings.Contains(err.Error(), "Nokia 3310") {
		t.Fatalf("error should name the device: %v", err)
	}
}

func testNonChrome_MobileHasNoEffect(t *rapid.T) {
	kind := rapid.SampledFrom([]Kind{KindFirefox, KindEdge}).Draw(t, "kind")
	device := rapid.SampledFrom([]string{"iPhone X", "Desktop Chrome", "missing"}).Draw(t, "device")

	restore := obs.SetOutputForTests(&bytes.Buffer{})
	defer restore()

	withMobile, err := New(string(kind), Options{Mobile: true, DeviceName: device})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	withoutMobile, err := New(string(kind), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	type contextOptioner interface {
		ContextOptions(DeviceTable) (playwright.BrowserNewContextOptions, error)
	}
	a, err := withMobile.(contextOptioner).ContextOptions(testDevices())
	if err != nil {
		t.Fatalf("ContextOptions with mobile: %v", err)
	}
	b, _ := withoutMobile.(contextOptioner).ContextOptions(testDevices())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("mobile flag changed %s context options: %+v vs %+v", kind, a, b)
	}
}

func TestNonChrome_MobileHasNoEffect(t *testing.T) {
	rapid.Check(t, testNonChrome_MobileHasNoEffect)
}

func TestLaunchOptions(t *testing.T) {
	t.Parallel()

	edge := (&Edge{Headless: true}).LaunchOptions()
	if edge.Channel == nil || *edge.Channel != EdgeChannel {
		t.Fatalf("edge channel = %v, want %q", edge.Channel, EdgeChannel)
	}
	if edge.Headless == nil || !*edge.Headless {
		t.Fatal("edge headless not set")
	}

	chrome := (&Chrome{Headless: false, SlowMo: 250 * time.Millisecond}).LaunchOptions()
	if chrome.Channel != nil {
		t.Fatalf("chrome should use the bundled chromium, got channel %q", *chrome.Channel)
	}
	if chrome.Headless == nil || *chrome.Headless {
		t.Fatal("chrome headless should be false")
	}
	if chrome.SlowMo == nil || *chrome.SlowMo != 250 {
		t.Fatalf("chrome slow mo = %v", chrome.SlowMo)
	}

	firefox := (&Firefox{Headless: true}).LaunchOptions()
	if firefox.SlowMo != nil || firefox.Channel != nil {
		t.Fatalf("firefox options = %+v", firefox)
	}
}

func TestLaunchTimeoutFollowsDeadline(t *testing.T) {
	t.Parallel()
	if got := launchTimeoutMS(context.Background()); got != nil {
		t.Fatalf("no deadline should leave timeout unset, got %v", *got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	got := launchTimeoutMS(ctx)
	if got == nil || *got <= 0 || *got > 2000 {
		t.Fatalf("timeout = %v, want (0, 2000]", got)
	}
}

func TestDeviceTable_Names(t *testing.T) {
	t.Parallel()
	names := testDevices().Names()
	if !reflect.DeepEqual(names, []string{"Desktop Chrome", "iPhone X"}) {
		t.Fatalf("Names() = %v", names)
	}
}

func TestInstallName(t *testing.T) {
	t.Parallel()
	cases := map[Kind]string{KindChrome: "chromium", KindFirefox: "firefox", KindEdge: "msedge"}
	for k, want := range cases {
		if got := installName(k); got != want {
			t.Errorf("installName(%s) = %q, want %q", k, got, want)
		}
	}
}
