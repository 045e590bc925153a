package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/storefront-e2e/internal/errs"
)

// Surface is the page capability the page objects drive. Every method blocks
// until the browser acknowledges the action or the bound expires.
type Surface interface {
	Goto(ctx context.Context, url string) error
	Fill(ctx context.Context, locator, text string) error
	Click(ctx context.Context, locator string) error
	InnerText(ctx context.Context, locator string) (string, error)
	SelectOption(ctx context.Context, locator, value string) error
	// AllInnerTexts waits for the first match, then returns the text of every match.
	AllInnerTexts(ctx context.Context, locator string) ([]string, error)
	// Count returns the number of matches without waiting.
	Count(ctx context.Context, locator string) (int, error)
	Screenshot(ctx context.Context) ([]byte, error)
	AddScript(ctx context.Context, url string) error
	Evaluate(ctx context.Context, expression string) (any, error)
	URL() string
}

// PlaywrightSurface adapts a playwright.Page to Surface.
type PlaywrightSurface struct {
	page       playwright.Page
	action     time.Duration
	navigation time.Duration
}

// NewPlaywrightSurface wraps page. Interactions are bounded by action and
// navigations by navigation, or by the context deadline when that is sooner.
func NewPlaywrightSurface(page playwright.Page, action, navigation time.Duration) *PlaywrightSurface {
	return &PlaywrightSurface{page: page, action: action, navigation: navigation}
}

// Page returns the wrapped page.
func (s *PlaywrightSurface) Page() playwright.Page { return s.page }

func (s *PlaywrightSurface) Goto(ctx context.Context, url string) error {
	timeout, err := boundMS(ctx, s.navigation)
	if err != nil {
		return interactionErr("navigate to", url, err)
	}
	if _, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeout,
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return interactionErr("navigate to", url, err)
	}
	return nil
}

func (s *PlaywrightSurface) Fill(ctx context.Context, locator, text string) error {
	timeout, err := boundMS(ctx, s.action)
	if err != nil {
		return interactionErr("fill", locator, err)
	}
	if err := s.page.Locator(locator).Fill(text, playwright.LocatorFillOptions{Timeout: timeout}); err != nil {
		return interactionErr("fill", locator, err)
	}
	return nil
}

func (s *PlaywrightSurface) Click(ctx context.Context, locator string) error {
	timeout, err := boundMS(ctx, s.action)
	if err != nil {
		return interactionErr("click", locator, err)
	}
	if err := s.page.Locator(locator).Click(playwright.LocatorClickOptions{Timeout: timeout}); err != nil {
		return interactionErr("click", locator, err)
	}
	return nil
}

func (s *PlaywrightSurface) InnerText(ctx context.Context, locator string) (string, error) {
	timeout, err := boundMS(ctx, s.action)
	if err != nil {
		return "", interactionErr("read text of", locator, err)
	}
	text, err := s.page.Locator(locator).First().InnerText(playwright.LocatorInnerTextOptions{Timeout: timeout})
	if err != nil {
		return "", interactionErr("read text of", locator, err)
	}
	return text, nil
}

func (s *PlaywrightSurface) SelectOption(ctx context.Context, locator, value string) error {
	timeout, err := boundMS(ctx, s.action)
	if err != nil {
		return interactionErr("select option in", locator, err)
	}
	_, err = s.page.Locator(locator).SelectOption(
		playwright.SelectOptionValues{Values: &[]string{value}},
		playwright.LocatorSelectOptionOptions{Timeout: timeout},
	)
	if err != nil {
		return interactionErr("select option in", locator, err)
	}
	return nil
}

func (s *PlaywrightSurface) AllInnerTexts(ctx context.Context, locator string) ([]string, error) {
	timeout, err := boundMS(ctx, s.action)
	if err != nil {
		return nil, interactionErr("read texts of", locator, err)
	}
	loc := s.page.Locator(locator)
	if err := loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: timeout,
	}); err != nil {
		return nil, interactionErr("read texts of", locator, err)
	}
	texts, err := bounded(ctx, s.action, loc.AllInnerTexts)
	if err != nil {
		return nil, interactionErr("read texts of", locator, err)
	}
	return texts, nil
}

func (s *PlaywrightSurface) Count(ctx context.Context, locator string) (int, error) {
	n, err := bounded(ctx, s.action, s.page.Locator(locator).Count)
	if err != nil {
		return 0, interactionErr("count", locator, err)
	}
	return n, nil
}

func (s *PlaywrightSurface) Screenshot(ctx context.Context) ([]byte, error) {
	timeout, err := boundMS(ctx, s.action)
	if err != nil {
		return nil, interactionErr("screenshot", s.page.URL(), err)
	}
	png, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Timeout:  timeout,
	})
	if err != nil {
		return nil, interactionErr("screenshot", s.page.URL(), err)
	}
	return png, nil
}

func (s *PlaywrightSurface) AddScript(ctx context.Context, url string) error {
	_, err := bounded(ctx, s.navigation, func() (playwright.ElementHandle, error) {
		return s.page.AddScriptTag(playwright.PageAddScriptTagOptions{URL: playwright.String(url)})
	})
	if err != nil {
		return interactionErr("inject script", url, err)
	}
	return nil
}

func (s *PlaywrightSurface) Evaluate(ctx context.Context, expression string) (any, error) {
	v, err := bounded(ctx, s.action, func() (any, error) {
		return s.page.Evaluate(expression)
	})
	if err != nil {
		return nil, interactionErr("evaluate", "script", err)
	}
	return v, nil
}

func (s *PlaywrightSurface) URL() string { return s.page.URL() }

// boundMS returns the smaller of d and the time left on ctx, in milliseconds.
// Playwright treats 0 as "no timeout", so the result is never below 1.
func boundMS(ctx context.Context, d time.Duration) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < d || d <= 0 {
			d = remaining
		}
		if d <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	if d <= 0 {
		return nil, nil
	}
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(float64(ms)), nil
}

// bounded runs call and waits at most boundMS(ctx, d) for it, for page calls
// that take no timeout option. A call still running when the bound expires
// is abandoned; it ends when the page closes.
func bounded[T any](ctx context.Context, d time.Duration, call func() (T, error)) (T, error) {
	var zero T
	timeout, err := boundMS(ctx, d)
	if err != nil {
		return zero, err
	}

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := call()
		done <- outcome{v, err}
	}()

	var expired <-chan time.Time
	if timeout != nil {
		timer := time.NewTimer(time.Duration(*timeout) * time.Millisecond)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-expired:
		return zero, fmt.Errorf("no response within %vms: %w", *timeout, context.DeadlineExceeded)
	}
}

func interactionErr(action, target string, err error) error {
	return errs.Wrap(errs.Interaction, fmt.Sprintf("%s %s", action, target), err)
}
