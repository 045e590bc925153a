// Package pages holds the page objects for the storefront screens. Each
// screen embeds a *Base, which delegates its five primitives straight to a
// Surface; screens add fixed locators and compose the primitives into flows.
package pages

import (
	"context"

	"github.com/kuitang/storefront-e2e/internal/logutil"
	"github.com/kuitang/storefront-e2e/internal/obs"
)

const logPreviewChars = 120

// Base holds the interaction primitives shared by every screen.
type Base struct {
	surface Surface
}

// NewBase returns a Base over surface.
func NewBase(surface Surface) *Base {
	return &Base{surface: surface}
}

// Surface returns the underlying page capability.
func (b *Base) Surface() Surface { return b.surface }

func (b *Base) Navigate(ctx context.Context, url string) error {
	obs.From(ctx).Debug("navigate", "pkg", "pages", "url", url)
	return b.surface.Goto(ctx, url)
}

func (b *Base) Text(ctx context.Context, locator string) (string, error) {
	text, err := b.surface.InnerText(ctx, locator)
	if err != nil {
		return "", err
	}
	obs.From(ctx).Debug("read text", "pkg", "pages", "locator", locator, "text", logutil.TruncateForLog(text, logPreviewChars))
	return text, nil
}

// Fill types text into the field at locator. The value is not logged.
func (b *Base) Fill(ctx context.Context, locator, text string) error {
	obs.From(ctx).Debug("fill", "pkg", "pages", "locator", locator, "chars", len(text))
	return b.surface.Fill(ctx, locator, text)
}

func (b *Base) Click(ctx context.Context, locator string) error {
	obs.From(ctx).Debug("click", "pkg", "pages", "locator", locator)
	return b.surface.Click(ctx, locator)
}

func (b *Base) SelectOption(ctx context.Context, locator, value string) error {
	obs.From(ctx).Debug("select option", "pkg", "pages", "locator", locator, "value", value)
	return b.surface.SelectOption(ctx, locator, value)
}

// texts returns the text of every element matching locator.
func (b *Base) texts(ctx context.Context, locator string) ([]string, error) {
	texts, err := b.surface.AllInnerTexts(ctx, locator)
	if err != nil {
		return nil, err
	}
	obs.From(ctx).Debug("read texts", "pkg", "pages", "locator", locator, "count", len(texts))
	return texts, nil
}
