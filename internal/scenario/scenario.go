// Package scenario holds the end-to-end checks run against the storefront.
// Each scenario signs in, drives the page objects and returns an
// errs.AssertionFailed error when the page does not reach the expected state.
package scenario

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/config"
	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/obs"
	"github.com/kuitang/storefront-e2e/internal/pages"
)

// Checkout customer used by the checkout scenario.
const (
	CheckoutFirstName  = "Dennis"
	CheckoutLastName   = "Gamboa"
	CheckoutPostalCode = "0000"
	ConfirmationText   = "Thank you for your order!"
)

// CheckoutItems are added to the cart by the checkout scenario.
var CheckoutItems = []string{pages.ItemBackpack, pages.ItemBikeLight}

// Env is what a scenario needs from the session running it.
type Env struct {
	Surface      pages.Surface
	BaseURL      string
	Username     string
	Password     string
	AxeScriptURL string
}

// NewEnv binds cfg to a page surface.
func NewEnv(cfg *config.Config, surface pages.Surface) Env {
	return Env{
		Surface:      surface,
		BaseURL:      cfg.BaseURL,
		Username:     cfg.Username,
		Password:     cfg.Password,
		AxeScriptURL: cfg.AxeScriptURL,
	}
}

// Scenario is a named end-to-end check.
type Scenario struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env Env) error
}

var all = []Scenario{
	{Name: "sort-name-desc", Description: "Sorting by name Z to A lists products in reverse order", Run: SortByNameDescending},
	{Name: "sort-price-desc", Description: "Sorting by price high to low lists prices descending", Run: SortByPriceDescending},
	{Name: "checkout", Description: "Two items go through checkout to the confirmation page", Run: CheckoutFlow},
	{Name: "accessibility", Description: "The inventory page has no axe-core violations", Run: Accessibility},
}

// All returns every scenario in run order.
func All() []Scenario {
	return append([]Scenario(nil), all...)
}

// Names returns the scenario names in run order.
func Names() []string {
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	return names
}

// Lookup finds a scenario by name.
func Lookup(name string) (Scenario, error) {
	for _, s := range all {
		if s.Name == name {
			return s, nil
		}
	}
	return Scenario{}, errs.New(errs.NotFound, fmt.Sprintf("unknown scenario %q (known: %s)", name, strings.Join(Names(), ", ")))
}

// Select resolves a comma separated list of names. An empty list selects all.
func Select(list string) ([]Scenario, error) {
	if strings.TrimSpace(list) == "" {
		return All(), nil
	}
	var out []Scenario
	seen := map[string]bool{}
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		s, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		seen[name] = true
		out = append(out, s)
	}
	return out, nil
}

func signIn(ctx context.Context, env Env) (*pages.InventoryPage, error) {
	login := pages.NewLoginPage(env.Surface)
	if err := login.Navigate(ctx, env.BaseURL); err != nil {
		return nil, err
	}
	if err := login.Login(ctx, env.Username, env.Password); err != nil {
		return nil, err
	}
	return pages.NewInventoryPage(env.Surface), nil
}

// SortByNameDescending sorts Z to A and expects reverse lexicographic order.
func SortByNameDescending(ctx context.Context, env Env) error {
	inv, err := signIn(ctx, env)
	if err != nil {
		return err
	}
	if err := inv.SortBy(ctx, pages.SortNameDesc); err != nil {
		return err
	}
	names, err := inv.ItemNames(ctx)
	if err != nil {
		return err
	}
	want := append([]string(nil), names...)
	sort.Sort(sort.Reverse(sort.StringSlice(want)))
	if !slices.Equal(names, want) {
		return failed("item names after sorting %s = %q, want %q", pages.SortNameDesc, names, want)
	}
	obs.From(ctx).Info("names sorted descending", "pkg", "scenario", "count", len(names))
	return nil
}

// SortByPriceDescending sorts high to low and expects non-increasing prices.
func SortByPriceDescending(ctx context.Context, env Env) error {
	inv, err := signIn(ctx, env)
	if err != nil {
		return err
	}
	if err := inv.SortBy(ctx, pages.SortPriceDesc); err != nil {
		return err
	}
	prices, err := inv.ItemPrices(ctx)
	if err != nil {
		return err
	}
	want := append([]float64(nil), prices...)
	sort.Sort(sort.Reverse(sort.Float64Slice(want)))
	if !slices.Equal(prices, want) {
		return failed("item prices after sorting %s = %v, want %v", pages.SortPriceDesc, prices, want)
	}
	obs.From(ctx).Info("prices sorted descending", "pkg", "scenario", "count", len(prices))
	return nil
}

// CheckoutFlow adds CheckoutItems, checks out and expects the confirmation.
func CheckoutFlow(ctx context.Context, env Env) error {
	inv, err := signIn(ctx, env)
	if err != nil {
		return err
	}
	if err := inv.AddItemsToCart(ctx, CheckoutItems); err != nil {
		return err
	}
	count, err := inv.CartCount(ctx)
	if err != nil {
		return err
	}
	if count != len(CheckoutItems) {
		return failed("cart badge = %d, want %d", count, len(CheckoutItems))
	}
	if err := inv.ClickShoppingCart(ctx); err != nil {
		return err
	}

	cart := pages.NewCartPage(env.Surface)
	inCart, err := cart.ItemNames(ctx)
	if err != nil {
		return err
	}
	if len(inCart) != len(CheckoutItems) {
		return failed("cart holds %q, want %d items", inCart, len(CheckoutItems))
	}
	if err := cart.GoToCheckout(ctx); err != nil {
		return err
	}
	if err := cart.FillCheckoutInfo(ctx, CheckoutFirstName, CheckoutLastName, CheckoutPostalCode); err != nil {
		return err
	}
	if err := cart.FinishCheckout(ctx); err != nil {
		return err
	}
	text, err := cart.ConfirmationText(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(text, ConfirmationText) {
		return failed("confirmation = %q, want it to contain %q", text, ConfirmationText)
	}
	obs.From(ctx).Info("checkout confirmed", "pkg", "scenario", "items", len(CheckoutItems))
	return nil
}

// Accessibility scans the inventory page and expects no violations.
func Accessibility(ctx context.Context, env Env) error {
	if _, err := signIn(ctx, env); err != nil {
		return err
	}
	// Wait for the product list before scanning.
	if _, err := pages.NewInventoryPage(env.Surface).ItemNames(ctx); err != nil {
		return err
	}
	violations, err := pages.Audit(ctx, env.Surface, env.AxeScriptURL)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		return failed("%d accessibility violations: %s", len(violations), DescribeViolations(violations))
	}
	return nil
}

// DescribeViolations renders violations as "id (impact, n nodes)" entries.
func DescribeViolations(violations []pages.Violation) string {
	parts := make([]string, len(violations))
	for i, v := range violations {
		parts[i] = fmt.Sprintf("%s (%s, %d nodes)", v.ID, v.Impact, v.Nodes)
	}
	return strings.Join(parts, "; ")
}

func failed(format string, args ...any) error {
	return errs.New(errs.AssertionFailed, fmt.Sprintf(format, args...))
}
