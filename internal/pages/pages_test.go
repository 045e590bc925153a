package pages_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/kuitang/storefront-e2e/internal/errs"
	"github.com/kuitang/storefront-e2e/internal/pages"
	"github.com/kuitang/storefront-e2e/internal/pages/pagestest"
)

const (
	testUser     = "standard_user"
	testPassword = "secret_sauce"
	testBaseURL  = "http://shop.test/"
)

// =============================================================================
// Base primitives
// =============================================================================

func TestBase_DelegatesOneToOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := pagestest.New()
	fake.SetText("#greeting", "hello")
	base := pages.NewBase(fake)

	if err := base.Navigate(ctx, testBaseURL); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if err := base.Fill(ctx, "#q", "bike"); err != nil {
		t.Fatalf("Fill: %v", err)
	}
	if err := base.Click(ctx, "#go"); err != nil {
		t.Fatalf("Click: %v", err)
	}
	if err := base.SelectOption(ctx, "#size", "xl"); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	text, err := base.Text(ctx, "#greeting")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "hello" {
		t.Fatalf("Text = %q, want hello", text)
	}

	want := []pagestest.Call{
		{Op: "goto", Locator: testBaseURL},
		{Op: "fill", Locator: "#q", Value: "bike"},
		{Op: "click", Locator: "#go"},
		{Op: "select_option", Locator: "#size", Value: "xl"},
		{Op: "inner_text", Locator: "#greeting"},
	}
	if got := fake.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %+v\nwant %+v", got, want)
	}
	if fake.URL() != testBaseURL {
		t.Fatalf("URL = %q", fake.URL())
	}
}

func TestBase_PropagatesInteractionErrors(t *testing.T) {
	t.Parallel()
	fake := pagestest.New()
	boom := errors.New("element is not visible")
	fake.Fail("#go", boom)

	err := pages.NewBase(fake).Click(context.Background(), "#go")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if errs.CodeOf(err) != errs.Interaction {
		t.Fatalf("code = %q, want interaction", errs.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "#go") {
		t.Fatalf("error should name the locator: %v", err)
	}
}

func TestBase_CancelledContextFailsFast(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pages.NewBase(pagestest.New()).Text(ctx, "#anything")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// =============================================================================
// ParsePrice
// =============================================================================

func TestParsePrice_Examples(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want float64
	}{
		{"$29.99", 29.99},
		{"$7.99", 7.99},
		{" $49.99\n", 49.99},
		{"15.99", 15.99},
		{"$0", 0},
	}
	for _, tc := range cases {
		got, err := pages.ParsePrice(tc.in)
		if err != nil {
			t.Errorf("ParsePrice(%q) error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePrice(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParsePrice_RejectsMalformed(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"N/A", "", "$", "$$9.99", "free", "$NaN", "$Inf", "9.99 USD",
		"$0x1p4", "$1_000", "$ 29.99", "$1e3", "$-5.00", "$+5", "$.99", "$9."} {
		_, err := pages.ParsePrice(in)
		if err == nil {
			t.Errorf("ParsePrice(%q) expected error", in)
			continue
		}
		if errs.CodeOf(err) != errs.InvalidFormat {
			t.Errorf("ParsePrice(%q) code = %q, want invalid_format", in, errs.CodeOf(err))
		}
	}
}

func testParsePrice_CentsRoundTrip(t *rapid.T) {
	dollars := rapid.IntRange(0, 100000).Draw(t, "dollars")
	cents := rapid.IntRange(0, 99).Draw(t, "cents")
	text := fmt.Sprintf("$%d.%02d", dollars, cents)

	got, err := pages.ParsePrice(text)
	if err != nil {
		t.Fatalf("ParsePrice(%q): %v", text, err)
	}
	if math.Round(got*100) != float64(dollars*100+cents) {
		t.Fatalf("ParsePrice(%q) = %v", text, got)
	}
}

func TestParsePrice_CentsRoundTrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testParsePrice_CentsRoundTrip)
}

func testParsePrice_LettersRejected(t *rapid.T) {
	word := rapid.StringMatching(`[A-Za-z/ ]*[G-Zg-z/][A-Za-z/ ]*`).Draw(t, "word")
	if _, err := pages.ParsePrice(word); errs.CodeOf(err) != errs.InvalidFormat {
		t.Fatalf("ParsePrice(%q) = %v, want invalid_format", word, err)
	}
}

func TestParsePrice_LettersRejected(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testParsePrice_LettersRejected)
}

// =============================================================================
// Login
// =============================================================================

func TestLogin_SequencesUsernamePasswordClick(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	shop := pagestest.NewShop(testUser, testPassword)
	login := pages.NewLoginPage(shop)

	if err := login.Navigate(ctx, testBaseURL); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if err := login.Login(ctx, testUser, testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if shop.Screen() != pagestest.ScreenInventory {
		t.Fatalf("screen = %s, want inventory", shop.Screen())
	}

	calls := shop.Calls()[1:]
	want := []pagestest.Call{
		{Op: "fill", Locator: "#user-name", Value: testUser},
		{Op: "fill", Locator: "#password", Value: testPassword},
		{Op: "click", Locator: "#login-button"},
	}
	if !reflect.DeepEqual(calls, want) {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestLogin_StopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	fake := pagestest.New()
	fake.Fail("#password", errors.New("detached"))

	err := pages.NewLoginPage(fake).Login(context.Background(), testUser, testPassword)
	if errs.CodeOf(err) != errs.Interaction {
		t.Fatalf("expected interaction error, got %v", err)
	}
	for _, c := range fake.Calls() {
		if c.Op == "click" {
			t.Fatal("login button clicked after password failed")
		}
	}
}

func TestLogin_ErrorMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cases := []struct {
		user, pass string
		want       string
	}{
		{pagestest.LockedOutUser, testPassword, "Sorry, this user has been locked out."},
		{testUser, "wrong", "Username and password do not match"},
		{"", testPassword, "Username is required"},
	}
	for _, tc := range cases {
		shop := pagestest.NewShop(testUser, testPassword)
		login := pages.NewLoginPage(shop)
		if err := login.Navigate(ctx, testBaseURL); err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		if err := login.Login(ctx, tc.user, tc.pass); err != nil {
			t.Fatalf("Login(%q): %v", tc.user, err)
		}
		msg, err := login.ErrorMessage(ctx)
		if err != nil {
			t.Fatalf("ErrorMessage: %v", err)
		}
		if !strings.Contains(msg, tc.want) {
			t.Errorf("login(%q, %q) message = %q, want %q", tc.user, tc.pass, msg, tc.want)
		}
		if shop.Screen() != pagestest.ScreenLogin {
			t.Errorf("login(%q) left login screen", tc.user)
		}
	}
}

// =============================================================================
// Inventory
// =============================================================================

func loggedIn(t *testing.T) (*pagestest.Shop, *pages.InventoryPage) {
	t.Helper()
	ctx := context.Background()
	shop := pagestest.NewShop(testUser, testPassword)
	login := pages.NewLoginPage(shop)
	if err := login.Navigate(ctx, testBaseURL); err != nil {
		t.Fatalf("Navigate: %v", err)
	}
	if err := login.Login(ctx, testUser, testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return shop, pages.NewInventoryPage(shop)
}

func TestInventory_SortOptions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, inv := loggedIn(t)

	if err := inv.SortBy(ctx, pages.SortNameDesc); err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	names, err := inv.ItemNames(ctx)
	if err != nil {
		t.Fatalf("ItemNames: %v", err)
	}
	if len(names) != 6 {
		t.Fatalf("got %d names", len(names))
	}
	if !sort.SliceIsSorted(names, func(i, j int) bool { return names[i] > names[j] }) {
		t.Fatalf("names not descending: %v", names)
	}

	if err := inv.SortBy(ctx, pages.SortPriceAsc); err != nil {
		t.Fatalf("SortBy: %v", err)
	}
	prices, err := inv.ItemPrices(ctx)
	if err != nil {
		t.Fatalf("ItemPrices: %v", err)
	}
	if !sort.Float64sAreSorted(prices) {
		t.Fatalf("prices not ascending: %v", prices)
	}
	if prices[0] != 7.99 || prices[len(prices)-1] != 49.99 {
		t.Fatalf("unexpected price range: %v", prices)
	}
}

func TestInventory_ItemPricesPropagatesFormatError(t *testing.T) {
	t.Parallel()
	fake := pagestest.New()
	fake.SetList(".inventory_item_price", []string{"$1.00", "N/A"})

	_, err := pages.NewInventoryPage(fake).ItemPrices(context.Background())
	if errs.CodeOf(err) != errs.InvalidFormat {
		t.Fatalf("expected invalid_format, got %v", err)
	}
}

func TestInventory_AddItemsToCartClicksInterpolatedLocators(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	shop, inv := loggedIn(t)

	count, err := inv.CartCount(ctx)
	if err != nil || count != 0 {
		t.Fatalf("CartCount before = %d, %v", count, err)
	}

	ids := []string{pages.ItemBackpack, pages.ItemBikeLight}
	if err := inv.AddItemsToCart(ctx, ids); err != nil {
		t.Fatalf("AddItemsToCart: %v", err)
	}
	if got := shop.CartIDs(); !reflect.DeepEqual(got, ids) {
		t.Fatalf("cart = %v", got)
	}
	count, err = inv.CartCount(ctx)
	if err != nil || count != 2 {
		t.Fatalf("CartCount after = %d, %v", count, err)
	}

	var clicked []string
	for _, c := range shop.Calls() {
		if c.Op == "click" && strings.HasPrefix(c.Locator, "#add-to-cart-") {
			clicked = append(clicked, c.Locator)
		}
	}
	want := []string{"#add-to-cart-sauce-labs-backpack", "#add-to-cart-sauce-labs-bike-light"}
	if !reflect.DeepEqual(clicked, want) {
		t.Fatalf("clicked = %v", clicked)
	}
}

func TestInventory_UnknownItemFails(t *testing.T) {
	t.Parallel()
	_, inv := loggedIn(t)
	err := inv.AddItemsToCart(context.Background(), []string{"sauce-labs-hovercraft"})
	if errs.CodeOf(err) != errs.Interaction {
		t.Fatalf("expected interaction error, got %v", err)
	}
}

// =============================================================================
// Cart and checkout
// =============================================================================

func TestCart_CheckoutFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	shop, inv := loggedIn(t)
	cart := pages.NewCartPage(shop)

	if err := inv.AddItemsToCart(ctx, []string{pages.ItemBackpack, pages.ItemBikeLight}); err != nil {
		t.Fatalf("AddItemsToCart: %v", err)
	}
	if err := inv.ClickShoppingCart(ctx); err != nil {
		t.Fatalf("ClickShoppingCart: %v", err)
	}
	names, err := cart.ItemNames(ctx)
	if err != nil {
		t.Fatalf("ItemNames: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"Sauce Labs Backpack", "Sauce Labs Bike Light"}) {
		t.Fatalf("cart names = %v", names)
	}
	if err := cart.GoToCheckout(ctx); err != nil {
		t.Fatalf("GoToCheckout: %v", err)
	}
	if err := cart.FillCheckoutInfo(ctx, "Dennis", "Gamboa", "0000"); err != nil {
		t.Fatalf("FillCheckoutInfo: %v", err)
	}
	if err := cart.FinishCheckout(ctx); err != nil {
		t.Fatalf("FinishCheckout: %v", err)
	}
	text, err := cart.ConfirmationText(ctx)
	if err != nil {
		t.Fatalf("ConfirmationText: %v", err)
	}
	if !strings.Contains(text, "Thank you for your order!") {
		t.Fatalf("confirmation = %q", text)
	}
}

func TestCart_FillCheckoutInfoOrder(t *testing.T) {
	t.Parallel()
	fake := pagestest.New()
	if err := pages.NewCartPage(fake).FillCheckoutInfo(context.Background(), "Dennis", "Gamboa", "0000"); err != nil {
		t.Fatalf("FillCheckoutInfo: %v", err)
	}
	want := []pagestest.Call{
		{Op: "fill", Locator: "#first-name", Value: "Dennis"},
		{Op: "fill", Locator: "#last-name", Value: "Gamboa"},
		{Op: "fill", Locator: "#postal-code", Value: "0000"},
		{Op: "click", Locator: "#continue"},
	}
	if got := fake.Calls(); !reflect.DeepEqual(got, want) {
		t.Fatalf("calls = %+v", got)
	}
}

// =============================================================================
// Accessibility audit
// =============================================================================

func TestAudit_DecodesViolations(t *testing.T) {
	t.Parallel()
	fake := pagestest.New()
	fake.EvalResult = `[{"id":"color-contrast","impact":"serious","help":"Elements must meet minimum color contrast ratio thresholds","nodes":3}]`

	got, err := pages.Audit(context.Background(), fake, "https://cdn.test/axe.min.js")
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	want := []pages.Violation{{
		ID:     "color-contrast",
		Impact: "serious",
		Help:   "Elements must meet minimum color contrast ratio thresholds",
		Nodes:  3,
	}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("violations = %+v", got)
	}
	if scripts := fake.Scripts(); len(scripts) != 1 || scripts[0] != "https://cdn.test/axe.min.js" {
		t.Fatalf("scripts = %v", scripts)
	}
}

func TestAudit_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	fake := pagestest.New()
	fake.EvalResult = 42.0
	if _, err := pages.Audit(ctx, fake, "x.js"); errs.CodeOf(err) != errs.InvalidFormat {
		t.Fatalf("non-string result: %v", err)
	}

	fake = pagestest.New()
	fake.EvalResult = "{not json"
	if _, err := pages.Audit(ctx, fake, "x.js"); errs.CodeOf(err) != errs.InvalidFormat {
		t.Fatalf("bad json: %v", err)
	}

	fake = pagestest.New()
	fake.Fail("x.js", errors.New("net::ERR_NAME_NOT_RESOLVED"))
	if _, err := pages.Audit(ctx, fake, "x.js"); errs.CodeOf(err) != errs.Unavailable {
		t.Fatalf("script load failure: %v", err)
	}

	fake = pagestest.New()
	fake.EvalErr = errors.New("axe.run: rule color-contrast threw")
	_, err := pages.Audit(ctx, fake, "x.js")
	if errs.CodeOf(err) != errs.Interaction {
		t.Fatalf("scan failure: code %q (%v), want interaction", errs.CodeOf(err), err)
	}
}
