package pagestest

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/kuitang/storefront-e2e/internal/demoshop"
)

// Storefront locators the Shop model reacts to.
const (
	shopUsername   = "#user-name"
	shopPassword   = "#password"
	shopLogin      = "#login-button"
	shopLoginError = `h3[data-test="error"]`
	shopSort       = ".product_sort_container"
	shopItemName   = ".inventory_item_name"
	shopItemPrice  = ".inventory_item_price"
	shopCartLink   = "#shopping_cart_container"
	shopCartBadge  = ".shopping_cart_badge"
	shopAddPrefix  = "#add-to-cart-"
	shopCartItem   = ".cart_item .inventory_item_name"
	shopCheckout   = "#checkout"
	shopFirstName  = "#first-name"
	shopLastName   = "#last-name"
	shopPostalCode = "#postal-code"
	shopContinue   = "#continue"
	shopFinish     = "#finish"
	shopHeading    = "h2"
)

// LockedOutUser is rejected with the locked-out banner.
const LockedOutUser = "locked_out_user"

// Screen names the page the Shop is showing.
type Screen string

const (
	ScreenLogin     Screen = "login"
	ScreenInventory Screen = "inventory"
	ScreenCart      Screen = "cart"
	ScreenStepOne   Screen = "checkout-step-one"
	ScreenStepTwo   Screen = "checkout-step-two"
	ScreenComplete  Screen = "checkout-complete"
)

// Shop is a Surface wired to an in-memory model of the storefront, using the
// same catalogue, messages and locators as the demo server.
type Shop struct {
	*Surface

	mu       sync.Mutex
	username string
	password string
	screen   Screen
	sortKey  string
	cart     []string
	// Reorder, when set, is applied to the product list after sorting.
	Reorder func([]demoshop.Product) []demoshop.Product
}

// NewShop returns a Shop that accepts the given credentials.
func NewShop(username, password string) *Shop {
	sh := &Shop{Surface: New(), username: username, password: password, screen: ScreenLogin}
	sh.OnGoto = sh.onGoto
	sh.OnClick = sh.onClick
	sh.OnSelect = sh.onSelect
	return sh
}

// Screen returns the page currently shown.
func (sh *Shop) Screen() Screen {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.screen
}

// CartIDs returns the ids in the cart, in the order they were added.
func (sh *Shop) CartIDs() []string {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return append([]string(nil), sh.cart...)
}

func (sh *Shop) onGoto(string) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.Surface.Reset()
	sh.screen = ScreenLogin
	sh.sortKey = ""
	sh.renderLocked()
	return nil
}

func (sh *Shop) onSelect(locator, value string) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.screen != ScreenInventory || locator != shopSort {
		return ErrNoElement
	}
	if _, err := demoshop.SortProducts(nil, value); err != nil {
		return err
	}
	sh.sortKey = value
	sh.renderLocked()
	return nil
}

func (sh *Shop) onClick(locator string) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	switch {
	case sh.screen == ScreenLogin && locator == shopLogin:
		sh.submitLoginLocked()
	case sh.screen == ScreenInventory && strings.HasPrefix(locator, shopAddPrefix):
		id := strings.TrimPrefix(locator, shopAddPrefix)
		if _, ok := demoshop.ProductByID(id); !ok {
			return ErrNoElement
		}
		for _, existing := range sh.cart {
			if existing == id {
				// Button has turned into "Remove"; the add locator no longer matches.
				return ErrNoElement
			}
		}
		sh.cart = append(sh.cart, id)
	case (sh.screen == ScreenInventory || sh.screen == ScreenCart) && locator == shopCartLink:
		sh.screen = ScreenCart
	case sh.screen == ScreenCart && locator == shopCheckout:
		sh.screen = ScreenStepOne
	case sh.screen == ScreenStepOne && locator == shopContinue:
		if msg := checkoutFormError(sh.Surface); msg != "" {
			sh.Surface.SetText(shopLoginError, msg)
			return nil
		}
		sh.screen = ScreenStepTwo
	case sh.screen == ScreenStepTwo && locator == shopFinish:
		sh.cart = nil
		sh.screen = ScreenComplete
	default:
		return fmt.Errorf("%w on %s screen", ErrNoElement, sh.screen)
	}
	sh.renderLocked()
	return nil
}

func (sh *Shop) submitLoginLocked() {
	user := sh.Surface.Value(shopUsername)
	pass := sh.Surface.Value(shopPassword)
	switch {
	case user == "":
		sh.Surface.SetText(shopLoginError, "Epic sadface: Username is required")
	case pass == "":
		sh.Surface.SetText(shopLoginError, "Epic sadface: Password is required")
	case user == LockedOutUser && pass == sh.password:
		sh.Surface.SetText(shopLoginError, "Epic sadface: Sorry, this user has been locked out.")
	case user != sh.username || pass != sh.password:
		sh.Surface.SetText(shopLoginError, "Epic sadface: Username and password do not match any user in this service")
	default:
		sh.screen = ScreenInventory
	}
}

func checkoutFormError(s *Surface) string {
	switch {
	case s.Value(shopFirstName) == "":
		return "Error: First Name is required"
	case s.Value(shopLastName) == "":
		return "Error: Last Name is required"
	case s.Value(shopPostalCode) == "":
		return "Error: Postal Code is required"
	}
	return ""
}

// renderLocked replaces the fake DOM with the current screen. Field values
// survive only on the screen they were typed into.
func (sh *Shop) renderLocked() {
	s := sh.Surface
	loginError, hasLoginError := "", false
	if sh.screen == ScreenLogin {
		s.mu.Lock()
		loginError, hasLoginError = s.texts[shopLoginError]
		s.mu.Unlock()
	}
	values := map[string]string{}
	s.mu.Lock()
	for k, v := range s.values {
		values[k] = v
	}
	s.mu.Unlock()

	s.Reset()
	switch sh.screen {
	case ScreenLogin:
		if hasLoginError {
			s.SetText(shopLoginError, loginError)
		}
		s.restore(values, shopUsername, shopPassword)
	case ScreenInventory:
		products, _ := demoshop.SortProducts(demoshop.Catalog(), sh.sortKey)
		if sh.Reorder != nil {
			products = sh.Reorder(products)
		}
		names := make([]string, len(products))
		prices := make([]string, len(products))
		for i, p := range products {
			names[i] = p.Name
			prices[i] = p.PriceText()
		}
		s.SetList(shopItemName, names)
		s.SetList(shopItemPrice, prices)
	case ScreenCart:
		names := make([]string, 0, len(sh.cart))
		for _, id := range sh.cart {
			p, _ := demoshop.ProductByID(id)
			names = append(names, p.Name)
		}
		s.SetList(shopCartItem, names)
	case ScreenStepOne:
		s.restore(values, shopFirstName, shopLastName, shopPostalCode)
	case ScreenComplete:
		s.SetText(shopHeading, "Thank you for your order!")
	}
	if len(sh.cart) > 0 && sh.screen != ScreenLogin && sh.screen != ScreenComplete {
		s.SetText(shopCartBadge, strconv.Itoa(len(sh.cart)))
	}
}

func (s *Surface) restore(values map[string]string, locators ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range locators {
		if v, ok := values[l]; ok {
			s.values[l] = v
		}
	}
}
