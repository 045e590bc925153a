package pages

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/errs"
)

// Sort dropdown values.
const (
	SortNameAsc   = "az"
	SortNameDesc  = "za"
	SortPriceAsc  = "lohi"
	SortPriceDesc = "hilo"
)

const (
	sortDropdown      = ".product_sort_container"
	itemNameLabel     = ".inventory_item_name"
	itemPriceLabel    = ".inventory_item_price"
	shoppingCartLink  = "#shopping_cart_container"
	shoppingCartBadge = ".shopping_cart_badge"
	addToCartPrefix   = "#add-to-cart-"
)

// Item ids as used in the add-to-cart button ids.
const (
	ItemBackpack     = "sauce-labs-backpack"
	ItemBikeLight    = "sauce-labs-bike-light"
	ItemBoltTShirt   = "sauce-labs-bolt-t-shirt"
	ItemFleeceJacket = "sauce-labs-fleece-jacket"
	ItemOnesie       = "sauce-labs-onesie"
)

// InventoryPage is the product list shown after login.
type InventoryPage struct {
	*Base
}

func NewInventoryPage(surface Surface) *InventoryPage {
	return &InventoryPage{Base: NewBase(surface)}
}

// SortBy picks one of the Sort* values in the sort dropdown.
func (p *InventoryPage) SortBy(ctx context.Context, option string) error {
	return p.SelectOption(ctx, sortDropdown, option)
}

// ItemNames returns product names in display order.
func (p *InventoryPage) ItemNames(ctx context.Context) ([]string, error) {
	return p.texts(ctx, itemNameLabel)
}

// ItemPrices returns product prices in display order.
func (p *InventoryPage) ItemPrices(ctx context.Context) ([]float64, error) {
	texts, err := p.texts(ctx, itemPriceLabel)
	if err != nil {
		return nil, err
	}
	prices := make([]float64, 0, len(texts))
	for _, text := range texts {
		price, err := ParsePrice(text)
		if err != nil {
			return nil, err
		}
		prices = append(prices, price)
	}
	return prices, nil
}

// AddItemsToCart clicks the add button of each item id, in order.
func (p *InventoryPage) AddItemsToCart(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := p.Click(ctx, AddToCartLocator(id)); err != nil {
			return err
		}
	}
	return nil
}

func (p *InventoryPage) ClickShoppingCart(ctx context.Context) error {
	return p.Click(ctx, shoppingCartLink)
}

// CartCount reads the cart badge. No badge means an empty cart.
func (p *InventoryPage) CartCount(ctx context.Context) (int, error) {
	n, err := p.Surface().Count(ctx, shoppingCartBadge)
	if err != nil || n == 0 {
		return 0, err
	}
	text, err := p.Text(ctx, shoppingCartBadge)
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, errs.New(errs.InvalidFormat, fmt.Sprintf("invalid cart badge: %q", text))
	}
	return count, nil
}

// AddToCartLocator returns the add-to-cart button locator for an item id.
func AddToCartLocator(id string) string {
	return addToCartPrefix + id
}
