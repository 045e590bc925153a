package demoshop

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/errs"
)

// Product is one catalogue entry.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       float64
}

// PriceText formats the price the way the inventory list shows it.
func (p Product) PriceText() string {
	return fmt.Sprintf("$%.2f", p.Price)
}

var catalog = []Product{
	{ID: "sauce-labs-backpack", Name: "Sauce Labs Backpack", Price: 29.99,
		Description: "carry.allTheThings() with the sleek, streamlined Sly Pack that melds uncompromising style with unequaled laptop and tablet protection."},
	{ID: "sauce-labs-bike-light", Name: "Sauce Labs Bike Light", Price: 9.99,
		Description: "A red light isn't the desired state in testing but it sure helps when riding your bike at night. Water-resistant with 3 lighting modes, 1 AAA battery included."},
	{ID: "sauce-labs-bolt-t-shirt", Name: "Sauce Labs Bolt T-Shirt", Price: 15.99,
		Description: "Get your testing superhero on with the Sauce Labs bolt T-shirt. From American Apparel, 100% ringspun combed cotton, heather gray with red bolt."},
	{ID: "sauce-labs-fleece-jacket", Name: "Sauce Labs Fleece Jacket", Price: 49.99,
		Description: "It's not every day that you come across a midweight quarter-zip fleece jacket capable of handling everything from a relaxing day outdoors to a busy day at the office."},
	{ID: "sauce-labs-onesie", Name: "Sauce Labs Onesie", Price: 7.99,
		Description: "Rib snap infant onesie for the junior automation engineer in development. Reinforced 3-snap bottom closure, two-needle hemmed sleeved and bottom won't unravel."},
	{ID: "test-allthethings-t-shirt-red", Name: "Test.allTheThings() T-Shirt (Red)", Price: 15.99,
		Description: "This classic Sauce Labs t-shirt is perfect to wear when cozying up to your keyboard to automate a few tests. Super-soft and comfy ringspun combed cotton."},
}

// Catalog returns a copy of the product list in its default (name ascending) order.
func Catalog() []Product {
	out := make([]Product, len(catalog))
	copy(out, catalog)
	return out
}

// ProductByID finds a catalogue entry.
func ProductByID(id string) (Product, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Sort keys accepted by SortProducts. They match the inventory dropdown values.
const (
	SortNameAsc   = "az"
	SortNameDesc  = "za"
	SortPriceAsc  = "lohi"
	SortPriceDesc = "hilo"
)

// SortProducts returns products ordered by key. Ties on price keep name order.
func SortProducts(products []Product, key string) ([]Product, error) {
	out := make([]Product, len(products))
	copy(out, products)

	byName := func(i, j int) bool { return strings.Compare(out[i].Name, out[j].Name) < 0 }
	switch key {
	case "", SortNameAsc:
		sort.SliceStable(out, byName)
	case SortNameDesc:
		sort.SliceStable(out, func(i, j int) bool { return byName(j, i) })
	case SortPriceAsc:
		sort.SliceStable(out, byName)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	case SortPriceDesc:
		sort.SliceStable(out, byName)
		sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	default:
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown sort key: %q", key))
	}
	return out, nil
}
