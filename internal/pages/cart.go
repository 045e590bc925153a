package pages

import "context"

const (
	checkoutButton    = "#checkout"
	firstNameInput    = "#first-name"
	lastNameInput     = "#last-name"
	postalCodeInput   = "#postal-code"
	continueButton    = "#continue"
	finishButton      = "#finish"
	cartItemNameLabel = ".cart_item .inventory_item_name"
	confirmationTitle = "h2"
)

// CartPage covers the cart and the checkout steps that follow it.
type CartPage struct {
	*Base
}

func NewCartPage(surface Surface) *CartPage {
	return &CartPage{Base: NewBase(surface)}
}

func (p *CartPage) GoToCheckout(ctx context.Context) error {
	return p.Click(ctx, checkoutButton)
}

// FillCheckoutInfo completes the customer form and continues to the overview.
func (p *CartPage) FillCheckoutInfo(ctx context.Context, first, last, zip string) error {
	fields := []struct{ locator, value string }{
		{firstNameInput, first},
		{lastNameInput, last},
		{postalCodeInput, zip},
	}
	for _, f := range fields {
		if err := p.Fill(ctx, f.locator, f.value); err != nil {
			return err
		}
	}
	return p.Click(ctx, continueButton)
}

func (p *CartPage) FinishCheckout(ctx context.Context) error {
	return p.Click(ctx, finishButton)
}

// ItemNames returns the names of the items in the cart.
func (p *CartPage) ItemNames(ctx context.Context) ([]string, error) {
	return p.texts(ctx, cartItemNameLabel)
}

// ConfirmationText reads the heading of the order-complete screen.
func (p *CartPage) ConfirmationText(ctx context.Context) (string, error) {
	return p.Text(ctx, confirmationTitle)
}
