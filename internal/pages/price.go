package pages

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kuitang/storefront-e2e/internal/errs"
)

var priceDigits = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParsePrice converts storefront price text such as "$29.99" to a number.
// Surrounding whitespace and a single leading "$" are stripped; what remains
// must be plain decimal digits with an optional fraction.
func ParsePrice(text string) (float64, error) {
	s := strings.TrimPrefix(strings.TrimSpace(text), "$")
	if !priceDigits.MatchString(s) {
		return 0, errs.New(errs.InvalidFormat, fmt.Sprintf("invalid price: %q", text))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errs.New(errs.InvalidFormat, fmt.Sprintf("invalid price: %q", text))
	}
	return v, nil
}
