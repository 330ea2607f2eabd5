package response

import (
	"github.com/shopspring/decimal"
)

// Product is the catalog snapshot nested inside every cart line, exactly as
// the remote cart API returns it.
type Product struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discountPrice"`
	Image         string          `json:"image,omitempty"`
}

// CartLine is one product+variant+quantity entry in the cart.
type CartLine struct {
	ID       string  `json:"_id"`
	Product  Product `json:"product"`
	Quantity int32   `json:"quantity"`
	Size     string  `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
}

type Cart struct {
	CartItems []CartLine `json:"cartItems"`
}

// CatalogUnitPrice is the line's price before any manually-applied coupon:
// the catalog discount price when one is set, otherwise the base price.
func (l CartLine) CatalogUnitPrice() decimal.Decimal {
	if l.Product.DiscountPrice.IsPositive() {
		return l.Product.DiscountPrice
	}
	return l.Product.Price
}
