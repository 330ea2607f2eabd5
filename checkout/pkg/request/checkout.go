package request

import (
	"github.com/shopspring/decimal"
)

type SelectLines struct {
	LineIds []string `validate:"required,min=1" json:"lineIds"`
}

type ApplyCoupon struct {
	LineId   string          `validate:"required" json:"lineId"`
	NewPrice decimal.Decimal `json:"newPrice"`
}

type ApplyShippingDiscount struct {
	Code   string          `validate:"required" json:"code"`
	Amount decimal.Decimal `validate:"required" json:"amount"`
}

type ShippingAddress struct {
	FullName string `validate:"required" json:"fullName"`
	Phone    string `validate:"required" json:"phone"`
	Street   string `validate:"required" json:"street"`
	District string `json:"district,omitempty"`
	City     string `validate:"required" json:"city"`
}

type PlaceOrder struct {
	ShippingAddress ShippingAddress `validate:"required" json:"shippingAddress"`
}

// OrderItem is one selected cart line as the order-placement API expects it,
// priced at the effective (coupon-aware) unit price.
type OrderItem struct {
	ProductId string          `json:"productId"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

type SubmitOrder struct {
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	ShippingFee     decimal.Decimal `json:"shippingFee"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
}
