package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hoangtv/storefront/cart/pkg/response"
	"github.com/hoangtv/storefront/checkout/internal/store"
	inErrors "github.com/hoangtv/storefront/internal/errors"
)

// PricingSnapshot is a pure projection of the selected lines and discount
// state. It is recomputed on every quote, never stored or mutated.
type PricingSnapshot struct {
	Subtotal              decimal.Decimal `json:"subtotal"`
	ShippingFee           decimal.Decimal `json:"shippingFee"`
	ShippingDiscount      decimal.Decimal `json:"shippingDiscount"`
	ProductCouponDiscount decimal.Decimal `json:"productCouponDiscount"`
	Total                 decimal.Decimal `json:"total"`
}

// EffectiveUnitPrice is the coupon override when one exists for the line,
// otherwise the catalog discount price, otherwise the base price.
func EffectiveUnitPrice(line response.CartLine, discounts store.Snapshot) decimal.Decimal {
	if newPrice, ok := discounts.LineCoupons[line.ID]; ok {
		return newPrice
	}
	return line.CatalogUnitPrice()
}

// Compute combines the selected lines with the discount snapshot into the
// order totals. The subtotal reflects catalog pricing only; manual coupons
// are reported as a separate deduction so both figures can be shown.
//
// The discount snapshot is expected to already be filtered to the selected
// lines; a coupon for a foreign line is a data-integrity failure.
func Compute(
	selected []response.CartLine,
	discounts store.Snapshot,
	shippingFee decimal.Decimal,
) (PricingSnapshot, error) {
	live := make(map[string]struct{}, len(selected))
	for _, line := range selected {
		live[line.ID] = struct{}{}
	}
	for lineId := range discounts.LineCoupons {
		if _, ok := live[lineId]; !ok {
			return PricingSnapshot{}, fmt.Errorf(
				"coupon for lineId=%s with error=%w",
				lineId,
				inErrors.ErrDanglingCoupon,
			)
		}
	}

	subtotal := decimal.Zero
	couponDiscount := decimal.Zero
	for _, line := range selected {
		quantity := decimal.NewFromInt32(line.Quantity)
		catalogPrice := line.CatalogUnitPrice()
		subtotal = subtotal.Add(catalogPrice.Mul(quantity))
		if newPrice, ok := discounts.LineCoupons[line.ID]; ok {
			couponDiscount = couponDiscount.Add(catalogPrice.Sub(newPrice).Mul(quantity))
		}
	}

	shippingDiscount := decimal.Zero
	if discounts.ShippingDiscount != nil {
		shippingDiscount = discounts.ShippingDiscount.Amount
	}

	// Total is not clamped at zero: a negative total is a data-entry error
	// upstream, not something the engine silently repairs.
	total := subtotal.Add(shippingFee).Sub(shippingDiscount).Sub(couponDiscount)

	return PricingSnapshot{
		Subtotal:              subtotal,
		ShippingFee:           shippingFee,
		ShippingDiscount:      shippingDiscount,
		ProductCouponDiscount: couponDiscount,
		Total:                 total,
	}, nil
}
