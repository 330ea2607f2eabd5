package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	inErrors "github.com/hoangtv/storefront/internal/errors"
)

// LineCoupon overrides the effective unit price of a single cart line. It is
// local ephemeral state, never sent to the server before order placement.
type LineCoupon struct {
	LineId   string          `json:"lineId"`
	NewPrice decimal.Decimal `json:"newPrice"`
}

// ShippingDiscount is a flat deduction applied once to the order's shipping
// fee. At most one is active; the last applied wins.
type ShippingDiscount struct {
	Code   string          `json:"code"`
	Amount decimal.Decimal `json:"amount"`
}

type Snapshot struct {
	LineCoupons      map[string]decimal.Decimal
	ShippingDiscount *ShippingDiscount
}

// FilteredTo drops coupons whose line is not among the live line ids. Stale
// discounts must never resurrect removed lines, so filtering happens at read
// time rather than write time.
func (s Snapshot) FilteredTo(lineIds []string) Snapshot {
	live := make(map[string]struct{}, len(lineIds))
	for _, id := range lineIds {
		live[id] = struct{}{}
	}
	filtered := Snapshot{
		LineCoupons:      map[string]decimal.Decimal{},
		ShippingDiscount: s.ShippingDiscount,
	}
	for lineId, newPrice := range s.LineCoupons {
		if _, ok := live[lineId]; ok {
			filtered.LineCoupons[lineId] = newPrice
		}
	}
	return filtered
}

// DiscountStore holds the locally-persisted, user-entered discount state,
// keyed by user. A coupon's validity against the catalog is the caller's
// concern; the store only rejects malformed entries.
type DiscountStore interface {
	SetLineCoupon(c context.Context, userId string, coupon LineCoupon) error
	ClearLineCoupon(c context.Context, userId string, lineId string) error
	SetShippingDiscount(c context.Context, userId string, discount ShippingDiscount) error
	ClearShippingDiscount(c context.Context, userId string) error
	Snapshot(c context.Context, userId string) (Snapshot, error)
	Clear(c context.Context, userId string) error
}

// SelectionStore holds the snapshot of line ids the user intends to purchase
// in the current checkout pass. It is taken once on checkout entry and not
// auto-synced with later cart mutations.
type SelectionStore interface {
	Select(c context.Context, userId string, lineIds []string) error
	Selected(c context.Context, userId string) ([]string, error)
	ClearSelection(c context.Context, userId string) error
}

func validateCoupon(coupon LineCoupon) error {
	if coupon.LineId == "" {
		return fmt.Errorf("failed validating coupon with error=%w", inErrors.ErrLineNotFound)
	}
	if coupon.NewPrice.IsNegative() {
		return fmt.Errorf("coupon newPrice=%s must not be negative", coupon.NewPrice.String())
	}
	return nil
}

func validateShippingDiscount(discount ShippingDiscount) error {
	if discount.Code == "" {
		return fmt.Errorf("shipping discount code must not be empty")
	}
	if !discount.Amount.IsPositive() {
		return fmt.Errorf(
			"shipping discount amount=%s must be positive",
			discount.Amount.String(),
		)
	}
	return nil
}
