package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSetLineCoupon(t *testing.T) {
	tests := []struct {
		name        string
		coupon      LineCoupon
		expectedErr bool
	}{
		{
			name:   "given valid coupon should store it",
			coupon: LineCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(90000)},
		},
		{
			name:   "given zero price coupon should store it",
			coupon: LineCoupon{LineId: "line-1", NewPrice: decimal.Zero},
		},
		{
			name:        "given empty line id should reject",
			coupon:      LineCoupon{LineId: "", NewPrice: decimal.NewFromInt(90000)},
			expectedErr: true,
		},
		{
			name:        "given negative price should reject",
			coupon:      LineCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(-1)},
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := context.Background()
			store := NewMemoryStore()

			err := store.SetLineCoupon(c, "user-1", tt.coupon)
			if tt.expectedErr {
				assert.Error(t, err)
				snapshot, _ := store.Snapshot(c, "user-1")
				assert.Empty(t, snapshot.LineCoupons, "rejected coupon must not be stored")
				return
			}
			assert.NoError(t, err)
			snapshot, err := store.Snapshot(c, "user-1")
			assert.NoError(t, err)
			assert.True(t, tt.coupon.NewPrice.Equal(snapshot.LineCoupons[tt.coupon.LineId]))
		})
	}
}

func TestSetLineCouponOverwritesPrevious(t *testing.T) {
	c := context.Background()
	store := NewMemoryStore()

	assert.NoError(
		t,
		store.SetLineCoupon(c, "user-1", LineCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(90000)}),
	)
	assert.NoError(
		t,
		store.SetLineCoupon(c, "user-1", LineCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(80000)}),
	)

	snapshot, err := store.Snapshot(c, "user-1")
	assert.NoError(t, err)
	assert.Len(t, snapshot.LineCoupons, 1)
	assert.True(t, decimal.NewFromInt(80000).Equal(snapshot.LineCoupons["line-1"]))
}

func TestClearLineCouponIsIdempotent(t *testing.T) {
	c := context.Background()
	store := NewMemoryStore()

	assert.NoError(
		t,
		store.SetLineCoupon(c, "user-1", LineCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(90000)}),
	)
	assert.NoError(t, store.ClearLineCoupon(c, "user-1", "line-1"))
	assert.NoError(t, store.ClearLineCoupon(c, "user-1", "line-1"))
	assert.NoError(t, store.ClearLineCoupon(c, "user-1", "line-never-existed"))

	snapshot, err := store.Snapshot(c, "user-1")
	assert.NoError(t, err)
	assert.Empty(t, snapshot.LineCoupons)
}

func TestSetShippingDiscount(t *testing.T) {
	tests := []struct {
		name        string
		discount    ShippingDiscount
		expectedErr bool
	}{
		{
			name:     "given valid discount should store it",
			discount: ShippingDiscount{Code: "FREESHIP", Amount: decimal.NewFromInt(15000)},
		},
		{
			name:        "given empty code should reject",
			discount:    ShippingDiscount{Code: "", Amount: decimal.NewFromInt(15000)},
			expectedErr: true,
		},
		{
			name:        "given zero amount should reject",
			discount:    ShippingDiscount{Code: "FREESHIP", Amount: decimal.Zero},
			expectedErr: true,
		},
		{
			name:        "given negative amount should reject",
			discount:    ShippingDiscount{Code: "FREESHIP", Amount: decimal.NewFromInt(-1)},
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := context.Background()
			store := NewMemoryStore()

			err := store.SetShippingDiscount(c, "user-1", tt.discount)
			if tt.expectedErr {
				assert.Error(t, err)
				snapshot, _ := store.Snapshot(c, "user-1")
				assert.Nil(t, snapshot.ShippingDiscount, "rejected discount must not be stored")
				return
			}
			assert.NoError(t, err)
			snapshot, err := store.Snapshot(c, "user-1")
			assert.NoError(t, err)
			assert.NotNil(t, snapshot.ShippingDiscount)
			assert.EqualValues(t, tt.discount.Code, snapshot.ShippingDiscount.Code)
		})
	}
}

func TestShippingDiscountLastAppliedWins(t *testing.T) {
	c := context.Background()
	store := NewMemoryStore()

	assert.NoError(
		t,
		store.SetShippingDiscount(c, "user-1", ShippingDiscount{Code: "SHIP5", Amount: decimal.NewFromInt(5000)}),
	)
	assert.NoError(
		t,
		store.SetShippingDiscount(c, "user-1", ShippingDiscount{Code: "SHIP10", Amount: decimal.NewFromInt(10000)}),
	)

	snapshot, err := store.Snapshot(c, "user-1")
	assert.NoError(t, err)
	assert.NotNil(t, snapshot.ShippingDiscount)
	assert.EqualValues(t, "SHIP10", snapshot.ShippingDiscount.Code)
	assert.True(t, decimal.NewFromInt(10000).Equal(snapshot.ShippingDiscount.Amount))
}

func TestClearIsIdempotentAndKeepsSelection(t *testing.T) {
	c := context.Background()
	store := NewMemoryStore()

	assert.NoError(
		t,
		store.SetLineCoupon(c, "user-1", LineCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(90000)}),
	)
	assert.NoError(
		t,
		store.SetShippingDiscount(c, "user-1", ShippingDiscount{Code: "FREESHIP", Amount: decimal.NewFromInt(15000)}),
	)
	assert.NoError(t, store.Select(c, "user-1", []string{"line-1"}))

	assert.NoError(t, store.Clear(c, "user-1"))
	assert.NoError(t, store.Clear(c, "user-1"))

	snapshot, err := store.Snapshot(c, "user-1")
	assert.NoError(t, err)
	assert.Empty(t, snapshot.LineCoupons)
	assert.Nil(t, snapshot.ShippingDiscount)

	selected, err := store.Selected(c, "user-1")
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"line-1"}, selected, "discount clear must not touch the selection")
}

func TestSelectionRoundTrip(t *testing.T) {
	c := context.Background()
	store := NewMemoryStore()

	assert.NoError(t, store.Select(c, "user-1", []string{"line-1", "line-2"}))

	selected, err := store.Selected(c, "user-1")
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"line-1", "line-2"}, selected)

	assert.NoError(t, store.Select(c, "user-1", []string{"line-3"}))
	selected, err = store.Selected(c, "user-1")
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"line-3"}, selected, "selection is replaced, not merged")

	assert.NoError(t, store.ClearSelection(c, "user-1"))
	selected, err = store.Selected(c, "user-1")
	assert.NoError(t, err)
	assert.Empty(t, selected)
}

func TestStoreIsolatesUsers(t *testing.T) {
	c := context.Background()
	store := NewMemoryStore()

	assert.NoError(
		t,
		store.SetLineCoupon(c, "user-1", LineCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(90000)}),
	)

	snapshot, err := store.Snapshot(c, "user-2")
	assert.NoError(t, err)
	assert.Empty(t, snapshot.LineCoupons)
}

func TestSnapshotIsDetachedCopy(t *testing.T) {
	c := context.Background()
	store := NewMemoryStore()

	assert.NoError(
		t,
		store.SetLineCoupon(c, "user-1", LineCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(90000)}),
	)

	snapshot, err := store.Snapshot(c, "user-1")
	assert.NoError(t, err)
	snapshot.LineCoupons["line-injected"] = decimal.NewFromInt(1)

	again, err := store.Snapshot(c, "user-1")
	assert.NoError(t, err)
	assert.NotContains(t, again.LineCoupons, "line-injected")
}

func TestFilteredTo(t *testing.T) {
	snapshot := Snapshot{
		LineCoupons: map[string]decimal.Decimal{
			"line-1":    decimal.NewFromInt(90000),
			"line-gone": decimal.NewFromInt(1),
		},
		ShippingDiscount: &ShippingDiscount{Code: "FREESHIP", Amount: decimal.NewFromInt(15000)},
	}

	filtered := snapshot.FilteredTo([]string{"line-1"})

	assert.Len(t, filtered.LineCoupons, 1)
	assert.Contains(t, filtered.LineCoupons, "line-1")
	assert.NotNil(t, filtered.ShippingDiscount, "shipping discount is not line-scoped")
	assert.Contains(t, snapshot.LineCoupons, "line-gone", "filtering must not mutate the source")
}
