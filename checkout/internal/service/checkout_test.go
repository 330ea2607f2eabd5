package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/hoangtv/storefront/cart/pkg/response"
	"github.com/hoangtv/storefront/checkout/internal/store"
	"github.com/hoangtv/storefront/checkout/pkg/request"
	inErrors "github.com/hoangtv/storefront/internal/errors"
)

type fakeCartFetcher struct {
	cart  response.Cart
	err   error
	calls int
}

func (f *fakeCartFetcher) Get(c context.Context, token string) (response.Cart, error) {
	f.calls++
	return f.cart, f.err
}

func testContext() context.Context {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		WithContext(context.Background())
}

func cartLine(id string, price int64, discountPrice int64, quantity int32) response.CartLine {
	return response.CartLine{
		ID: id,
		Product: response.Product{
			ID:            "product-" + id,
			Name:          "product " + id,
			Price:         decimal.NewFromInt(price),
			DiscountPrice: decimal.NewFromInt(discountPrice),
		},
		Quantity: quantity,
	}
}

func newService(fetcher *fakeCartFetcher, orderBaseURL string) (*CheckoutService, *store.MemoryStore) {
	memory := store.NewMemoryStore()
	service := NewCheckoutService(
		fetcher,
		memory,
		memory,
		orderBaseURL,
		decimal.NewFromInt(30000),
	)
	return service, memory
}

func shippingAddress() request.ShippingAddress {
	return request.ShippingAddress{
		FullName: "Tran Van Hoang",
		Phone:    "0901234567",
		Street:   "12 Nguyen Hue",
		District: "District 1",
		City:     "Ho Chi Minh City",
	}
}

func TestSelectLinesDropsForeignIds(t *testing.T) {
	fetcher := &fakeCartFetcher{
		cart: response.Cart{CartItems: []response.CartLine{
			cartLine("line-1", 100000, 0, 1),
			cartLine("line-2", 50000, 0, 2),
		}},
	}
	service, memory := newService(fetcher, "")

	c := testContext()
	selected, err := service.SelectLines(
		c,
		"token",
		"user-1",
		request.SelectLines{LineIds: []string{"line-2", "line-gone", "line-1"}},
	)

	assert.NoError(t, err)
	assert.EqualValues(t, []string{"line-1", "line-2"}, selected)

	stored, err := memory.Selected(c, "user-1")
	assert.NoError(t, err)
	assert.EqualValues(t, []string{"line-1", "line-2"}, stored)
}

func TestApplyLineCoupon(t *testing.T) {
	tests := []struct {
		name        string
		param       request.ApplyCoupon
		expectedErr error
	}{
		{
			name:  "given coupon below catalog price should store it",
			param: request.ApplyCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(80000)},
		},
		{
			name:  "given coupon equal to catalog price should store it",
			param: request.ApplyCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(100000)},
		},
		{
			name:        "given coupon above catalog price should reject",
			param:       request.ApplyCoupon{LineId: "line-1", NewPrice: decimal.NewFromInt(100001)},
			expectedErr: inErrors.ErrCouponAbovePrice,
		},
		{
			name:        "given coupon above discounted catalog price should reject",
			param:       request.ApplyCoupon{LineId: "line-2", NewPrice: decimal.NewFromInt(45000)},
			expectedErr: inErrors.ErrCouponAbovePrice,
		},
		{
			name:        "given unknown line should reject",
			param:       request.ApplyCoupon{LineId: "line-gone", NewPrice: decimal.NewFromInt(1)},
			expectedErr: inErrors.ErrLineNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeCartFetcher{
				cart: response.Cart{CartItems: []response.CartLine{
					cartLine("line-1", 100000, 0, 1),
					cartLine("line-2", 50000, 40000, 1),
				}},
			}
			service, memory := newService(fetcher, "")

			c := testContext()
			err := service.ApplyLineCoupon(c, "token", "user-1", tt.param)

			snapshot, snapErr := memory.Snapshot(c, "user-1")
			assert.NoError(t, snapErr)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Empty(t, snapshot.LineCoupons, "rejected coupon must not be stored")
				return
			}
			assert.NoError(t, err)
			assert.True(t, tt.param.NewPrice.Equal(snapshot.LineCoupons[tt.param.LineId]))
		})
	}
}

func TestQuoteAppliesCouponsAndShippingDiscount(t *testing.T) {
	fetcher := &fakeCartFetcher{
		cart: response.Cart{CartItems: []response.CartLine{
			cartLine("line-1", 100000, 0, 2),
			cartLine("line-2", 50000, 40000, 1),
			cartLine("line-3", 1000000, 0, 1),
		}},
	}
	service, memory := newService(fetcher, "")

	c := testContext()
	assert.NoError(t, memory.Select(c, "user-1", []string{"line-1", "line-2"}))
	assert.NoError(
		t,
		memory.SetLineCoupon(c, "user-1", store.LineCoupon{
			LineId:   "line-1",
			NewPrice: decimal.NewFromInt(80000),
		}),
	)
	assert.NoError(
		t,
		memory.SetShippingDiscount(c, "user-1", store.ShippingDiscount{
			Code:   "FREESHIP",
			Amount: decimal.NewFromInt(15000),
		}),
	)

	quote, err := service.Quote(c, "token", "user-1")

	assert.NoError(t, err)
	assert.Len(t, quote.Lines, 2, "unselected lines must not be quoted")
	assert.True(t, decimal.NewFromInt(80000).Equal(quote.Lines[0].EffectiveUnitPrice))
	assert.True(t, decimal.NewFromInt(40000).Equal(quote.Lines[1].EffectiveUnitPrice))
	assert.True(t, decimal.NewFromInt(240000).Equal(quote.Pricing.Subtotal))
	assert.True(t, decimal.NewFromInt(40000).Equal(quote.Pricing.ProductCouponDiscount))
	assert.True(t, decimal.NewFromInt(15000).Equal(quote.Pricing.ShippingDiscount))
	assert.True(t, decimal.NewFromInt(215000).Equal(quote.Pricing.Total))
}

func TestQuoteIgnoresGhostSelectionAndStaleCoupon(t *testing.T) {
	fetcher := &fakeCartFetcher{
		cart: response.Cart{CartItems: []response.CartLine{
			cartLine("line-1", 100000, 0, 1),
		}},
	}
	service, memory := newService(fetcher, "")

	c := testContext()
	assert.NoError(t, memory.Select(c, "user-1", []string{"line-1", "line-removed"}))
	assert.NoError(
		t,
		memory.SetLineCoupon(c, "user-1", store.LineCoupon{
			LineId:   "line-removed",
			NewPrice: decimal.NewFromInt(1),
		}),
	)

	quote, err := service.Quote(c, "token", "user-1")

	assert.NoError(t, err)
	assert.Len(t, quote.Lines, 1)
	assert.True(t, decimal.Zero.Equal(quote.Pricing.ProductCouponDiscount))
	assert.True(t, decimal.NewFromInt(130000).Equal(quote.Pricing.Total))
}

func TestPlaceOrderRejectsMissingAddressBeforeNetwork(t *testing.T) {
	fetcher := &fakeCartFetcher{
		cart: response.Cart{CartItems: []response.CartLine{cartLine("line-1", 100000, 0, 1)}},
	}
	service, memory := newService(fetcher, "")

	c := testContext()
	assert.NoError(t, memory.Select(c, "user-1", []string{"line-1"}))

	_, err := service.PlaceOrder(c, "token", "user-1", request.PlaceOrder{})

	assert.ErrorIs(t, err, inErrors.ErrMissingAddress)
	assert.EqualValues(t, 0, fetcher.calls, "invalid order should never reach the network")
}

func TestPlaceOrderRejectsEmptySelection(t *testing.T) {
	fetcher := &fakeCartFetcher{
		cart: response.Cart{CartItems: []response.CartLine{cartLine("line-1", 100000, 0, 1)}},
	}
	service, _ := newService(fetcher, "")

	c := testContext()
	_, err := service.PlaceOrder(c, "token", "user-1", request.PlaceOrder{
		ShippingAddress: shippingAddress(),
	})

	assert.ErrorIs(t, err, inErrors.ErrEmptySelection)
}

func TestPlaceOrderSubmitsEffectivePricesAndClearsState(t *testing.T) {
	received := request.SubmitOrder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.EqualValues(t, http.MethodPost, r.Method)
		assert.EqualValues(t, "Bearer token", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]interface{}{"orderId": "order-1"})
	}))
	defer server.Close()

	fetcher := &fakeCartFetcher{
		cart: response.Cart{CartItems: []response.CartLine{
			cartLine("line-1", 100000, 0, 2),
			cartLine("line-2", 50000, 40000, 1),
		}},
	}
	service, memory := newService(fetcher, server.URL)

	c := testContext()
	assert.NoError(t, memory.Select(c, "user-1", []string{"line-1", "line-2"}))
	assert.NoError(
		t,
		memory.SetLineCoupon(c, "user-1", store.LineCoupon{
			LineId:   "line-1",
			NewPrice: decimal.NewFromInt(80000),
		}),
	)
	assert.NoError(
		t,
		memory.SetShippingDiscount(c, "user-1", store.ShippingDiscount{
			Code:   "FREESHIP",
			Amount: decimal.NewFromInt(15000),
		}),
	)

	order, err := service.PlaceOrder(c, "token", "user-1", request.PlaceOrder{
		ShippingAddress: shippingAddress(),
	})

	assert.NoError(t, err)
	assert.EqualValues(t, "order-1", order.OrderId)
	assert.True(t, decimal.NewFromInt(215000).Equal(order.Pricing.Total))

	assert.Len(t, received.OrderItems, 2)
	assert.True(t, decimal.NewFromInt(80000).Equal(received.OrderItems[0].Price))
	assert.True(t, decimal.NewFromInt(40000).Equal(received.OrderItems[1].Price))
	assert.True(t, decimal.NewFromInt(55000).Equal(received.Discount))
	assert.True(t, decimal.NewFromInt(215000).Equal(received.Total))

	snapshot, err := memory.Snapshot(c, "user-1")
	assert.NoError(t, err)
	assert.Empty(t, snapshot.LineCoupons, "discounts must be cleared after placement")
	assert.Nil(t, snapshot.ShippingDiscount)
	selected, err := memory.Selected(c, "user-1")
	assert.NoError(t, err)
	assert.Empty(t, selected, "selection must be cleared after placement")
}

func TestPlaceOrderKeepsStateWhenOrderApiFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]interface{}{"message": "order api down"})
	}))
	defer server.Close()

	fetcher := &fakeCartFetcher{
		cart: response.Cart{CartItems: []response.CartLine{cartLine("line-1", 100000, 0, 1)}},
	}
	service, memory := newService(fetcher, server.URL)

	c := testContext()
	assert.NoError(t, memory.Select(c, "user-1", []string{"line-1"}))

	_, err := service.PlaceOrder(c, "token", "user-1", request.PlaceOrder{
		ShippingAddress: shippingAddress(),
	})

	assert.Error(t, err)
	selected, selErr := memory.Selected(c, "user-1")
	assert.NoError(t, selErr)
	assert.EqualValues(
		t,
		[]string{"line-1"},
		selected,
		"failed placement must keep the checkout state",
	)
}
