package response

import (
	"github.com/shopspring/decimal"

	cartResponse "github.com/hoangtv/storefront/cart/pkg/response"
	"github.com/hoangtv/storefront/checkout/internal/pricing"
)

type QuoteLine struct {
	Line               cartResponse.CartLine `json:"line"`
	EffectiveUnitPrice decimal.Decimal       `json:"effectiveUnitPrice"`
}

type Quote struct {
	Lines   []QuoteLine             `json:"lines"`
	Pricing pricing.PricingSnapshot `json:"pricing"`
}

type Order struct {
	OrderId string                  `json:"orderId"`
	Pricing pricing.PricingSnapshot `json:"pricing"`
}
