package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	cartResponse "github.com/hoangtv/storefront/cart/pkg/response"
	"github.com/hoangtv/storefront/checkout/internal/common/otel"
	"github.com/hoangtv/storefront/checkout/internal/pricing"
	"github.com/hoangtv/storefront/checkout/internal/store"
	"github.com/hoangtv/storefront/checkout/pkg/request"
	"github.com/hoangtv/storefront/checkout/pkg/response"
	"github.com/hoangtv/storefront/internal/cart/aggregate"
	inErrors "github.com/hoangtv/storefront/internal/errors"
	inHttp "github.com/hoangtv/storefront/internal/http"
	"github.com/hoangtv/storefront/internal/log"
	inOtel "github.com/hoangtv/storefront/internal/otel"
)

// CartFetcher is the slice of the cart gateway checkout needs: the
// authoritative server cart, read-only.
type CartFetcher interface {
	Get(c context.Context, token string) (cartResponse.Cart, error)
}

type CheckoutService struct {
	carts        CartFetcher
	discounts    store.DiscountStore
	selection    store.SelectionStore
	orderBaseURL string
	shippingFee  decimal.Decimal
	client       *http.Client
}

func NewCheckoutService(
	carts CartFetcher,
	discounts store.DiscountStore,
	selection store.SelectionStore,
	orderBaseURL string,
	shippingFee decimal.Decimal,
) *CheckoutService {
	return &CheckoutService{
		carts:        carts,
		discounts:    discounts,
		selection:    selection,
		orderBaseURL: orderBaseURL,
		shippingFee:  shippingFee,
		client:       otelhttp.DefaultClient,
	}
}

// SelectLines snapshots which cart lines the user intends to purchase. Ids
// that do not reference an existing line are dropped before the snapshot is
// stored.
func (s *CheckoutService) SelectLines(
	c context.Context,
	token string,
	userId string,
	param request.SelectLines,
) ([]string, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService SelectLines")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService SelectLines").
		Str(log.KeyUserID, userId).
		Strs(log.KeySelection, param.LineIds).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching cart").Logger()
	logger.Info().Msg("fetching cart")
	cart, err := s.carts.Get(c, token)
	if err != nil {
		err = fmt.Errorf("failed fetching cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("fetched cart")

	logger = logger.With().Str(log.KeyProcess, "storing selection").Logger()
	agg := aggregate.New(cart.CartItems)
	selected := agg.SelectedLines(param.LineIds)
	lineIds := make([]string, len(selected))
	for i, line := range selected {
		lineIds[i] = line.ID
	}
	logger.Info().Msgf("storing %d selected line ids", len(lineIds))
	if err := s.selection.Select(c, userId, lineIds); err != nil {
		err = fmt.Errorf("failed storing selection with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("stored selection")

	return lineIds, nil
}

// ApplyLineCoupon validates a manual coupon against the line's catalog price
// and records it. A coupon above the catalog price would silently raise the
// total, so it is rejected here rather than replicated.
func (s *CheckoutService) ApplyLineCoupon(
	c context.Context,
	token string,
	userId string,
	param request.ApplyCoupon,
) error {
	c, span := otel.Tracer.Start(c, "CheckoutService ApplyLineCoupon")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService ApplyLineCoupon").
		Str(log.KeyUserID, userId).
		Str(log.KeyCartLineID, param.LineId).
		Str(log.KeyCouponPrice, param.NewPrice.String()).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "fetching cart").Logger()
	logger.Info().Msg("fetching cart")
	cart, err := s.carts.Get(c, token)
	if err != nil {
		err = fmt.Errorf("failed fetching cart with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("fetched cart")

	logger = logger.With().Str(log.KeyProcess, "validating coupon").Logger()
	agg := aggregate.New(cart.CartItems)
	line, ok := agg.Line(param.LineId)
	if !ok {
		err = fmt.Errorf(
			"failed validating coupon for lineId=%s with error=%w",
			param.LineId,
			inErrors.ErrLineNotFound,
		)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if param.NewPrice.GreaterThan(line.CatalogUnitPrice()) {
		err = fmt.Errorf(
			"failed validating coupon for lineId=%s with error=%w",
			param.LineId,
			inErrors.ErrCouponAbovePrice,
		)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("validated coupon")

	logger = logger.With().Str(log.KeyProcess, "storing coupon").Logger()
	logger.Info().Msg("storing coupon")
	err = s.discounts.SetLineCoupon(
		c,
		userId,
		store.LineCoupon{LineId: param.LineId, NewPrice: param.NewPrice},
	)
	if err != nil {
		err = fmt.Errorf("failed storing coupon with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("stored coupon")

	return nil
}

func (s *CheckoutService) RemoveLineCoupon(c context.Context, userId string, lineId string) error {
	c, span := otel.Tracer.Start(c, "CheckoutService RemoveLineCoupon")
	defer span.End()

	err := s.discounts.ClearLineCoupon(c, userId, lineId)
	if err != nil {
		err = fmt.Errorf("failed removing coupon for lineId=%s with error=%w", lineId, err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}

// ApplyShippingDiscount records a flat shipping deduction. Last applied wins.
func (s *CheckoutService) ApplyShippingDiscount(
	c context.Context,
	userId string,
	param request.ApplyShippingDiscount,
) error {
	c, span := otel.Tracer.Start(c, "CheckoutService ApplyShippingDiscount")
	defer span.End()

	err := s.discounts.SetShippingDiscount(
		c,
		userId,
		store.ShippingDiscount{Code: param.Code, Amount: param.Amount},
	)
	if err != nil {
		err = fmt.Errorf("failed applying shipping discount with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}

func (s *CheckoutService) RemoveShippingDiscount(c context.Context, userId string) error {
	c, span := otel.Tracer.Start(c, "CheckoutService RemoveShippingDiscount")
	defer span.End()

	err := s.discounts.ClearShippingDiscount(c, userId)
	if err != nil {
		err = fmt.Errorf("failed removing shipping discount with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}

// Quote recomputes the pricing projection from the live cart, the selection
// snapshot and the discount state. Selected ids and coupons whose line no
// longer exists are filtered out, never failing the computation.
func (s *CheckoutService) Quote(
	c context.Context,
	token string,
	userId string,
) (response.Quote, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService Quote")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService Quote").
		Str(log.KeyUserID, userId).
		Logger()

	selected, discounts, err := s.selectedState(c, token, userId, &logger)
	if err != nil {
		inOtel.RecordError(err, span)
		return response.Quote{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "computing pricing").Logger()
	logger.Info().Msg("computing pricing")
	snapshot, err := pricing.Compute(selected, discounts, s.shippingFee)
	if err != nil {
		err = fmt.Errorf("failed computing pricing with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Quote{}, err
	}
	logger = logger.With().Any(log.KeyQuote, snapshot).Logger()
	logger.Info().Msg("computed pricing")

	lines := make([]response.QuoteLine, len(selected))
	for i, line := range selected {
		lines[i] = response.QuoteLine{
			Line:               line,
			EffectiveUnitPrice: pricing.EffectiveUnitPrice(line, discounts),
		}
	}

	return response.Quote{Lines: lines, Pricing: snapshot}, nil
}

// PlaceOrder validates the checkout pass and hands the order to the
// order-placement API. Validation failures surface before any network call;
// on success the selection and discount state are torn down.
func (s *CheckoutService) PlaceOrder(
	c context.Context,
	token string,
	userId string,
	param request.PlaceOrder,
) (response.Order, error) {
	c, span := otel.Tracer.Start(c, "CheckoutService PlaceOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService PlaceOrder").
		Str(log.KeyUserID, userId).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating order").Logger()
	if param.ShippingAddress.FullName == "" || param.ShippingAddress.Street == "" ||
		param.ShippingAddress.City == "" {
		err := fmt.Errorf("failed validating order with error=%w", inErrors.ErrMissingAddress)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}

	selected, discounts, err := s.selectedState(c, token, userId, &logger)
	if err != nil {
		inOtel.RecordError(err, span)
		return response.Order{}, err
	}
	if len(selected) == 0 {
		err = fmt.Errorf("failed validating order with error=%w", inErrors.ErrEmptySelection)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("validated order")

	logger = logger.With().Str(log.KeyProcess, "computing pricing").Logger()
	logger.Info().Msg("computing pricing")
	snapshot, err := pricing.Compute(selected, discounts, s.shippingFee)
	if err != nil {
		err = fmt.Errorf("failed computing pricing with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msg("computed pricing")

	logger = logger.With().Str(log.KeyProcess, "submitting order").Logger()
	orderItems := make([]request.OrderItem, len(selected))
	for i, line := range selected {
		orderItems[i] = request.OrderItem{
			ProductId: line.Product.ID,
			Quantity:  line.Quantity,
			Price:     pricing.EffectiveUnitPrice(line, discounts),
			Size:      line.Size,
			Color:     line.Color,
		}
	}
	submit := request.SubmitOrder{
		OrderItems:      orderItems,
		ShippingAddress: param.ShippingAddress,
		ShippingFee:     snapshot.ShippingFee,
		Discount:        snapshot.ShippingDiscount.Add(snapshot.ProductCouponDiscount),
		Total:           snapshot.Total,
	}
	orderId, err := s.submitOrder(c, token, submit)
	if err != nil {
		err = fmt.Errorf("failed submitting order with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Order{}, err
	}
	logger.Info().Msgf("submitted orderId=%s", orderId)

	logger = logger.With().Str(log.KeyProcess, "tearing down checkout state").Logger()
	logger.Info().Msg("tearing down checkout state")
	if err := s.discounts.Clear(c, userId); err != nil {
		err = fmt.Errorf("failed clearing discount state with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
	if err := s.selection.ClearSelection(c, userId); err != nil {
		err = fmt.Errorf("failed clearing selection with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
	}
	logger.Info().Msg("tore down checkout state")

	return response.Order{OrderId: orderId, Pricing: snapshot}, nil
}

// selectedState fetches the authoritative cart, applies the selection
// snapshot to it and filters the discount snapshot down to surviving lines.
func (s *CheckoutService) selectedState(
	c context.Context,
	token string,
	userId string,
	logger *zerolog.Logger,
) ([]cartResponse.CartLine, store.Snapshot, error) {
	l := logger.With().Str(log.KeyProcess, "fetching cart").Logger()
	l.Info().Msg("fetching cart")
	cart, err := s.carts.Get(c, token)
	if err != nil {
		err = fmt.Errorf("failed fetching cart with error=%w", err)
		l.Error().Err(err).Msg(err.Error())
		return nil, store.Snapshot{}, err
	}
	l.Info().Msg("fetched cart")

	l = logger.With().Str(log.KeyProcess, "reading checkout state").Logger()
	lineIds, err := s.selection.Selected(c, userId)
	if err != nil {
		err = fmt.Errorf("failed reading selection with error=%w", err)
		l.Error().Err(err).Msg(err.Error())
		return nil, store.Snapshot{}, err
	}
	discounts, err := s.discounts.Snapshot(c, userId)
	if err != nil {
		err = fmt.Errorf("failed reading discount snapshot with error=%w", err)
		l.Error().Err(err).Msg(err.Error())
		return nil, store.Snapshot{}, err
	}

	agg := aggregate.New(cart.CartItems)
	selected := agg.SelectedLines(lineIds)
	selectedIds := make([]string, len(selected))
	for i, line := range selected {
		selectedIds[i] = line.ID
	}
	l.Info().Msgf("read checkout state with %d selected lines", len(selected))

	return selected, discounts.FilteredTo(selectedIds), nil
}

func (s *CheckoutService) submitOrder(
	c context.Context,
	token string,
	param request.SubmitOrder,
) (string, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutService submitOrder").
		Logger()

	payload, err := json.Marshal(param)
	if err != nil {
		return "", fmt.Errorf("failed marshaling order with error=%w", err)
	}

	req, err := http.NewRequestWithContext(
		c,
		http.MethodPost,
		s.orderBaseURL,
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed creating order request with error=%w", err)
	}
	req.Header.Add("Authorization", "Bearer "+token)
	req.Header.Add(inHttp.HeaderContentType, inHttp.HeaderValueJson)
	if requestId := log.RequestIDFromContext(c); requestId != "" {
		req.Header.Add(inHttp.KEY_HEADER_REQUEST_ID, requestId)
	}

	logger.Info().Msg("sending order to order api")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed calling order api with error=%w", err)
	}
	defer resp.Body.Close()

	respBody := map[string]interface{}{}
	json.NewDecoder(resp.Body).Decode(&respBody)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf(
			"order api returned status code=%d with message=%v",
			resp.StatusCode,
			respBody["message"],
		)
	}
	logger.Info().Msg("order api accepted order")

	orderId, _ := respBody["orderId"].(string)
	return orderId, nil
}
