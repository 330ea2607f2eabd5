package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/hoangtv/storefront/checkout/internal/common/otel"
	"github.com/hoangtv/storefront/checkout/internal/service"
	"github.com/hoangtv/storefront/checkout/pkg/request"
	"github.com/hoangtv/storefront/internal"
	inErrors "github.com/hoangtv/storefront/internal/errors"
	inHttp "github.com/hoangtv/storefront/internal/http"
	"github.com/hoangtv/storefront/internal/log"
	inOtel "github.com/hoangtv/storefront/internal/otel"
)

type CheckoutController struct {
	service *service.CheckoutService
}

func AttachCheckoutController(mux *mux.Router, service *service.CheckoutService) {
	controller := CheckoutController{service: service}

	router := mux.PathPrefix("/checkouts").Subrouter()
	router.HandleFunc("/selection", controller.SelectLines).Methods(http.MethodPut)
	router.HandleFunc("/coupons", controller.ApplyLineCoupon).Methods(http.MethodPost)
	router.HandleFunc("/coupons/{cartLineId}", controller.RemoveLineCoupon).
		Methods(http.MethodDelete)
	router.HandleFunc("/shipping-discount", controller.ApplyShippingDiscount).
		Methods(http.MethodPut)
	router.HandleFunc("/shipping-discount", controller.RemoveShippingDiscount).
		Methods(http.MethodDelete)
	router.HandleFunc("/quote", controller.Quote).Methods(http.MethodGet)
	router.HandleFunc("/orders", controller.PlaceOrder).Methods(http.MethodPost)
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, inErrors.ErrEmptyAuth):
		return http.StatusUnauthorized
	case errors.Is(err, inErrors.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, inErrors.ErrCouponAbovePrice),
		errors.Is(err, inErrors.ErrEmptySelection),
		errors.Is(err, inErrors.ErrMissingAddress):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeFailure(c context.Context, w http.ResponseWriter, err error) {
	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "failed",
		"statusCode": statusCodeFor(err),
		"message":    err.Error(),
	})
}

func (t CheckoutController) SelectLines(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController SelectLines")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController SelectLines").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding requestbody").Logger()
	logger.Info().Msg("decoding requestbody")
	reqBody := request.SelectLines{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating requestbody").Logger()
	logger.Info().Msg("validating request body")
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "selecting lines").Logger()
	logger.Info().Msg("selecting lines")
	c = logger.WithContext(c)
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		inOtel.RecordError(err, span)
		writeFailure(c, w, err)
		return
	}
	selected, err := t.service.SelectLines(
		c,
		internal.BearerTokenFromContext(c),
		userId.String(),
		reqBody,
	)
	if err != nil {
		err = fmt.Errorf("failed selecting lines with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("selected lines")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully selected lines",
		"data": map[string]interface{}{
			"selectedLineIds": selected,
		},
	})
}

func (t CheckoutController) ApplyLineCoupon(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController ApplyLineCoupon")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController ApplyLineCoupon").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding requestbody").Logger()
	logger.Info().Msg("decoding requestbody")
	reqBody := request.ApplyCoupon{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating requestbody").Logger()
	logger.Info().Msg("validating request body")
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("validated request body")

	logger = logger.With().Str(log.KeyProcess, "applying coupon").Logger()
	logger.Info().Msgf("applying coupon to cartLineId=%s", reqBody.LineId)
	c = logger.WithContext(c)
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		inOtel.RecordError(err, span)
		writeFailure(c, w, err)
		return
	}
	err = t.service.ApplyLineCoupon(c, internal.BearerTokenFromContext(c), userId.String(), reqBody)
	if err != nil {
		err = fmt.Errorf("failed applying coupon with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msgf("applied coupon to cartLineId=%s", reqBody.LineId)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("applied coupon to cartLineId=%s", reqBody.LineId),
	})
}

func (t CheckoutController) RemoveLineCoupon(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController RemoveLineCoupon")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController RemoveLineCoupon").
		Logger()

	lineId := mux.Vars(r)["cartLineId"]
	logger = logger.With().
		Str(log.KeyCartLineID, lineId).
		Str(log.KeyProcess, "removing coupon").
		Logger()

	logger.Info().Msgf("removing coupon from cartLineId=%s", lineId)
	c = logger.WithContext(c)
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		inOtel.RecordError(err, span)
		writeFailure(c, w, err)
		return
	}
	if err := t.service.RemoveLineCoupon(c, userId.String(), lineId); err != nil {
		err = fmt.Errorf("failed removing coupon from cartLineId=%s with error=%w", lineId, err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msgf("removed coupon from cartLineId=%s", lineId)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("removed coupon from cartLineId=%s", lineId),
	})
}

func (t CheckoutController) ApplyShippingDiscount(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController ApplyShippingDiscount")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController ApplyShippingDiscount").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding requestbody").Logger()
	logger.Info().Msg("decoding requestbody")
	reqBody := request.ApplyShippingDiscount{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "validating requestbody").Logger()
	logger.Info().Msg("validating request body")
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.StructCtx(c, reqBody); err != nil {
		err = fmt.Errorf("failed validating request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("validated request body")

	logger = logger.With().
		Str(log.KeyShippingCode, reqBody.Code).
		Str(log.KeyProcess, "applying shipping discount").
		Logger()
	logger.Info().Msgf("applying shipping discount code=%s", reqBody.Code)
	c = logger.WithContext(c)
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		inOtel.RecordError(err, span)
		writeFailure(c, w, err)
		return
	}
	if err := t.service.ApplyShippingDiscount(c, userId.String(), reqBody); err != nil {
		err = fmt.Errorf("failed applying shipping discount with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msgf("applied shipping discount code=%s", reqBody.Code)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    fmt.Sprintf("applied shipping discount code=%s", reqBody.Code),
	})
}

func (t CheckoutController) RemoveShippingDiscount(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController RemoveShippingDiscount")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController RemoveShippingDiscount").
		Str(log.KeyProcess, "removing shipping discount").
		Logger()

	logger.Info().Msg("removing shipping discount")
	c = logger.WithContext(c)
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		inOtel.RecordError(err, span)
		writeFailure(c, w, err)
		return
	}
	if err := t.service.RemoveShippingDiscount(c, userId.String()); err != nil {
		err = fmt.Errorf("failed removing shipping discount with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("removed shipping discount")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "removed shipping discount",
	})
}

func (t CheckoutController) Quote(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController Quote")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController Quote").
		Str(log.KeyProcess, "computing quote").
		Logger()

	logger.Info().Msg("computing quote")
	c = logger.WithContext(c)
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		inOtel.RecordError(err, span)
		writeFailure(c, w, err)
		return
	}
	quote, err := t.service.Quote(c, internal.BearerTokenFromContext(c), userId.String())
	if err != nil {
		err = fmt.Errorf("failed computing quote with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msg("computed quote")

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully computed quote",
		"data": map[string]interface{}{
			"quote": quote,
		},
	})
}

func (t CheckoutController) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	c, span := otel.Tracer.Start(r.Context(), "CheckoutController PlaceOrder")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutController PlaceOrder").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "decoding requestbody").Logger()
	logger.Info().Msg("decoding requestbody")
	reqBody := request.PlaceOrder{}
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		err = fmt.Errorf("failed decoding request body with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
			"status":     "failed",
			"statusCode": http.StatusBadRequest,
			"message":    err.Error(),
		})
		return
	}
	logger.Info().Msg("decoded request body")

	logger = logger.With().Str(log.KeyProcess, "placing order").Logger()
	logger.Info().Msg("placing order")
	c = logger.WithContext(c)
	userId, err := internal.UserIdFromJwtToken(c)
	if err != nil {
		inOtel.RecordError(err, span)
		writeFailure(c, w, err)
		return
	}
	order, err := t.service.PlaceOrder(
		c,
		internal.BearerTokenFromContext(c),
		userId.String(),
		reqBody,
	)
	if err != nil {
		err = fmt.Errorf("failed placing order with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		writeFailure(c, w, err)
		return
	}
	logger.Info().Msgf("placed orderId=%s", order.OrderId)

	inHttp.WriteJsonResponse(c, w, map[string]string{}, map[string]interface{}{
		"status":     "success",
		"statusCode": http.StatusOK,
		"message":    "successfully placed order",
		"data": map[string]interface{}{
			"order": order,
		},
	})
}
