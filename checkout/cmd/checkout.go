package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	commonOtel "github.com/hoangtv/storefront/checkout/internal/common/otel"
	"github.com/hoangtv/storefront/checkout/internal/controller"
	"github.com/hoangtv/storefront/checkout/internal/push"
	"github.com/hoangtv/storefront/checkout/internal/service"
	"github.com/hoangtv/storefront/checkout/internal/store"
	"github.com/hoangtv/storefront/internal/cart/gateway"
	"github.com/hoangtv/storefront/internal/config"
	"github.com/hoangtv/storefront/internal/constants"
	"github.com/hoangtv/storefront/internal/infra"
	"github.com/hoangtv/storefront/internal/log"
	"github.com/hoangtv/storefront/internal/middleware"
	"github.com/hoangtv/storefront/internal/otel"
)

func RunCheckoutService(c context.Context) {
	c, span := commonOtel.Tracer.Start(c, "RunCheckoutService")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.APP_CHECKOUT_SERVICE).
		Str(log.KeyTag, "main RunCheckoutService").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "init config").Logger()
	logger.Info().Msg("initializing config")
	c = logger.WithContext(c)
	cfg := config.InitConfig(c, constants.APP_CHECKOUT_SERVICE)
	logger = logger.With().Any(log.KeyConfig, cfg).Logger()
	logger.Info().Msg("initialized config")

	logger = logger.With().Str(log.KeyProcess, "initializing otel sdk").Logger()
	logger.Info().Msg("initializing otel sdk")
	c = logger.WithContext(c)
	otelShutdowns, err := otel.InitOtelSdk(c, fmt.Sprintf("%s:%d", cfg.Otel.Host, cfg.Otel.Port))
	if err != nil {
		err = fmt.Errorf("failed initializing otel sdk with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	defer func() {
		logger.Info().Msg("shutting down otel")
		c = logger.WithContext(c)
		err = otel.ShutdownOtel(c, otelShutdowns)
		if err != nil {
			err = fmt.Errorf("failed shutting down otel with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown otel")
	}()
	logger.Info().Msg("initialized otel sdk")

	logger = logger.With().Str(log.KeyProcess, "initializing cache").Logger()
	logger.Info().Msg("initializing cache")
	c = logger.WithContext(c)
	cache := infra.NewCacheClient(c, cfg.Cache)
	defer func() {
		logger = logger.With().Str(log.KeyProcess, "shutting down cache").Logger()
		logger.Info().Msg("shutting down cache")
		err = cache.Close()
		if err != nil {
			err = fmt.Errorf("failed shutting down cache with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown cache")
	}()
	logger.Info().Msg("initialized cache")

	logger = logger.With().Str(log.KeyProcess, "initializing checkout service").Logger()
	logger.Info().Msg("initializing checkout service")
	cartGateway := gateway.NewClient(cfg.Storefront.CartBaseURL)
	checkoutStore := store.NewRedisStore(cache)
	checkoutService := service.NewCheckoutService(
		cartGateway,
		checkoutStore,
		checkoutStore,
		cfg.Storefront.OrderBaseURL,
		decimal.NewFromInt(cfg.Storefront.ShippingFee),
	)
	logger.Info().Msg("initialized checkout service")

	logger = logger.With().Str(log.KeyProcess, "initializing push subscriber").Logger()
	logger.Info().Msg("initializing push subscriber")
	subscriber := push.NewSubscriber(
		cache,
		cfg.Storefront.CartChannel,
		func(sc context.Context, userId string) error {
			if err := checkoutStore.Clear(sc, userId); err != nil {
				return err
			}
			return checkoutStore.ClearSelection(sc, userId)
		},
	)
	go subscriber.Listen(c)
	logger.Info().Msg("initialized push subscriber")

	logger = logger.With().Str(log.KeyProcess, "initializing router").Logger()
	logger.Info().Msg("initializing router")
	router := mux.NewRouter()
	router.Use(
		otelmux.Middleware(constants.APP_CHECKOUT_SERVICE),
		middleware.Logging,
		middleware.RecoverPanic,
	)
	router.Handle("/metrics", promhttp.Handler())
	protected := router.NewRoute().Subrouter()
	protected.Use(middleware.Auth)
	controller.AttachCheckoutController(protected, checkoutService)
	logger.Info().Msg("initialized router")

	logger = logger.With().Str(log.KeyProcess, "initializing server").Logger()
	logger.Info().Msg("initializing server")
	httpServer := http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Application.Host, cfg.Application.Port),
		BaseContext:  func(net.Listener) context.Context { return c },
		Handler:      router,
		ReadTimeout:  45 * time.Second,
		WriteTimeout: 45 * time.Second,
	}
	logger.Info().Msg("initialized server")

	go func() {
		logger = logger.With().Str(log.KeyProcess, "start server").Logger()
		logger.Info().Msgf("start listening request at %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			err = fmt.Errorf("error=%w occured while server is running", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return
		}
		logger.Info().Msg("shutdown server")
	}()

	<-c.Done()
	logger = logger.With().Str(log.KeyProcess, "shutting down http server").Logger()
	logger.Info().Msg("received interuption signal shutting down")
	err = httpServer.Shutdown(c)
	if err != nil {
		err = fmt.Errorf("failed shutting down http server with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("shutdown http server")
}
