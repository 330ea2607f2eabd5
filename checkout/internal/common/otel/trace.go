package otel

import (
	"go.opentelemetry.io/otel"

	"github.com/hoangtv/storefront/internal/constants"
)

var Tracer = otel.Tracer(constants.APP_CHECKOUT_SERVICE)
