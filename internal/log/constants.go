package log

const (
	KeyAppName            = "app"
	KeyRequestID          = "requestId"
	KeyProcess            = "process"
	KeyTag                = "tag"
	KeyConfig             = "config"
	KeyToken              = "token"
	KeyUserID             = "userId"
	KeyCart               = "cart"
	KeyCartLineID         = "cartLineId"
	KeyCartLines          = "cartLines"
	KeyCouponPrice        = "couponPrice"
	KeyShippingCode       = "shippingCode"
	KeySelection          = "selection"
	KeyQuote              = "quote"
	KeySequence           = "sequence"
	KeyPushFrame          = "pushFrame"
	KeyCacheKey           = "cacheKey"
	KeyPathValues         = "pathValues"
	KeyRequest            = "request"
	KeyHeader             = "header"
	KeyBody               = "body"
	KeyRequestBody        = "requestBody"
	KeyRequestHeader      = "requestHeader"
	KeyRequestHost        = "host"
	KeyRequestIp          = "requesterIP"
	KeyRequestMethod      = "requestMethod"
	KeyRequestProcessedAt = "requestProcessedAt"
	KeyRequestURI         = "requestURI"
	KeyRequestURL         = "requestURL"
	KeyTraceID            = "traceId"
	KeySpanID             = "spanId"
)
