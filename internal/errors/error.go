package errors

import (
	"errors"
)

var (
	ErrEmptyAuth        = errors.New("missing authorization")
	ErrEmptySubject     = errors.New("missing subject")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrLineNotFound     = errors.New("cart line not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrEmptySelection   = errors.New("no cart lines selected")
	ErrMissingAddress   = errors.New("missing shipping address")
	ErrCouponAbovePrice = errors.New("coupon price is above catalog price")
	ErrDanglingCoupon   = errors.New("coupon references a line outside the selection")
	ErrStaleResponse    = errors.New("stale cart response superseded by a newer mutation")
)
