package constants

const (
	APP_CART_SERVICE     = "cart-service"
	APP_CHECKOUT_SERVICE = "checkout-service"
	APP_CART_SUBSCRIBER  = "cart-update-subscriber"
	APP_MAIN_STOREFRONT  = "main storefront"
)

const AUDIENCE_USER = "user"

// Push frame types on the cart channel. cart_update triggers a re-fetch in
// the cart service; cart_clear tears down checkout state for the user.
const (
	PushTypeCartUpdate = "cart_update"
	PushTypeCartClear  = "cart_clear"
)
