package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hoangtv/storefront/cart/pkg/request"
	inErrors "github.com/hoangtv/storefront/internal/errors"
	inHttp "github.com/hoangtv/storefront/internal/http"
	"github.com/hoangtv/storefront/internal/log"
)

func testContext() context.Context {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		WithContext(context.Background())
}

func TestGetRequiresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request without a credential must never reach the cart api")
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Get(testContext(), "")

	assert.ErrorIs(t, err, inErrors.ErrEmptyAuth)
}

func TestGetDecodesCart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.EqualValues(t, http.MethodGet, r.Method)
		assert.EqualValues(t, "/user", r.URL.Path)
		assert.EqualValues(t, "Bearer token", r.Header.Get("Authorization"))
		w.Header().Set(inHttp.HeaderContentType, inHttp.HeaderValueJson)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"cartItems": []map[string]interface{}{
				{
					"_id": "line-1",
					"product": map[string]interface{}{
						"_id":           "product-1",
						"name":          "sneakers",
						"price":         250000,
						"discountPrice": 200000,
					},
					"quantity": 2,
					"size":     "42",
					"color":    "black",
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	cart, err := client.Get(testContext(), "token")

	assert.NoError(t, err)
	assert.Len(t, cart.CartItems, 1)
	line := cart.CartItems[0]
	assert.EqualValues(t, "line-1", line.ID)
	assert.EqualValues(t, "product-1", line.Product.ID)
	assert.EqualValues(t, 2, line.Quantity)
	assert.True(t, line.CatalogUnitPrice().Equal(line.Product.DiscountPrice))
}

func TestAddSendsPayloadAndRequestId(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.EqualValues(t, http.MethodPost, r.Method)
		assert.EqualValues(t, "req-1", r.Header.Get(inHttp.KEY_HEADER_REQUEST_ID))

		payload := request.AddItem{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.EqualValues(t, "product-1", payload.ProductId)
		assert.EqualValues(t, 2, payload.Quantity)

		w.Header().Set(inHttp.HeaderContentType, inHttp.HeaderValueJson)
		json.NewEncoder(w).Encode(map[string]interface{}{"cartItems": []interface{}{}})
	}))
	defer server.Close()

	c := log.AttachRequestIDToContext(testContext(), "req-1")
	client := NewClient(server.URL)
	_, err := client.Add(c, "token", request.AddItem{ProductId: "product-1", Quantity: 2})

	assert.NoError(t, err)
}

func TestNon2xxReturnsGatewayError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		message    string
	}{
		{
			name:       "given 404 should surface status and message",
			statusCode: http.StatusNotFound,
			message:    "cart item not found",
		},
		{
			name:       "given 500 should surface status",
			statusCode: http.StatusInternalServerError,
			message:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set(inHttp.HeaderContentType, inHttp.HeaderValueJson)
					w.WriteHeader(tt.statusCode)
					json.NewEncoder(w).Encode(map[string]interface{}{"message": tt.message})
				}),
			)
			defer server.Close()

			client := NewClient(server.URL)
			_, err := client.Remove(testContext(), "token", "line-1")

			assert.Error(t, err)
			gatewayErr := &GatewayError{}
			assert.True(t, errors.As(err, &gatewayErr))
			assert.EqualValues(t, tt.statusCode, gatewayErr.StatusCode)
			assert.EqualValues(t, tt.message, gatewayErr.Message)
		})
	}
}

func TestClearAcceptsNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.EqualValues(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Clear(testContext(), "token")

	assert.NoError(t, err)
}

func TestClearAcceptsEmptyOkBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.EqualValues(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.Clear(testContext(), "token")

	assert.NoError(t, err, "an empty 200 body on delete is still a successful delete")
}

func TestRemoveToleratesEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.EqualValues(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	cart, err := client.Remove(testContext(), "token", "line-1")

	assert.NoError(t, err)
	assert.Empty(t, cart.CartItems)
}

func TestGetRejectsMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(inHttp.HeaderContentType, inHttp.HeaderValueJson)
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Get(testContext(), "token")

	assert.Error(t, err)
}
