package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hoangtv/storefront/cart/pkg/request"
	"github.com/hoangtv/storefront/cart/pkg/response"
	inErrors "github.com/hoangtv/storefront/internal/errors"
	inHttp "github.com/hoangtv/storefront/internal/http"
	"github.com/hoangtv/storefront/internal/log"
	inOtel "github.com/hoangtv/storefront/internal/otel"
)

// GatewayError is a failed round trip to the remote cart API. It carries no
// partial cart; the caller's local state is untouched.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("cart api returned status code=%d with message=%s", e.StatusCode, e.Message)
}

// Client wraps the remote cart API. Every method is a single request/response
// round trip; it never mutates local state.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, client: otelhttp.DefaultClient}
}

func (g *Client) Get(c context.Context, token string) (response.Cart, error) {
	return g.roundTrip(c, http.MethodGet, g.baseURL+"/user", token, nil)
}

func (g *Client) Add(
	c context.Context,
	token string,
	param request.AddItem,
) (response.Cart, error) {
	return g.roundTrip(c, http.MethodPost, g.baseURL, token, param)
}

func (g *Client) Update(
	c context.Context,
	token string,
	lineId string,
	param request.UpdateItem,
) (response.Cart, error) {
	return g.roundTrip(c, http.MethodPatch, g.baseURL+"/"+lineId, token, param)
}

func (g *Client) Remove(c context.Context, token string, lineId string) (response.Cart, error) {
	return g.roundTrip(c, http.MethodDelete, g.baseURL+"/"+lineId, token, nil)
}

func (g *Client) Clear(c context.Context, token string) error {
	_, err := g.roundTrip(c, http.MethodDelete, g.baseURL, token, nil)
	return err
}

func (g *Client) roundTrip(
	c context.Context,
	method string,
	url string,
	token string,
	body interface{},
) (response.Cart, error) {
	c, span := inOtel.Tracer.Start(c, "CartGateway "+method+" "+url)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartGateway roundTrip").
		Str(log.KeyRequestMethod, method).
		Str(log.KeyRequestURL, url).
		Logger()

	if token == "" {
		err := fmt.Errorf("failed calling cart api with error=%w", inErrors.ErrEmptyAuth)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	var reader io.Reader
	if body != nil {
		logger = logger.With().Str(log.KeyProcess, "marshaling request body").Logger()
		payload, err := json.Marshal(body)
		if err != nil {
			err = fmt.Errorf("failed marshaling request body with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Cart{}, err
		}
		reader = bytes.NewReader(payload)
	}

	logger = logger.With().Str(log.KeyProcess, "creating request").Logger()
	req, err := http.NewRequestWithContext(c, method, url, reader)
	if err != nil {
		err = fmt.Errorf("failed creating request with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	req.Header.Add("Authorization", "Bearer "+token)
	req.Header.Add(inHttp.HeaderContentType, inHttp.HeaderValueJson)
	if requestId := log.RequestIDFromContext(c); requestId != "" {
		req.Header.Add(inHttp.KEY_HEADER_REQUEST_ID, requestId)
	}

	logger = logger.With().Str(log.KeyProcess, "sending request").Logger()
	logger.Info().Msg("sending request to cart api")
	resp, err := g.client.Do(req)
	if err != nil {
		err = fmt.Errorf("failed calling cart api with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	defer resp.Body.Close()
	logger.Info().Msgf("cart api responded with status code=%d", resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody := map[string]interface{}{}
		json.NewDecoder(resp.Body).Decode(&respBody)
		message, _ := respBody["message"].(string)
		err = fmt.Errorf(
			"failed calling cart api with error=%w",
			&GatewayError{StatusCode: resp.StatusCode, Message: message},
		)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "decoding response body").Logger()
	cart := response.Cart{}
	err = json.NewDecoder(resp.Body).Decode(&cart)
	if err != nil {
		// Deletes may answer with any empty-bodied 2xx, not just 204.
		if method == http.MethodDelete && errors.Is(err, io.EOF) {
			return response.Cart{}, nil
		}
		err = fmt.Errorf("failed decoding cart api response with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("decoded cart api response")

	return cart, nil
}
