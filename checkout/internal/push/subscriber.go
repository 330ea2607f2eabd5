package push

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hoangtv/storefront/internal/constants"
	"github.com/hoangtv/storefront/internal/log"
)

// Frame is one JSON message off the cart push channel. The checkout service
// only acts on cart_clear frames, which carry the owning userId.
type Frame struct {
	Type   string `json:"type"`
	UserId string `json:"userId"`
}

// TeardownFunc clears one user's checkout state: coupons, shipping discount
// and selection.
type TeardownFunc func(c context.Context, userId string) error

// Subscriber listens on the cart push channel and tears down checkout state
// whenever a user clears their cart. Coupons and selection belong to cart
// lines, so they cannot outlive the cart they decorate.
type Subscriber struct {
	cache    *redis.Client
	channel  string
	teardown TeardownFunc
}

func NewSubscriber(cache *redis.Client, channel string, teardown TeardownFunc) *Subscriber {
	return &Subscriber{cache: cache, channel: channel, teardown: teardown}
}

func (s *Subscriber) Listen(c context.Context) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutPushSubscriber Listen").
		Str(log.KeyAppName, constants.APP_CHECKOUT_SERVICE).
		Str("channel", s.channel).
		Logger()

	logger.Info().Msg("subscribing to push channel")
	pubsub := s.cache.Subscribe(c, s.channel)
	defer pubsub.Close()
	messages := pubsub.Channel()
	logger.Info().Msg("subscribed to push channel")

	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopping push subscriber")
			return
		case message, ok := <-messages:
			if !ok {
				logger.Info().Msg("push channel closed")
				return
			}
			s.handle(c, message.Payload)
		}
	}
}

func (s *Subscriber) handle(c context.Context, payload string) {
	requestId := uuid.NewString()
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CheckoutPushSubscriber handle").
		Str(log.KeyRequestID, requestId).
		Str(log.KeyPushFrame, payload).
		Logger()

	frame := Frame{}
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		err = fmt.Errorf("failed decoding push frame with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	if frame.Type != constants.PushTypeCartClear {
		logger.Debug().Msgf("ignoring push frame type=%s", frame.Type)
		return
	}
	if frame.UserId == "" {
		logger.Warn().Msg("ignoring cart_clear frame without userId")
		return
	}
	logger = logger.With().Str(log.KeyUserID, frame.UserId).Logger()

	logger.Info().Msg("received cart_clear frame, clearing checkout state")
	c = log.AttachRequestIDToContext(c, requestId)
	c = logger.WithContext(c)
	if err := s.teardown(c, frame.UserId); err != nil {
		err = fmt.Errorf("failed clearing checkout state with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("cleared checkout state")
}
