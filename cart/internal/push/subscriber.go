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

// Frame is one JSON message off the push channel. The cart service only acts
// on cart_update frames; every other type is ignored here. UserId is carried
// on cart_clear frames for the checkout side.
type Frame struct {
	Type   string `json:"type"`
	UserId string `json:"userId,omitempty"`
}

type RefreshFunc func(context.Context) error

// Subscriber listens on the push channel and triggers a full cart re-fetch
// whenever another session mutates the cart.
type Subscriber struct {
	cache   *redis.Client
	channel string
	refresh RefreshFunc
}

func NewSubscriber(cache *redis.Client, channel string, refresh RefreshFunc) *Subscriber {
	return &Subscriber{cache: cache, channel: channel, refresh: refresh}
}

func (s *Subscriber) Listen(c context.Context) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PushSubscriber Listen").
		Str(log.KeyAppName, constants.APP_CART_SUBSCRIBER).
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
		Str(log.KeyTag, "PushSubscriber handle").
		Str(log.KeyRequestID, requestId).
		Str(log.KeyPushFrame, payload).
		Logger()

	frame := Frame{}
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		err = fmt.Errorf("failed decoding push frame with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	if frame.Type != constants.PushTypeCartUpdate {
		logger.Debug().Msgf("ignoring push frame type=%s", frame.Type)
		return
	}

	logger.Info().Msg("received cart_update frame, refreshing cart")
	c = log.AttachRequestIDToContext(c, requestId)
	c = logger.WithContext(c)
	if err := s.refresh(c); err != nil {
		err = fmt.Errorf("failed refreshing cart with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return
	}
	logger.Info().Msg("refreshed cart")
}
