package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hoangtv/storefront/checkout/internal/common/otel"
	"github.com/hoangtv/storefront/internal/log"
	inOtel "github.com/hoangtv/storefront/internal/otel"
)

const (
	keyAppliedCoupons      = "storefront:appliedCoupons:%s"
	keySelectedCartItemIds = "storefront:selectedCartItemIds:%s"
	keyShippingDiscount    = "storefront:shippingDiscount:%s"
)

// RedisStore persists the checkout's ephemeral state (selected line ids,
// applied coupons, shipping discount) to the cache so it survives restarts.
// The state is independent of the server cart and cleared on its own
// lifecycle.
type RedisStore struct {
	cache *redis.Client
}

func NewRedisStore(cache *redis.Client) *RedisStore {
	return &RedisStore{cache: cache}
}

func (s *RedisStore) SetLineCoupon(c context.Context, userId string, coupon LineCoupon) error {
	c, span := otel.Tracer.Start(c, "RedisStore SetLineCoupon")
	defer span.End()

	if err := validateCoupon(coupon); err != nil {
		inOtel.RecordError(err, span)
		return err
	}

	cacheKey := fmt.Sprintf(keyAppliedCoupons, userId)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStore SetLineCoupon").
		Str(log.KeyCacheKey, cacheKey).
		Str(log.KeyCartLineID, coupon.LineId).
		Logger()

	logger.Info().Msg("inserting coupon to cache")
	err := s.cache.HSet(c, cacheKey, coupon.LineId, coupon.NewPrice.String()).Err()
	if err != nil {
		err = fmt.Errorf("failed inserting coupon to cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("inserted coupon to cache")

	return nil
}

func (s *RedisStore) ClearLineCoupon(c context.Context, userId string, lineId string) error {
	c, span := otel.Tracer.Start(c, "RedisStore ClearLineCoupon")
	defer span.End()

	cacheKey := fmt.Sprintf(keyAppliedCoupons, userId)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStore ClearLineCoupon").
		Str(log.KeyCacheKey, cacheKey).
		Str(log.KeyCartLineID, lineId).
		Logger()

	logger.Info().Msg("deleting coupon from cache")
	err := s.cache.HDel(c, cacheKey, lineId).Err()
	if err != nil {
		err = fmt.Errorf("failed deleting coupon from cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("deleted coupon from cache")

	return nil
}

func (s *RedisStore) SetShippingDiscount(
	c context.Context,
	userId string,
	discount ShippingDiscount,
) error {
	c, span := otel.Tracer.Start(c, "RedisStore SetShippingDiscount")
	defer span.End()

	if err := validateShippingDiscount(discount); err != nil {
		inOtel.RecordError(err, span)
		return err
	}

	cacheKey := fmt.Sprintf(keyShippingDiscount, userId)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStore SetShippingDiscount").
		Str(log.KeyCacheKey, cacheKey).
		Str(log.KeyShippingCode, discount.Code).
		Logger()

	logger.Info().Msg("marshaling shipping discount")
	payload, err := json.Marshal(discount)
	if err != nil {
		err = fmt.Errorf("failed marshaling shipping discount with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger.Info().Msg("inserting shipping discount to cache")
	err = s.cache.Set(c, cacheKey, payload, 0).Err()
	if err != nil {
		err = fmt.Errorf("failed inserting shipping discount to cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("inserted shipping discount to cache")

	return nil
}

func (s *RedisStore) ClearShippingDiscount(c context.Context, userId string) error {
	c, span := otel.Tracer.Start(c, "RedisStore ClearShippingDiscount")
	defer span.End()

	cacheKey := fmt.Sprintf(keyShippingDiscount, userId)
	err := s.cache.Del(c, cacheKey).Err()
	if err != nil {
		err = fmt.Errorf("failed deleting shipping discount from cache with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}

func (s *RedisStore) Snapshot(c context.Context, userId string) (Snapshot, error) {
	c, span := otel.Tracer.Start(c, "RedisStore Snapshot")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStore Snapshot").
		Str(log.KeyUserID, userId).
		Logger()

	snapshot := Snapshot{LineCoupons: map[string]decimal.Decimal{}}

	logger.Info().Msg("finding coupons in cache")
	coupons, err := s.cache.HGetAll(c, fmt.Sprintf(keyAppliedCoupons, userId)).Result()
	if err != nil {
		err = fmt.Errorf("failed finding coupons in cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Snapshot{}, err
	}
	for lineId, raw := range coupons {
		newPrice, err := decimal.NewFromString(raw)
		if err != nil {
			err = fmt.Errorf("failed parsing coupon price=%s with error=%w", raw, err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return Snapshot{}, err
		}
		snapshot.LineCoupons[lineId] = newPrice
	}
	logger.Info().Msgf("found %d coupons in cache", len(snapshot.LineCoupons))

	logger.Info().Msg("finding shipping discount in cache")
	raw, err := s.cache.Get(c, fmt.Sprintf(keyShippingDiscount, userId)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		err = fmt.Errorf("failed finding shipping discount in cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return Snapshot{}, err
	}
	if err == nil {
		discount := ShippingDiscount{}
		if err := json.Unmarshal([]byte(raw), &discount); err != nil {
			err = fmt.Errorf("failed unmarshaling shipping discount with error=%w", err)
			inOtel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return Snapshot{}, err
		}
		snapshot.ShippingDiscount = &discount
	}
	logger.Info().Msg("built discount snapshot")

	return snapshot, nil
}

func (s *RedisStore) Clear(c context.Context, userId string) error {
	c, span := otel.Tracer.Start(c, "RedisStore Clear")
	defer span.End()

	err := s.cache.Del(
		c,
		fmt.Sprintf(keyAppliedCoupons, userId),
		fmt.Sprintf(keyShippingDiscount, userId),
	).Err()
	if err != nil {
		err = fmt.Errorf("failed clearing discount state with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}

func (s *RedisStore) Select(c context.Context, userId string, lineIds []string) error {
	c, span := otel.Tracer.Start(c, "RedisStore Select")
	defer span.End()

	cacheKey := fmt.Sprintf(keySelectedCartItemIds, userId)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "RedisStore Select").
		Str(log.KeyCacheKey, cacheKey).
		Strs(log.KeySelection, lineIds).
		Logger()

	payload, err := json.Marshal(lineIds)
	if err != nil {
		err = fmt.Errorf("failed marshaling selection with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger.Info().Msg("inserting selection to cache")
	err = s.cache.Set(c, cacheKey, payload, 0).Err()
	if err != nil {
		err = fmt.Errorf("failed inserting selection to cache with error=%w", err)
		inOtel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Info().Msg("inserted selection to cache")

	return nil
}

func (s *RedisStore) Selected(c context.Context, userId string) ([]string, error) {
	c, span := otel.Tracer.Start(c, "RedisStore Selected")
	defer span.End()

	raw, err := s.cache.Get(c, fmt.Sprintf(keySelectedCartItemIds, userId)).Result()
	if errors.Is(err, redis.Nil) {
		return []string{}, nil
	}
	if err != nil {
		err = fmt.Errorf("failed finding selection in cache with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return nil, err
	}

	lineIds := []string{}
	if err := json.Unmarshal([]byte(raw), &lineIds); err != nil {
		err = fmt.Errorf("failed unmarshaling selection with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return nil, err
	}
	return lineIds, nil
}

func (s *RedisStore) ClearSelection(c context.Context, userId string) error {
	c, span := otel.Tracer.Start(c, "RedisStore ClearSelection")
	defer span.End()

	err := s.cache.Del(c, fmt.Sprintf(keySelectedCartItemIds, userId)).Err()
	if err != nil {
		err = fmt.Errorf("failed clearing selection with error=%w", err)
		inOtel.RecordError(err, span)
		zerolog.Ctx(c).Error().Err(err).Msg(err.Error())
		return err
	}
	return nil
}
