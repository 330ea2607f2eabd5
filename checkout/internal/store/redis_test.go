package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	testRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func setupRedisStore(
	t *testing.T,
	c context.Context,
) (*redis.Client, *testRedis.RedisContainer, *RedisStore) {
	redisContainer, err := testRedis.Run(
		c,
		"redis:7.4.2-alpine3.21",
		testRedis.WithLogLevel(testRedis.LogLevelVerbose),
	)
	if err != nil {
		t.Fatalf("failed running redis container with error: %s", err)
	}

	redisConnStr, err := redisContainer.ConnectionString(c)
	if err != nil {
		t.Fatalf("failed getting redis connection string with error: %s", err)
	}

	redisOpt, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed parsing redis connection string with error: %s", err)
	}

	redisClient := redis.NewClient(redisOpt)
	if err = redisClient.Ping(c).Err(); err != nil {
		t.Fatalf("failed ping redis client with error: %s", err)
	}

	return redisClient, redisContainer, NewRedisStore(redisClient)
}

func teardownRedisStore(
	t *testing.T,
	redisClient *redis.Client,
	redisContainer *testRedis.RedisContainer,
) {
	redisClient.Close()
	if err := redisContainer.Terminate(context.Background()); err != nil {
		t.Fatalf("failed to terminate container: %s", err)
	}
}

func TestRedisStore(t *testing.T) {
	c := context.Background()
	c = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		WithContext(c)
	redisClient, redisContainer, store := setupRedisStore(t, c)
	defer teardownRedisStore(t, redisClient, redisContainer)

	t.Run("empty state should return empty snapshot and selection", func(t *testing.T) {
		snapshot, err := store.Snapshot(c, "user-empty")
		assert.NoError(t, err)
		assert.Empty(t, snapshot.LineCoupons)
		assert.Nil(t, snapshot.ShippingDiscount)

		selected, err := store.Selected(c, "user-empty")
		assert.NoError(t, err)
		assert.Empty(t, selected)
	})

	t.Run("coupons should round trip through the cache", func(t *testing.T) {
		assert.NoError(
			t,
			store.SetLineCoupon(c, "user-1", LineCoupon{
				LineId:   "line-1",
				NewPrice: decimal.NewFromInt(90000),
			}),
		)
		assert.NoError(
			t,
			store.SetLineCoupon(c, "user-1", LineCoupon{
				LineId:   "line-2",
				NewPrice: decimal.RequireFromString("49999.99"),
			}),
		)

		snapshot, err := store.Snapshot(c, "user-1")
		assert.NoError(t, err)
		assert.Len(t, snapshot.LineCoupons, 2)
		assert.True(t, decimal.NewFromInt(90000).Equal(snapshot.LineCoupons["line-1"]))
		assert.True(
			t,
			decimal.RequireFromString("49999.99").Equal(snapshot.LineCoupons["line-2"]),
			"decimal precision must survive the cache round trip",
		)

		assert.NoError(t, store.ClearLineCoupon(c, "user-1", "line-1"))
		snapshot, err = store.Snapshot(c, "user-1")
		assert.NoError(t, err)
		assert.Len(t, snapshot.LineCoupons, 1)
		assert.NotContains(t, snapshot.LineCoupons, "line-1")
	})

	t.Run("shipping discount should round trip and last applied wins", func(t *testing.T) {
		assert.NoError(
			t,
			store.SetShippingDiscount(c, "user-2", ShippingDiscount{
				Code:   "SHIP5",
				Amount: decimal.NewFromInt(5000),
			}),
		)
		assert.NoError(
			t,
			store.SetShippingDiscount(c, "user-2", ShippingDiscount{
				Code:   "SHIP10",
				Amount: decimal.NewFromInt(10000),
			}),
		)

		snapshot, err := store.Snapshot(c, "user-2")
		assert.NoError(t, err)
		assert.NotNil(t, snapshot.ShippingDiscount)
		assert.EqualValues(t, "SHIP10", snapshot.ShippingDiscount.Code)
		assert.True(t, decimal.NewFromInt(10000).Equal(snapshot.ShippingDiscount.Amount))

		assert.NoError(t, store.ClearShippingDiscount(c, "user-2"))
		snapshot, err = store.Snapshot(c, "user-2")
		assert.NoError(t, err)
		assert.Nil(t, snapshot.ShippingDiscount)
	})

	t.Run("selection should round trip and clear", func(t *testing.T) {
		assert.NoError(t, store.Select(c, "user-3", []string{"line-1", "line-2"}))

		selected, err := store.Selected(c, "user-3")
		assert.NoError(t, err)
		assert.EqualValues(t, []string{"line-1", "line-2"}, selected)

		assert.NoError(t, store.Select(c, "user-3", []string{"line-3"}))
		selected, err = store.Selected(c, "user-3")
		assert.NoError(t, err)
		assert.EqualValues(t, []string{"line-3"}, selected)

		assert.NoError(t, store.ClearSelection(c, "user-3"))
		selected, err = store.Selected(c, "user-3")
		assert.NoError(t, err)
		assert.Empty(t, selected)
	})

	t.Run("clear should drop discounts but keep selection", func(t *testing.T) {
		assert.NoError(
			t,
			store.SetLineCoupon(c, "user-4", LineCoupon{
				LineId:   "line-1",
				NewPrice: decimal.NewFromInt(90000),
			}),
		)
		assert.NoError(
			t,
			store.SetShippingDiscount(c, "user-4", ShippingDiscount{
				Code:   "FREESHIP",
				Amount: decimal.NewFromInt(15000),
			}),
		)
		assert.NoError(t, store.Select(c, "user-4", []string{"line-1"}))

		assert.NoError(t, store.Clear(c, "user-4"))
		assert.NoError(t, store.Clear(c, "user-4"), "clearing twice should succeed")

		snapshot, err := store.Snapshot(c, "user-4")
		assert.NoError(t, err)
		assert.Empty(t, snapshot.LineCoupons)
		assert.Nil(t, snapshot.ShippingDiscount)

		selected, err := store.Selected(c, "user-4")
		assert.NoError(t, err)
		assert.EqualValues(t, []string{"line-1"}, selected)
	})

	t.Run("users should be isolated", func(t *testing.T) {
		assert.NoError(
			t,
			store.SetLineCoupon(c, "user-5", LineCoupon{
				LineId:   "line-1",
				NewPrice: decimal.NewFromInt(90000),
			}),
		)

		snapshot, err := store.Snapshot(c, "user-6")
		assert.NoError(t, err)
		assert.Empty(t, snapshot.LineCoupons)
	})
}
