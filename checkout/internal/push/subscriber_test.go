package push

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hoangtv/storefront/internal/log"
)

func testContext() context.Context {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339Nano}).
		WithContext(context.Background())
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name           string
		payload        string
		expectedUserId string
	}{
		{
			name:           "given cart_clear frame should tear down that user's state",
			payload:        `{"type":"cart_clear","userId":"user-1"}`,
			expectedUserId: "user-1",
		},
		{
			name:           "given cart_clear frame with extra fields should tear down",
			payload:        `{"type":"cart_clear","userId":"user-1","ts":1735689600}`,
			expectedUserId: "user-1",
		},
		{
			name:    "given cart_clear frame without userId should ignore",
			payload: `{"type":"cart_clear"}`,
		},
		{
			name:    "given cart_update frame should ignore",
			payload: `{"type":"cart_update"}`,
		},
		{
			name:    "given frame without type should ignore",
			payload: `{}`,
		},
		{
			name:    "given malformed frame should ignore",
			payload: `not json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			torndown := ""
			subscriber := NewSubscriber(nil, "cart-events", func(c context.Context, userId string) error {
				torndown = userId
				assert.NotEmpty(
					t,
					log.RequestIDFromContext(c),
					"teardown context should carry a request id",
				)
				return nil
			})

			subscriber.handle(testContext(), tt.payload)

			assert.EqualValues(t, tt.expectedUserId, torndown)
		})
	}
}

func TestHandleSurvivesTeardownError(t *testing.T) {
	subscriber := NewSubscriber(nil, "cart-events", func(c context.Context, userId string) error {
		return assert.AnError
	})

	assert.NotPanics(t, func() {
		subscriber.handle(testContext(), `{"type":"cart_clear","userId":"user-1"}`)
	})
}
