package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	tc := DefaultTimeoutConfig()

	assert.Equal(t, 30*time.Second, tc.HTTPHandler)
	assert.Equal(t, 2*time.Minute, tc.CronJob)
	assert.Less(t, tc.Webhook, tc.HTTPHandler, "webhook work must finish before the handler times out")
	assert.LessOrEqual(t, tc.ExternalAPI, tc.HTTPHandler)
}

func TestContextCreators(t *testing.T) {
	tc := DefaultTimeoutConfig()
	creators := map[string]func(context.Context) (context.Context, context.CancelFunc){
		"handler":  tc.HandlerContext,
		"cron":     tc.CronContext,
		"webhook":  tc.WebhookContext,
		"external": tc.ExternalAPIContext,
	}

	for name, create := range creators {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := create(context.Background())
			defer cancel()

			_, ok := ctx.Deadline()
			assert.True(t, ok)
		})
	}
}

func TestContextCancellationPropagation(t *testing.T) {
	tc := DefaultTimeoutConfig()
	parent, cancelParent := context.WithCancel(context.Background())

	ctx, cancel := tc.WebhookContext(parent)
	defer cancel()

	cancelParent()
	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("child context was not cancelled")
	}
}
