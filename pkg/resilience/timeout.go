package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy, outermost first:
//
//	HTTP Handler (30s)
//	  ↓
//	Webhook processing (20s)
//	  ↓
//	External call (BCV page 20s, SMTP send 15s)
//	  ↓
//	Database statement (5s, pool statement_timeout)
type TimeoutConfig struct {
	HTTPHandler time.Duration // Overall request timeout
	CronJob     time.Duration // Rate ingestion run
	Webhook     time.Duration // Confirmation or order webhook processing
	ExternalAPI time.Duration // Outbound calls
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler: 30 * time.Second,
		CronJob:     2 * time.Minute,
		Webhook:     20 * time.Second,
		ExternalAPI: 20 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// CronContext creates a context with timeout for cron jobs
func (tc *TimeoutConfig) CronContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronJob)
}

// WebhookContext creates a context for processing one inbound webhook
func (tc *TimeoutConfig) WebhookContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.Webhook)
}

// ExternalAPIContext creates a context for an outbound call
func (tc *TimeoutConfig) ExternalAPIContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ExternalAPI)
}
