// Package redis remembers storefront webhook deliveries so retried deliveries are acknowledged once.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"go.uber.org/zap"
)

const keyPrefix = "webhook:shopify:delivery:"

// DeliveryGuard implements ports.DeliveryGuard with SET NX
type DeliveryGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ ports.DeliveryGuard = (*DeliveryGuard)(nil)

// NewClient parses a redis:// URL and verifies the connection
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewDeliveryGuard creates a guard; ids are remembered for ttl
func NewDeliveryGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) *DeliveryGuard {
	return &DeliveryGuard{client: client, ttl: ttl, logger: logger}
}

// FirstDelivery records the id and returns true if it had not been seen before.
// A blank id cannot be de-duplicated and always counts as first.
func (g *DeliveryGuard) FirstDelivery(ctx context.Context, deliveryID string) (bool, error) {
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return true, nil
	}

	first, err := g.client.SetNX(ctx, keyPrefix+deliveryID, time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("record webhook delivery: %w", err)
	}
	if !first {
		g.logger.Info("Repeated webhook delivery", zap.String("delivery_id", deliveryID))
	}
	return first, nil
}

// Forget removes a recorded id so a failed delivery can be processed again
func (g *DeliveryGuard) Forget(ctx context.Context, deliveryID string) error {
	deliveryID = strings.TrimSpace(deliveryID)
	if deliveryID == "" {
		return nil
	}
	if err := g.client.Del(ctx, keyPrefix+deliveryID).Err(); err != nil {
		return fmt.Errorf("forget webhook delivery: %w", err)
	}
	return nil
}

// Ping reports whether redis is reachable
func (g *DeliveryGuard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
