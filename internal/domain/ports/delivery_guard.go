package ports

import "context"

// DeliveryGuard remembers webhook delivery ids so repeated deliveries can be skipped
type DeliveryGuard interface {
	// FirstDelivery records the id and returns true if it had not been seen before
	FirstDelivery(ctx context.Context, deliveryID string) (bool, error)

	// Forget drops a recorded id so the sender's retry is processed again
	Forget(ctx context.Context, deliveryID string) error
}
