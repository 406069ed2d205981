package ports

import (
	"context"

	"github.com/google/uuid"
)

// ParameterResolver reads tenant-scoped business parameters with global fallback
type ParameterResolver interface {
	// Lookup returns the trimmed value and whether any source had a non-blank value
	Lookup(ctx context.Context, tenantID uuid.UUID, key string) (string, bool, error)

	// Require returns the value or a CONFIG_MISSING error naming the key
	Require(ctx context.Context, tenantID uuid.UUID, key string) (string, error)
}
