package ports

import (
	"context"

	"github.com/google/uuid"
)

// ParameterStore reads and writes key/value business parameters.
// A nil companyID addresses the global row.
type ParameterStore interface {
	// GetParam returns the raw value and whether the row exists
	GetParam(ctx context.Context, companyID *uuid.UUID, key string) (string, bool, error)
	SetParam(ctx context.Context, companyID *uuid.UUID, key, value string) error
}
