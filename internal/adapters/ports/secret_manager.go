package ports

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned (wrapped) when a path holds no secret
var ErrSecretNotFound = errors.New("secret not found")

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value     string
	Version   string
	Metadata  map[string]string
	CreatedAt string
}

// SecretManagerAdapter is the port for secret backends holding gateway keys
// and webhook secrets. Paths look like "{prefix}/{company_id}/{param_key}".
//
// Implementations cache reads and must wrap ErrSecretNotFound for missing
// paths so callers can fall through to the next resolution step.
type SecretManagerAdapter interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret creates or updates a secret and returns the new version
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (version string, err error)

	// DeleteSecret removes a secret. Irreversible on backends without soft delete.
	DeleteSecret(ctx context.Context, path string) error
}
