package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	adapterports "github.com/steamsolutionsvzla/odoo-megalabs/internal/adapters/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"go.uber.org/zap"
)

// ParamResolver resolves tenant-scoped business parameters.
//
// Order: secret backend tenant path, secret backend global path, database
// tenant row, database global row. Blank values count as unset.
type ParamResolver struct {
	store   ports.ParameterStore
	secrets adapterports.SecretManagerAdapter
	prefix  string
	logger  *zap.Logger
}

var _ ports.ParameterResolver = (*ParamResolver)(nil)

// NewParamResolver creates a resolver. secrets may be nil.
func NewParamResolver(store ports.ParameterStore, secrets adapterports.SecretManagerAdapter, prefix string, logger *zap.Logger) *ParamResolver {
	return &ParamResolver{
		store:   store,
		secrets: secrets,
		prefix:  strings.TrimRight(prefix, "/"),
		logger:  logger,
	}
}

// SecretPath returns the backend path for a key; a nil tenant gives the global path
func (r *ParamResolver) SecretPath(tenantID *uuid.UUID, key string) string {
	parts := make([]string, 0, 3)
	if r.prefix != "" {
		parts = append(parts, r.prefix)
	}
	if tenantID != nil {
		parts = append(parts, tenantID.String())
	}
	return strings.Join(append(parts, key), "/")
}

// Lookup returns the trimmed value and whether any source had a non-blank value
func (r *ParamResolver) Lookup(ctx context.Context, tenantID uuid.UUID, key string) (string, bool, error) {
	if r.secrets != nil {
		for _, tenant := range []*uuid.UUID{&tenantID, nil} {
			path := r.SecretPath(tenant, key)
			secret, err := r.secrets.GetSecret(ctx, path)
			if err != nil {
				if errors.Is(err, adapterports.ErrSecretNotFound) {
					continue
				}
				return "", false, fmt.Errorf("failed to read parameter %s: %w", key, err)
			}
			if v := strings.TrimSpace(secret.Value); v != "" {
				return v, true, nil
			}
		}
	}

	if r.store == nil {
		return "", false, nil
	}

	for _, tenant := range []*uuid.UUID{&tenantID, nil} {
		value, ok, err := r.store.GetParam(ctx, tenant, key)
		if err != nil {
			return "", false, fmt.Errorf("failed to read parameter %s: %w", key, err)
		}
		if v := strings.TrimSpace(value); ok && v != "" {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Require returns the value or a CONFIG_MISSING error naming the key
func (r *ParamResolver) Require(ctx context.Context, tenantID uuid.UUID, key string) (string, error) {
	value, ok, err := r.Lookup(ctx, tenantID, key)
	if err != nil {
		return "", err
	}
	if !ok {
		r.logger.Warn("Required parameter is not set",
			zap.String("key", key),
			zap.String("tenant_id", tenantID.String()),
		)
		return "", domain.NewConfigError(key)
	}
	return value, nil
}

// Set writes a parameter to the secret backend when one is configured,
// otherwise to the database. A nil tenant writes the global value.
func (r *ParamResolver) Set(ctx context.Context, tenantID *uuid.UUID, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return domain.NewValidationError("parameter key is required")
	}

	if r.secrets != nil {
		path := r.SecretPath(tenantID, key)
		if _, err := r.secrets.PutSecret(ctx, path, value, map[string]string{"param_key": key}); err != nil {
			return fmt.Errorf("failed to store parameter %s: %w", key, err)
		}
		r.logger.Info("Parameter stored in secret backend", zap.String("key", key), zap.String("path", path))
		return nil
	}

	if r.store == nil {
		return fmt.Errorf("no parameter store configured")
	}
	if err := r.store.SetParam(ctx, tenantID, key, value); err != nil {
		return fmt.Errorf("failed to store parameter %s: %w", key, err)
	}
	r.logger.Info("Parameter stored in database", zap.String("key", key))
	return nil
}
