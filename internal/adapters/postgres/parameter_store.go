package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/converters"
)

// ParameterStore implements ports.ParameterStore on config_parameters
type ParameterStore struct {
	pool *pgxpool.Pool
}

// NewParameterStore creates a new store
func NewParameterStore(pool *pgxpool.Pool) *ParameterStore {
	return &ParameterStore{pool: pool}
}

// GetParam returns the raw value for the tenant row, or the global row when companyID is nil
func (s *ParameterStore) GetParam(ctx context.Context, companyID *uuid.UUID, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM config_parameters WHERE company_id IS NOT DISTINCT FROM $1 AND key = $2`,
		converters.NullableUUID(companyID), key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get parameter %s: %w", key, err)
	}
	return value, true, nil
}

// SetParam inserts or overwrites a parameter
func (s *ParameterStore) SetParam(ctx context.Context, companyID *uuid.UUID, key, value string) error {
	var err error
	if companyID == nil {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO config_parameters (company_id, key, value) VALUES (NULL, $1, $2)
			ON CONFLICT (key) WHERE company_id IS NULL
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, key, value)
	} else {
		_, err = s.pool.Exec(ctx, `
			INSERT INTO config_parameters (company_id, key, value) VALUES ($1, $2, $3)
			ON CONFLICT (company_id, key) WHERE company_id IS NOT NULL
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`, *companyID, key, value)
	}
	if err != nil {
		return fmt.Errorf("set parameter %s: %w", key, err)
	}
	return nil
}
