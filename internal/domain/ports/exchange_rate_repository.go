package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
)

// ExchangeRateRepository defines persistence for ingested settlement rates
type ExchangeRateRepository interface {
	// Upsert inserts or updates the exchange_rates row for (date, currency, company)
	Upsert(ctx context.Context, tx DBTX, rate *domain.ExchangeRate) error

	// UpsertCurrencyRate mirrors the rate into the shared currency_rates table
	UpsertCurrencyRate(ctx context.Context, tx DBTX, rate *domain.ExchangeRate) error

	// GetLatest returns the most recent rate by date. Returns domain.ErrNotFound when none exists.
	GetLatest(ctx context.Context, db DBTX, companyID uuid.UUID, currency string) (*domain.ExchangeRate, error)

	// GetByDate returns the rate stored for one calendar day
	GetByDate(ctx context.Context, db DBTX, companyID uuid.UUID, currency string, day time.Time) (*domain.ExchangeRate, error)
}
