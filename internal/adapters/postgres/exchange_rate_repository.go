package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
)

// ExchangeRateRepository implements ports.ExchangeRateRepository
type ExchangeRateRepository struct {
	pool *pgxpool.Pool
}

// NewExchangeRateRepository creates a new repository
func NewExchangeRateRepository(pool *pgxpool.Pool) *ExchangeRateRepository {
	return &ExchangeRateRepository{pool: pool}
}

// Upsert inserts the row for (date, currency, company) or overwrites its rate
func (r *ExchangeRateRepository) Upsert(ctx context.Context, tx ports.DBTX, rate *domain.ExchangeRate) error {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	err := executor(r.pool, tx).QueryRow(ctx, `
		INSERT INTO exchange_rates (id, company_id, currency_code, rate_date, rate, inverse_rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (rate_date, currency_code, company_id) DO UPDATE
		SET rate = EXCLUDED.rate, inverse_rate = EXCLUDED.inverse_rate, updated_at = NOW()
		RETURNING id, created_at, updated_at`,
		rate.ID, rate.CompanyID, rate.CurrencyCode, rate.RateDate,
		decimalToNumeric(rate.Rate), decimalToNumeric(rate.InverseRate),
	).Scan(&rate.ID, &rate.CreatedAt, &rate.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert exchange rate: %w", err)
	}
	return nil
}

// UpsertCurrencyRate mirrors the rate into currency_rates
func (r *ExchangeRateRepository) UpsertCurrencyRate(ctx context.Context, tx ports.DBTX, rate *domain.ExchangeRate) error {
	_, err := executor(r.pool, tx).Exec(ctx, `
		INSERT INTO currency_rates (company_id, currency_code, rate_date, rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (rate_date, currency_code, company_id) DO UPDATE
		SET rate = EXCLUDED.rate, updated_at = NOW()`,
		rate.CompanyID, rate.CurrencyCode, rate.RateDate, decimalToNumeric(rate.Rate))
	if err != nil {
		return fmt.Errorf("upsert currency rate: %w", err)
	}
	return nil
}

// GetLatest returns the most recent rate by date
func (r *ExchangeRateRepository) GetLatest(ctx context.Context, db ports.DBTX, companyID uuid.UUID, currency string) (*domain.ExchangeRate, error) {
	row := executor(r.pool, db).QueryRow(ctx, `
		SELECT id, company_id, currency_code, rate_date, rate, inverse_rate, created_at, updated_at
		FROM exchange_rates
		WHERE company_id = $1 AND currency_code = $2
		ORDER BY rate_date DESC
		LIMIT 1`, companyID, currency)
	rate, err := scanExchangeRate(row)
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound, "get latest exchange rate")
	}
	return rate, nil
}

// GetByDate returns the rate stored for one calendar day
func (r *ExchangeRateRepository) GetByDate(ctx context.Context, db ports.DBTX, companyID uuid.UUID, currency string, day time.Time) (*domain.ExchangeRate, error) {
	row := executor(r.pool, db).QueryRow(ctx, `
		SELECT id, company_id, currency_code, rate_date, rate, inverse_rate, created_at, updated_at
		FROM exchange_rates
		WHERE company_id = $1 AND currency_code = $2 AND rate_date = $3`,
		companyID, currency, domain.DateOnly(day))
	rate, err := scanExchangeRate(row)
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound, "get exchange rate by date")
	}
	return rate, nil
}

func scanExchangeRate(row rowScanner) (*domain.ExchangeRate, error) {
	var (
		e             domain.ExchangeRate
		rate, inverse pgtype.Numeric
	)
	if err := row.Scan(&e.ID, &e.CompanyID, &e.CurrencyCode, &e.RateDate, &rate, &inverse, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if e.Rate, err = pgNumericToDecimal(rate); err != nil {
		return nil, fmt.Errorf("rate: %w", err)
	}
	if e.InverseRate, err = pgNumericToDecimal(inverse); err != nil {
		return nil, fmt.Errorf("inverse_rate: %w", err)
	}
	return &e, nil
}
