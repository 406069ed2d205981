// Package exchangerate ingests the official USD/VES rate and propagates it to every tenant.
package exchangerate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/observability"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/timeutil"
	"go.uber.org/zap"
)

// Run statuses
const (
	StatusSuccess     = "success"
	StatusFetchFailed = "fetch_failed"
	StatusPartial     = "partial"
	StatusFailed      = "failed"
)

// RateFetcher returns the current USD rate in VES
type RateFetcher interface {
	FetchUSDRate(ctx context.Context) (decimal.Decimal, error)
}

// TenantResult is the outcome of storing the rate for one tenant
type TenantResult struct {
	Error    string    `json:"error,omitempty"`
	TenantID uuid.UUID `json:"tenant_id"`
	Stored   bool      `json:"stored"`
}

// RunReport summarizes one ingestion run
type RunReport struct {
	StartedAt time.Time      `json:"started_at"`
	RateDate  string         `json:"rate_date,omitempty"`
	Rate      string         `json:"rate,omitempty"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Tenants   []TenantResult `json:"tenants"`
	Duration  time.Duration  `json:"duration_ns"`
}

// IngestionJob fetches the rate once per run and upserts it for every
// configured tenant, one transaction per tenant.
type IngestionJob struct {
	db       ports.TransactionManager
	rates    ports.ExchangeRateRepository
	fetcher  RateFetcher
	tenants  []uuid.UUID
	location *time.Location
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewIngestionJob creates the job. Rates are dated by the calendar day in loc.
func NewIngestionJob(
	db ports.TransactionManager,
	rates ports.ExchangeRateRepository,
	fetcher RateFetcher,
	tenants []uuid.UUID,
	loc *time.Location,
	logger *zap.Logger,
) *IngestionJob {
	if loc == nil {
		loc = time.UTC
	}
	return &IngestionJob{
		db:       db,
		rates:    rates,
		fetcher:  fetcher,
		tenants:  tenants,
		location: loc,
		logger:   logger,
	}
}

// Run performs one ingestion. It never returns an error: fetch and storage
// failures are logged, counted and reported. Concurrent calls are serialized.
func (j *IngestionJob) Run(ctx context.Context) *RunReport {
	j.mu.Lock()
	defer j.mu.Unlock()

	report := &RunReport{StartedAt: timeutil.Now(), Tenants: []TenantResult{}}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		observability.RecordRateIngestion(report.Status)
	}()

	rate, err := j.fetcher.FetchUSDRate(ctx)
	if err == nil && !rate.IsPositive() {
		err = domain.NewValidationError(fmt.Sprintf("rate %s is not positive", rate))
	}
	if err != nil {
		j.logger.Error("Failed to fetch exchange rate, nothing stored", zap.Error(err))
		report.Status = StatusFetchFailed
		report.Error = err.Error()
		return report
	}

	day := timeutil.TodayIn(j.location)
	report.Rate = rate.String()
	report.RateDate = day.Format("2006-01-02")

	failed := 0
	for _, tenantID := range j.tenants {
		result := TenantResult{TenantID: tenantID}
		if err := j.store(ctx, tenantID, day, rate); err != nil {
			failed++
			result.Error = err.Error()
			j.logger.Error("Failed to store exchange rate",
				zap.String("tenant_id", tenantID.String()),
				zap.String("rate_date", report.RateDate),
				zap.Error(err),
			)
		} else {
			result.Stored = true
		}
		report.Tenants = append(report.Tenants, result)
	}

	switch {
	case failed == 0:
		report.Status = StatusSuccess
		f, _ := rate.Float64()
		observability.SetExchangeRate(domain.SettlementCurrency, f)
		j.logger.Info("Exchange rate ingested",
			zap.String("rate", report.Rate),
			zap.String("rate_date", report.RateDate),
			zap.Int("tenants", len(j.tenants)),
		)
	case failed < len(j.tenants):
		report.Status = StatusPartial
	default:
		report.Status = StatusFailed
	}
	return report
}

func (j *IngestionJob) store(ctx context.Context, tenantID uuid.UUID, day time.Time, rate decimal.Decimal) error {
	record := domain.NewExchangeRate(tenantID, domain.SettlementCurrency, day, rate)
	return j.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := j.rates.Upsert(ctx, tx, record); err != nil {
			return fmt.Errorf("upsert exchange rate: %w", err)
		}
		if err := j.rates.UpsertCurrencyRate(ctx, tx, record); err != nil {
			return fmt.Errorf("upsert currency rate: %w", err)
		}
		return nil
	})
}

// PushRate copies an already stored rate into the shared currency rate table.
// Returns domain.ErrNotFound when no rate exists for that day.
func (j *IngestionJob) PushRate(ctx context.Context, tenantID uuid.UUID, day time.Time) (*domain.ExchangeRate, error) {
	var pushed *domain.ExchangeRate
	err := j.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rate, err := j.rates.GetByDate(ctx, tx, tenantID, domain.SettlementCurrency, day)
		if err != nil {
			return err
		}
		if err := j.rates.UpsertCurrencyRate(ctx, tx, rate); err != nil {
			return fmt.Errorf("upsert currency rate: %w", err)
		}
		pushed = rate
		return nil
	})
	if err != nil {
		return nil, err
	}

	j.logger.Info("Exchange rate pushed to currency rates",
		zap.String("tenant_id", tenantID.String()),
		zap.String("rate_date", day.Format("2006-01-02")),
		zap.String("rate", pushed.Rate.String()),
	)
	return pushed, nil
}
