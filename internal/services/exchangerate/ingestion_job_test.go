package exchangerate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/testutil/mocks"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchUSDRate(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func caracas(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Caracas")
	require.NoError(t, err)
	return loc
}

func rateFor(tenantID uuid.UUID, value string, day time.Time) interface{} {
	want := decimal.RequireFromString(value)
	return mock.MatchedBy(func(r *domain.ExchangeRate) bool {
		return r.CompanyID == tenantID &&
			r.CurrencyCode == domain.SettlementCurrency &&
			r.Rate.Equal(want) &&
			r.RateDate.Equal(day) &&
			!r.InverseRate.IsZero()
	})
}

func TestIngestionJob_Run_Success(t *testing.T) {
	loc := caracas(t)
	tenants := []uuid.UUID{uuid.New(), uuid.New()}
	fetcher := new(mockFetcher)
	rates := new(mocks.MockExchangeRateRepository)
	tm := &mocks.MockTransactionManager{}

	fetcher.On("FetchUSDRate", mock.Anything).Return(decimal.RequireFromString("36.50"), nil)
	day := timeutil.TodayIn(loc)
	for _, id := range tenants {
		rates.On("Upsert", mock.Anything, mock.Anything, rateFor(id, "36.50", day)).Return(nil).Once()
		rates.On("UpsertCurrencyRate", mock.Anything, mock.Anything, rateFor(id, "36.50", day)).Return(nil).Once()
	}

	job := NewIngestionJob(tm, rates, fetcher, tenants, loc, zaptest.NewLogger(t))
	report := job.Run(context.Background())

	assert.Equal(t, StatusSuccess, report.Status)
	assert.Equal(t, "36.5", report.Rate)
	assert.Equal(t, day.Format("2006-01-02"), report.RateDate)
	require.Len(t, report.Tenants, 2)
	assert.True(t, report.Tenants[0].Stored)
	assert.Equal(t, 2, tm.Commits)
	rates.AssertExpectations(t)
}

func TestIngestionJob_Run_FetchFailureWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		rate decimal.Decimal
		err  error
	}{
		{name: "upstream_error", rate: decimal.Zero, err: errors.New("503 Service Unavailable")},
		{name: "zero_rate", rate: decimal.Zero},
		{name: "negative_rate", rate: decimal.NewFromInt(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := new(mockFetcher)
			rates := new(mocks.MockExchangeRateRepository)
			tm := &mocks.MockTransactionManager{}
			fetcher.On("FetchUSDRate", mock.Anything).Return(tt.rate, tt.err)

			job := NewIngestionJob(tm, rates, fetcher, []uuid.UUID{uuid.New()}, time.UTC, zaptest.NewLogger(t))
			report := job.Run(context.Background())

			assert.Equal(t, StatusFetchFailed, report.Status)
			assert.NotEmpty(t, report.Error)
			assert.Empty(t, report.Tenants)
			assert.Zero(t, tm.Commits+tm.Rollbacks)
			rates.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestIngestionJob_Run_PartialFailureRollsBackThatTenant(t *testing.T) {
	good, bad := uuid.New(), uuid.New()
	fetcher := new(mockFetcher)
	rates := new(mocks.MockExchangeRateRepository)
	tm := &mocks.MockTransactionManager{}
	day := timeutil.TodayIn(time.UTC)

	fetcher.On("FetchUSDRate", mock.Anything).Return(decimal.NewFromInt(40), nil)
	rates.On("Upsert", mock.Anything, mock.Anything, rateFor(good, "40", day)).Return(nil)
	rates.On("UpsertCurrencyRate", mock.Anything, mock.Anything, rateFor(good, "40", day)).Return(nil)
	rates.On("Upsert", mock.Anything, mock.Anything, rateFor(bad, "40", day)).Return(nil)
	rates.On("UpsertCurrencyRate", mock.Anything, mock.Anything, rateFor(bad, "40", day)).Return(errors.New("currency missing"))

	job := NewIngestionJob(tm, rates, fetcher, []uuid.UUID{good, bad}, time.UTC, zaptest.NewLogger(t))
	report := job.Run(context.Background())

	assert.Equal(t, StatusPartial, report.Status)
	assert.Equal(t, 1, tm.Commits)
	assert.Equal(t, 1, tm.Rollbacks)
	assert.False(t, report.Tenants[1].Stored)
	assert.Contains(t, report.Tenants[1].Error, "currency missing")
}

func TestIngestionJob_Run_AllTenantsFail(t *testing.T) {
	fetcher := new(mockFetcher)
	rates := new(mocks.MockExchangeRateRepository)
	tm := &mocks.MockTransactionManager{}

	fetcher.On("FetchUSDRate", mock.Anything).Return(decimal.NewFromInt(40), nil)
	rates.On("Upsert", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	job := NewIngestionJob(tm, rates, fetcher, []uuid.UUID{uuid.New()}, time.UTC, zaptest.NewLogger(t))
	report := job.Run(context.Background())

	assert.Equal(t, StatusFailed, report.Status)
	rates.AssertNotCalled(t, "UpsertCurrencyRate", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestionJob_PushRate(t *testing.T) {
	tenantID := uuid.New()
	day := time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)
	stored := domain.NewExchangeRate(tenantID, domain.SettlementCurrency, day, decimal.RequireFromString("36.5"))

	t.Run("stored_rate_is_pushed", func(t *testing.T) {
		rates := new(mocks.MockExchangeRateRepository)
		tm := &mocks.MockTransactionManager{}
		rates.On("GetByDate", mock.Anything, mock.Anything, tenantID, domain.SettlementCurrency, day).Return(stored, nil)
		rates.On("UpsertCurrencyRate", mock.Anything, mock.Anything, stored).Return(nil)

		job := NewIngestionJob(tm, rates, new(mockFetcher), nil, time.UTC, zaptest.NewLogger(t))
		pushed, err := job.PushRate(context.Background(), tenantID, day)

		require.NoError(t, err)
		assert.Same(t, stored, pushed)
		assert.Equal(t, 1, tm.Commits)
	})

	t.Run("missing_rate", func(t *testing.T) {
		rates := new(mocks.MockExchangeRateRepository)
		tm := &mocks.MockTransactionManager{}
		rates.On("GetByDate", mock.Anything, mock.Anything, tenantID, domain.SettlementCurrency, day).Return(nil, domain.ErrNotFound)

		job := NewIngestionJob(tm, rates, new(mockFetcher), nil, time.UTC, zaptest.NewLogger(t))
		_, err := job.PushRate(context.Background(), tenantID, day)

		assert.ErrorIs(t, err, domain.ErrNotFound)
		rates.AssertNotCalled(t, "UpsertCurrencyRate", mock.Anything, mock.Anything, mock.Anything)
	})
}
