package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// inversePrecision is the number of decimal places kept for inverse rates
const inversePrecision = 12

// ExchangeRate is the settlement-currency rate for one (date, currency, tenant)
type ExchangeRate struct {
	RateDate     time.Time       `json:"rate_date"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Rate         decimal.Decimal `json:"rate"`
	InverseRate  decimal.Decimal `json:"inverse_rate"`
	CurrencyCode string          `json:"currency_code"`
	ID           uuid.UUID       `json:"id"`
	CompanyID    uuid.UUID       `json:"company_id"`
}

// NewExchangeRate builds a rate row for the given calendar day with its inverse derived
func NewExchangeRate(companyID uuid.UUID, currency string, day time.Time, rate decimal.Decimal) *ExchangeRate {
	e := &ExchangeRate{
		CompanyID:    companyID,
		CurrencyCode: currency,
		RateDate:     DateOnly(day),
	}
	e.SetRate(rate)
	return e
}

// InverseOf returns 1/rate, or zero when rate is zero
func InverseOf(rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).DivRound(rate, inversePrecision)
}

// SetRate updates the rate and recomputes the inverse
func (e *ExchangeRate) SetRate(rate decimal.Decimal) {
	e.Rate = rate
	e.InverseRate = InverseOf(rate)
}

// SetInverseRate updates the inverse and recomputes the rate
func (e *ExchangeRate) SetInverseRate(inverse decimal.Decimal) {
	e.InverseRate = inverse
	e.Rate = InverseOf(inverse)
}

// DateOnly truncates t to midnight of its own calendar day, keeping the location's date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatGatewayDate renders a date as YYYY-MM-DD, or "" when absent
func FormatGatewayDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
