// Package fixtures provides test data builders.
package fixtures

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
)

// TransactionRecordBuilder provides fluent API for building test transaction records.
type TransactionRecordBuilder struct {
	record *domain.TransactionRecord
}

// NewTransactionRecord creates a builder with an unconfirmed 100.00 purchase.
func NewTransactionRecord() *TransactionRecordBuilder {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &TransactionRecordBuilder{
		record: &domain.TransactionRecord{
			ID:                  uuid.New(),
			CompanyID:           uuid.New(),
			SaleOrderID:         uuid.New(),
			Attempt:             1,
			MerchantID:          "200284",
			InvoiceNumber:       "5551234",
			ContractNumber:      "1001",
			Amount:              decimal.NewFromInt(100),
			CustomerName:        "Ana Pérez",
			ReturnURL:           "https://shop.example.com/return",
			TrxType:             domain.TrxTypePurchase,
			CurrencyCode:        domain.GatewayCurrency,
			PaymentConcepts:     domain.DefaultPaymentConcepts(),
			Status:              domain.TransactionStatusAwaitingPayment,
			InvoiceCreationDate: TimePtr(now),
			ContractDate:        TimePtr(now),
			CreatedAt:           now,
			UpdatedAt:           now,
		},
	}
}

func (b *TransactionRecordBuilder) WithCompanyID(id uuid.UUID) *TransactionRecordBuilder {
	b.record.CompanyID = id
	return b
}

func (b *TransactionRecordBuilder) WithInvoiceNumber(n string) *TransactionRecordBuilder {
	b.record.InvoiceNumber = n
	return b
}

func (b *TransactionRecordBuilder) WithAmount(amount string) *TransactionRecordBuilder {
	b.record.Amount = decimal.RequireFromString(amount)
	return b
}

func (b *TransactionRecordBuilder) WithFixedRate(rate string) *TransactionRecordBuilder {
	b.record.FixedExchangeRate = decimal.RequireFromString(rate)
	return b
}

func (b *TransactionRecordBuilder) WithTrxType(t domain.TrxType) *TransactionRecordBuilder {
	b.record.TrxType = t
	return b
}

// WithStoredNotification simulates a previously applied notification carrying guid
func (b *TransactionRecordBuilder) WithStoredNotification(guid string) *TransactionRecordBuilder {
	raw, _ := json.Marshal(map[string]interface{}{
		"infoMsg":               map[string]string{"guId": guid},
		"webhookNotificationIn": map[string]string{"numeroFactura": b.record.InvoiceNumber},
	})
	b.record.WebhookResponse = raw
	b.record.Status = domain.TransactionStatusConfirmed
	return b
}

func (b *TransactionRecordBuilder) Build() *domain.TransactionRecord {
	return b.record
}
