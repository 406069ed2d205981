package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderState mirrors the host commerce system's sale order states
type OrderState string

const (
	OrderStateDraft    OrderState = "draft"
	OrderStateSale     OrderState = "sale"
	OrderStateCanceled OrderState = "cancel"
)

// InvoicePaymentState is the payment progress of a posted invoice
type InvoicePaymentState string

const (
	InvoiceNotPaid   InvoicePaymentState = "not_paid"
	InvoiceInPayment InvoicePaymentState = "in_payment"
	InvoicePaid      InvoicePaymentState = "paid"
)

// IsSettled reports whether the invoice can no longer receive a payment
func (s InvoicePaymentState) IsSettled() bool {
	return s == InvoicePaid || s == InvoiceInPayment
}

// Company is a tenant
type Company struct {
	Name                string    `json:"name"`
	MercantilMerchantID string    `json:"mercantil_merchant_id"`
	CurrencyCode        string    `json:"currency_code"`
	ID                  uuid.UUID `json:"id"`
}

// OrderLine is one product line copied from the storefront
type OrderLine struct {
	SKU       string          `json:"sku"`
	Title     string          `json:"title"`
	PriceUnit decimal.Decimal `json:"price_unit"`
	Quantity  int             `json:"quantity"`
}

// SaleOrder is the minimal order view the payment pipeline needs
type SaleOrder struct {
	DateOrder      time.Time       `json:"date_order"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Lines          []OrderLine     `json:"lines"`
	AmountTotal    decimal.Decimal `json:"amount_total"`
	Name           string          `json:"name"`
	Origin         string          `json:"origin"`
	ClientOrderRef string          `json:"client_order_ref"`
	CurrencyCode   string          `json:"currency_code"`
	Note           string          `json:"note"`
	State          OrderState      `json:"state"`
	ID             uuid.UUID       `json:"id"`
	CompanyID      uuid.UUID       `json:"company_id"`
	PartnerID      uuid.UUID       `json:"partner_id"`
}

// Invoice is a posted customer invoice
type Invoice struct {
	PostedAt     *time.Time          `json:"posted_at"`
	CreatedAt    time.Time           `json:"created_at"`
	AmountTotal  decimal.Decimal     `json:"amount_total"`
	Ref          string              `json:"ref"`
	CurrencyCode string              `json:"currency_code"`
	PaymentState InvoicePaymentState `json:"payment_state"`
	ID           uuid.UUID           `json:"id"`
	CompanyID    uuid.UUID           `json:"company_id"`
	SaleOrderID  uuid.UUID           `json:"sale_order_id"`
	PartnerID    uuid.UUID           `json:"partner_id"`
}

// Payment is an inbound customer payment posted against an invoice
type Payment struct {
	CreatedAt              time.Time       `json:"created_at"`
	MercantilTransactionID *uuid.UUID      `json:"mercantil_transaction_id"`
	InvoiceID              *uuid.UUID      `json:"invoice_id"`
	Amount                 decimal.Decimal `json:"amount"`
	CurrencyCode           string          `json:"currency_code"`
	JournalCode            string          `json:"journal_code"`
	Memo                   string          `json:"memo"`
	ID                     uuid.UUID       `json:"id"`
	CompanyID              uuid.UUID       `json:"company_id"`
	PartnerID              uuid.UUID       `json:"partner_id"`
}
