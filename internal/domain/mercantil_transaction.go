package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SettlementCurrency is the ledger currency bank payments settle in
const SettlementCurrency = "VES"

// GatewayCurrency is the currency code the gateway expects in the payload
const GatewayCurrency = "ves"

// TrxType is the gateway transaction type
type TrxType string

const (
	TrxTypePurchase TrxType = "compra"
	TrxTypeSale     TrxType = "venta"
)

// ParseTrxType validates a stored transaction type. Empty defaults to purchase.
func ParseTrxType(s string) (TrxType, error) {
	switch TrxType(strings.ToLower(strings.TrimSpace(s))) {
	case "", TrxTypePurchase:
		return TrxTypePurchase, nil
	case TrxTypeSale:
		return TrxTypeSale, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unknown transaction type %q", s))
	}
}

// TransactionStatus tracks whether the bank has confirmed the payment
type TransactionStatus string

const (
	TransactionStatusAwaitingPayment TransactionStatus = "awaiting_payment"
	TransactionStatusConfirmed       TransactionStatus = "confirmed"
)

// RateSource records where a settlement rate came from
type RateSource string

const (
	RateSourceFixed    RateSource = "fixed"
	RateSourceIngested RateSource = "ingested"
	RateSourceDefault  RateSource = "default"
)

// TransactionRecord is one bank payment attempt for a sale order
type TransactionRecord struct {
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
	InvoiceCreationDate  *time.Time        `json:"invoice_creation_date"`
	InvoiceCancelledDate *time.Time        `json:"invoice_cancelled_date"`
	ContractDate         *time.Time        `json:"contract_date"`
	ConfirmedAt          *time.Time        `json:"confirmed_at"`
	WebhookResponse      json.RawMessage   `json:"webhook_response,omitempty"`
	PaymentConcepts      PaymentConcepts   `json:"payment_concepts"`
	Amount               decimal.Decimal   `json:"amount"`
	AmountVES            decimal.Decimal   `json:"amount_ves"`
	FixedExchangeRate    decimal.Decimal   `json:"fixed_exchange_rate"`
	MerchantID           string            `json:"merchant_id"`
	InvoiceNumber        string            `json:"invoice_number"`
	ContractNumber       string            `json:"contract_number"`
	CurrencyCode         string            `json:"currency_code"`
	ReturnURL            string            `json:"return_url"`
	CustomerName         string            `json:"customer_name"`
	TrxType              TrxType           `json:"trx_type"`
	Status               TransactionStatus `json:"status"`
	Attempt              int               `json:"attempt"`
	ID                   uuid.UUID         `json:"id"`
	CompanyID            uuid.UUID         `json:"company_id"`
	SaleOrderID          uuid.UUID         `json:"sale_order_id"`
}

// Validate checks the invariants a record must hold before it is stored or linked
func (r *TransactionRecord) Validate() error {
	if strings.TrimSpace(r.InvoiceNumber) == "" {
		return ErrInvoiceNumberRequired
	}
	if strings.TrimSpace(r.MerchantID) == "" {
		return ErrMerchantIDRequired
	}
	if r.Attempt < 1 {
		return NewValidationError("attempt must start at 1")
	}
	if r.Amount.IsNegative() {
		return NewDomainError(ErrorCodeValidationAmountInvalid, "amount cannot be negative")
	}
	if r.FixedExchangeRate.IsNegative() {
		return NewDomainError(ErrorCodeValidationAmountInvalid, "fixed exchange rate cannot be negative")
	}
	if _, err := ParseTrxType(string(r.TrxType)); err != nil {
		return err
	}
	return nil
}

// HasFixedRate reports whether the fixed rate overrides the ingested one
func (r *TransactionRecord) HasFixedRate() bool {
	return r.FixedExchangeRate.IsPositive()
}

// IsConfirmed returns true once a bank notification has been applied
func (r *TransactionRecord) IsConfirmed() bool {
	return r.Status == TransactionStatusConfirmed
}

// ResolveSettlementAmount converts the order amount into the settlement currency.
// A positive fixed rate wins over the latest ingested rate; with neither the rate is 1.
func ResolveSettlementAmount(amount, fixedRate decimal.Decimal, latestRate *decimal.Decimal) (decimal.Decimal, RateSource) {
	if fixedRate.IsPositive() {
		return amount.Mul(fixedRate), RateSourceFixed
	}
	if latestRate != nil {
		return amount.Mul(*latestRate), RateSourceIngested
	}
	return amount, RateSourceDefault
}

// StoredGUID returns the guId of the last applied notification, if any
func (r *TransactionRecord) StoredGUID() (string, error) {
	if len(r.WebhookResponse) == 0 || string(r.WebhookResponse) == "null" {
		return "", nil
	}
	n, err := ParseNotification(r.WebhookResponse)
	if err != nil {
		return "", err
	}
	return n.InfoMsg.GUID.String(), nil
}

// IsDuplicateOf reports whether the stored notification carries the same guId.
// An empty guId never matches.
func (r *TransactionRecord) IsDuplicateOf(guid string) (bool, error) {
	if guid == "" {
		return false, nil
	}
	stored, err := r.StoredGUID()
	if err != nil {
		return false, err
	}
	return stored == guid, nil
}

// ApplyNotification stores the decrypted notification and marks the record confirmed
func (r *TransactionRecord) ApplyNotification(raw json.RawMessage, at time.Time) {
	r.WebhookResponse = raw
	r.Status = TransactionStatusConfirmed
	r.ConfirmedAt = &at
	r.UpdatedAt = at
}

// Partner is the customer an order belongs to
type Partner struct {
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	CompanyName string    `json:"company_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	ExternalRef string    `json:"external_ref"`
	Street      string    `json:"street"`
	Street2     string    `json:"street2"`
	City        string    `json:"city"`
	Province    string    `json:"province"`
	Zip         string    `json:"zip"`
	CountryCode string    `json:"country_code"`
	ID          uuid.UUID `json:"id"`
	CompanyID   uuid.UUID `json:"company_id"`
}

// DeriveCustomerName computes the display name sent to the gateway: the
// partner's own name, never prefixed with its company.
// It is recomputed whenever the order's customer changes.
func DeriveCustomerName(p *Partner) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Name)
}
