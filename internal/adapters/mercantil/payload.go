package mercantil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
)

// InvoiceRef is the invoiceNumber block of the transaction payload
type InvoiceRef struct {
	Number               string `json:"number"`
	InvoiceCreationDate  string `json:"invoiceCreationDate"`
	InvoiceCancelledDate string `json:"invoiceCancelledDate"`
}

// ContractRef is the contract block of the transaction payload
type ContractRef struct {
	ContractNumber string `json:"contractNumber"`
	ContractDate   string `json:"contractDate"`
}

// TransactionPayload is the plaintext the gateway decrypts from transactiondata.
// Field order is the wire order.
type TransactionPayload struct {
	Amount          json.Number `json:"amount"`
	CustomerName    string      `json:"customerName"`
	ReturnURL       string      `json:"returnUrl"`
	MerchantID      string      `json:"merchantId"`
	InvoiceNumber   InvoiceRef  `json:"invoiceNumber"`
	Contract        ContractRef `json:"contract"`
	TrxType         string      `json:"trxType"`
	Currency        string      `json:"currency"`
	PaymentConcepts []string    `json:"paymentConcepts"`
}

// NewTransactionPayload maps a record and its resolved settlement amount to the wire payload
func NewTransactionPayload(rec *domain.TransactionRecord, settlement decimal.Decimal) TransactionPayload {
	currency := rec.CurrencyCode
	if currency == "" {
		currency = domain.GatewayCurrency
	}
	trxType := rec.TrxType
	if trxType == "" {
		trxType = domain.TrxTypePurchase
	}

	return TransactionPayload{
		Amount:       json.Number(settlement.StringFixed(2)),
		CustomerName: rec.CustomerName,
		ReturnURL:    rec.ReturnURL,
		MerchantID:   rec.MerchantID,
		InvoiceNumber: InvoiceRef{
			Number:               rec.InvoiceNumber,
			InvoiceCreationDate:  domain.FormatGatewayDate(rec.InvoiceCreationDate),
			InvoiceCancelledDate: domain.FormatGatewayDate(rec.InvoiceCancelledDate),
		},
		Contract: ContractRef{
			ContractNumber: rec.ContractNumber,
			ContractDate:   domain.FormatGatewayDate(rec.ContractDate),
		},
		TrxType:         string(trxType),
		Currency:        currency,
		PaymentConcepts: rec.PaymentConcepts.OrDefault().Strings(),
	}
}

// Marshal renders compact JSON with non-ASCII and HTML characters written literally
func (p TransactionPayload) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode transaction payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
