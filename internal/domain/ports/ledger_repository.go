package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
)

// LedgerRepository is the minimal accounting surface the payment flows need
type LedgerRepository interface {
	// CreateInvoice posts an invoice for a confirmed sale order
	CreateInvoice(ctx context.Context, tx DBTX, invoice *domain.Invoice) error

	// LockUnpaidInvoiceByRef selects the tenant's unpaid invoice with the given ref FOR UPDATE.
	// Returns domain.ErrNotFound when there is none.
	LockUnpaidInvoiceByRef(ctx context.Context, tx DBTX, companyID uuid.UUID, ref string) (*domain.Invoice, error)

	// RegisterPayment records a payment against an invoice
	RegisterPayment(ctx context.Context, tx DBTX, payment *domain.Payment) error

	// MarkInvoicePaid sets the invoice payment state to paid
	MarkInvoicePaid(ctx context.Context, tx DBTX, invoiceID uuid.UUID) error
}
