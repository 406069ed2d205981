package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/converters"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
)

// LedgerRepository implements ports.LedgerRepository on the invoices and payments tables
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new repository
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// CreateInvoice posts an invoice
func (r *LedgerRepository) CreateInvoice(ctx context.Context, tx ports.DBTX, inv *domain.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.PaymentState == "" {
		inv.PaymentState = domain.InvoiceNotPaid
	}
	err := executor(r.pool, tx).QueryRow(ctx, `
		INSERT INTO invoices (id, company_id, sale_order_id, partner_id, ref, amount_total, currency_code, payment_state, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))
		RETURNING posted_at, created_at`,
		inv.ID, inv.CompanyID, inv.SaleOrderID, inv.PartnerID, inv.Ref,
		decimalToNumeric(inv.AmountTotal), inv.CurrencyCode, string(inv.PaymentState), inv.PostedAt,
	).Scan(&inv.PostedAt, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// LockUnpaidInvoiceByRef selects the oldest posted invoice that can still take a payment
func (r *LedgerRepository) LockUnpaidInvoiceByRef(ctx context.Context, tx ports.DBTX, companyID uuid.UUID, ref string) (*domain.Invoice, error) {
	var (
		inv          domain.Invoice
		amount       pgtype.Numeric
		paymentState string
	)
	err := executor(r.pool, tx).QueryRow(ctx, `
		SELECT id, company_id, sale_order_id, partner_id, ref, amount_total, currency_code, payment_state, posted_at, created_at
		FROM invoices
		WHERE company_id = $1 AND ref = $2 AND state = 'posted'
		  AND payment_state NOT IN ('paid', 'in_payment')
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE`, companyID, ref,
	).Scan(&inv.ID, &inv.CompanyID, &inv.SaleOrderID, &inv.PartnerID, &inv.Ref,
		&amount, &inv.CurrencyCode, &paymentState, &inv.PostedAt, &inv.CreatedAt)
	if err != nil {
		return nil, notFound(err, domain.ErrNotFound, "lock unpaid invoice")
	}
	if inv.AmountTotal, err = pgNumericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("amount_total: %w", err)
	}
	inv.PaymentState = domain.InvoicePaymentState(paymentState)
	return &inv, nil
}

// RegisterPayment records a payment
func (r *LedgerRepository) RegisterPayment(ctx context.Context, tx ports.DBTX, p *domain.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := executor(r.pool, tx).QueryRow(ctx, `
		INSERT INTO payments (id, company_id, partner_id, invoice_id, mercantil_transaction_id, amount, currency_code, journal_code, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		p.ID, p.CompanyID, p.PartnerID, converters.NullableUUID(p.InvoiceID), converters.NullableUUID(p.MercantilTransactionID),
		decimalToNumeric(p.Amount), p.CurrencyCode, p.JournalCode, p.Memo,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// MarkInvoicePaid sets the invoice payment state to paid
func (r *LedgerRepository) MarkInvoicePaid(ctx context.Context, tx ports.DBTX, invoiceID uuid.UUID) error {
	tag, err := executor(r.pool, tx).Exec(ctx,
		`UPDATE invoices SET payment_state = $2 WHERE id = $1`,
		invoiceID, string(domain.InvoicePaid))
	if err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
