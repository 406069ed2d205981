package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
)

const transactionRecordColumns = `
	id, company_id, sale_order_id, attempt, merchant_id, invoice_number, contract_number,
	amount, amount_ves, fixed_exchange_rate, trx_type, currency_code, payment_concepts,
	return_url, customer_name, invoice_creation_date, invoice_cancelled_date, contract_date,
	status, webhook_response, confirmed_at, created_at, updated_at`

// TransactionRecordRepository implements ports.TransactionRecordRepository
type TransactionRecordRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRecordRepository creates a new repository
func NewTransactionRecordRepository(pool *pgxpool.Pool) *TransactionRecordRepository {
	return &TransactionRecordRepository{pool: pool}
}

// Create inserts a new record
func (r *TransactionRecordRepository) Create(ctx context.Context, tx ports.DBTX, rec *domain.TransactionRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	concepts, err := conceptsParam(rec.PaymentConcepts)
	if err != nil {
		return err
	}

	q := executor(r.pool, tx)
	err = q.QueryRow(ctx, `
		INSERT INTO mercantil_transactions (
			id, company_id, sale_order_id, attempt, merchant_id, invoice_number, contract_number,
			amount, amount_ves, fixed_exchange_rate, trx_type, currency_code, payment_concepts,
			return_url, customer_name, invoice_creation_date, invoice_cancelled_date, contract_date,
			status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at, updated_at`,
		rec.ID, rec.CompanyID, rec.SaleOrderID, rec.Attempt, rec.MerchantID, rec.InvoiceNumber, rec.ContractNumber,
		decimalToNumeric(rec.Amount), decimalToNumeric(rec.AmountVES), nullableNumeric(rec.FixedExchangeRate),
		string(rec.TrxType), rec.CurrencyCode, concepts,
		rec.ReturnURL, rec.CustomerName, rec.InvoiceCreationDate, rec.InvoiceCancelledDate, rec.ContractDate,
		string(rec.Status),
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert mercantil transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a record by its ID
func (r *TransactionRecordRepository) GetByID(ctx context.Context, db ports.DBTX, id uuid.UUID) (*domain.TransactionRecord, error) {
	row := executor(r.pool, db).QueryRow(ctx,
		`SELECT `+transactionRecordColumns+` FROM mercantil_transactions WHERE id = $1`, id)
	rec, err := scanTransactionRecord(row)
	if err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound, "get mercantil transaction")
	}
	return rec, nil
}

// GetLatestForOrder returns the highest attempt for a sale order
func (r *TransactionRecordRepository) GetLatestForOrder(ctx context.Context, db ports.DBTX, saleOrderID uuid.UUID) (*domain.TransactionRecord, error) {
	row := executor(r.pool, db).QueryRow(ctx,
		`SELECT `+transactionRecordColumns+` FROM mercantil_transactions
		 WHERE sale_order_id = $1 ORDER BY attempt DESC LIMIT 1`, saleOrderID)
	rec, err := scanTransactionRecord(row)
	if err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound, "get latest mercantil transaction")
	}
	return rec, nil
}

// NextAttempt returns max(attempt)+1 for the order, or 1 when it has none
func (r *TransactionRecordRepository) NextAttempt(ctx context.Context, db ports.DBTX, saleOrderID uuid.UUID) (int, error) {
	var next int
	err := executor(r.pool, db).QueryRow(ctx,
		`SELECT COALESCE(MAX(attempt), 0) + 1 FROM mercantil_transactions WHERE sale_order_id = $1`,
		saleOrderID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("next attempt: %w", err)
	}
	return next, nil
}

// LockByInvoiceNumber selects the record FOR UPDATE
func (r *TransactionRecordRepository) LockByInvoiceNumber(ctx context.Context, tx ports.DBTX, companyID uuid.UUID, invoiceNumber string) (*domain.TransactionRecord, error) {
	row := executor(r.pool, tx).QueryRow(ctx,
		`SELECT `+transactionRecordColumns+` FROM mercantil_transactions
		 WHERE company_id = $1 AND invoice_number = $2
		 FOR UPDATE`, companyID, invoiceNumber)
	rec, err := scanTransactionRecord(row)
	if err != nil {
		return nil, notFound(err, domain.ErrTransactionNotFound, "lock mercantil transaction")
	}
	return rec, nil
}

// UpdateSettlementAmount stores the VES amount computed for the last link
func (r *TransactionRecordRepository) UpdateSettlementAmount(ctx context.Context, tx ports.DBTX, id uuid.UUID, amountVES decimal.Decimal) error {
	tag, err := executor(r.pool, tx).Exec(ctx,
		`UPDATE mercantil_transactions SET amount_ves = $2, updated_at = NOW() WHERE id = $1`,
		id, decimalToNumeric(amountVES))
	if err != nil {
		return fmt.Errorf("update settlement amount: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// MarkConfirmed stores the notification and flips the status to confirmed
func (r *TransactionRecordRepository) MarkConfirmed(ctx context.Context, tx ports.DBTX, id uuid.UUID, notification json.RawMessage, confirmedAt time.Time) error {
	tag, err := executor(r.pool, tx).Exec(ctx, `
		UPDATE mercantil_transactions
		SET webhook_response = $2, status = $3, confirmed_at = $4, updated_at = $4
		WHERE id = $1`,
		id, jsonbParam(notification), string(domain.TransactionStatusConfirmed), confirmedAt)
	if err != nil {
		return fmt.Errorf("mark mercantil transaction confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransactionRecord(row rowScanner) (*domain.TransactionRecord, error) {
	var (
		rec                          domain.TransactionRecord
		amount, amountVES, fixedRate pgtype.Numeric
		trxType, status              string
		concepts, webhookResponse    []byte
	)

	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.SaleOrderID, &rec.Attempt, &rec.MerchantID, &rec.InvoiceNumber, &rec.ContractNumber,
		&amount, &amountVES, &fixedRate, &trxType, &rec.CurrencyCode, &concepts,
		&rec.ReturnURL, &rec.CustomerName, &rec.InvoiceCreationDate, &rec.InvoiceCancelledDate, &rec.ContractDate,
		&status, &webhookResponse, &rec.ConfirmedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.Amount, err = pgNumericToDecimal(amount); err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if rec.AmountVES, err = pgNumericToDecimal(amountVES); err != nil {
		return nil, fmt.Errorf("amount_ves: %w", err)
	}
	if rec.FixedExchangeRate, err = pgNumericToDecimal(fixedRate); err != nil {
		return nil, fmt.Errorf("fixed_exchange_rate: %w", err)
	}
	if rec.TrxType, err = domain.ParseTrxType(trxType); err != nil {
		return nil, err
	}
	if rec.PaymentConcepts, err = domain.ParsePaymentConcepts(string(concepts)); err != nil {
		return nil, err
	}
	rec.Status = domain.TransactionStatus(status)
	if len(webhookResponse) > 0 {
		rec.WebhookResponse = json.RawMessage(webhookResponse)
	}
	return &rec, nil
}
