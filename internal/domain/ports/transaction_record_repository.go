package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
)

// TransactionRecordRepository defines persistence for bank payment attempts
type TransactionRecordRepository interface {
	// Create inserts a new record
	Create(ctx context.Context, tx DBTX, record *domain.TransactionRecord) error

	// GetByID retrieves a record by its ID
	GetByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.TransactionRecord, error)

	// GetLatestForOrder returns the highest attempt for a sale order
	GetLatestForOrder(ctx context.Context, db DBTX, saleOrderID uuid.UUID) (*domain.TransactionRecord, error)

	// NextAttempt returns the attempt number the next record for the order should use
	NextAttempt(ctx context.Context, db DBTX, saleOrderID uuid.UUID) (int, error)

	// LockByInvoiceNumber selects the record FOR UPDATE.
	// Must be called inside a transaction; the lock is held until commit or rollback.
	LockByInvoiceNumber(ctx context.Context, tx DBTX, companyID uuid.UUID, invoiceNumber string) (*domain.TransactionRecord, error)

	// UpdateSettlementAmount stores the VES amount computed for the last link
	UpdateSettlementAmount(ctx context.Context, tx DBTX, id uuid.UUID, amountVES decimal.Decimal) error

	// MarkConfirmed stores the decrypted notification and flips the status to confirmed
	MarkConfirmed(ctx context.Context, tx DBTX, id uuid.UUID, notification json.RawMessage, confirmedAt time.Time) error
}
