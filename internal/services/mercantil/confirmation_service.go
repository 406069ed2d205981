package mercantil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/observability"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/timeutil"
	"go.uber.org/zap"
)

// Notification outcomes, used as metric labels and in logs
const (
	OutcomeReceived       = "received"
	OutcomeInvalidJSON    = "invalid_json"
	OutcomeConfigMissing  = "config_missing"
	OutcomeDecryptFailed  = "decrypt_failed"
	OutcomeMissingInvoice = "missing_invoice"
	OutcomeUnknownInvoice = "unknown_invoice"
	OutcomeDuplicate      = "duplicate"
	OutcomeApplied        = "applied"
	OutcomeFailed         = "failed"
)

// Decrypter turns the gateway's base64 ciphertext back into JSON plaintext
type Decrypter interface {
	DecryptJSON(ciphertext []byte, secretKey string) ([]byte, error)
}

// NotificationResult is the HTTP answer for one confirmation callback
type NotificationResult struct {
	Body    interface{}
	Outcome string
	Status  int
}

type envelope struct {
	Data *string `json:"data"`
}

// ConfirmationService applies bank payment confirmations
type ConfirmationService struct {
	db          ports.TransactionManager
	records     ports.TransactionRecordRepository
	ledger      ports.LedgerRepository
	params      ports.ParameterResolver
	codec       Decrypter
	logger      *zap.Logger
	bankJournal string
}

// NewConfirmationService creates a confirmation service
func NewConfirmationService(
	db ports.TransactionManager,
	records ports.TransactionRecordRepository,
	ledger ports.LedgerRepository,
	params ports.ParameterResolver,
	codec Decrypter,
	bankJournal string,
	logger *zap.Logger,
) *ConfirmationService {
	return &ConfirmationService{
		db:          db,
		records:     records,
		ledger:      ledger,
		params:      params,
		codec:       codec,
		bankJournal: bankJournal,
		logger:      logger,
	}
}

// HandleNotification decrypts a callback body, correlates it with its
// transaction record and posts the payment. It never returns an error; every
// failure is mapped to the response the gateway should receive.
func (s *ConfirmationService) HandleNotification(ctx context.Context, tenantID uuid.UUID, raw []byte) *NotificationResult {
	start := time.Now()
	result := s.handle(ctx, tenantID, raw)
	observability.RecordNotification(result.Outcome, time.Since(start))
	return result
}

func (s *ConfirmationService) handle(ctx context.Context, tenantID uuid.UUID, raw []byte) *NotificationResult {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Error("Failed to decode confirmation envelope", zap.Error(err))
		return &NotificationResult{
			Status:  http.StatusBadRequest,
			Body:    map[string]string{"error": "Invalid JSON"},
			Outcome: OutcomeInvalidJSON,
		}
	}
	if env.Data == nil || strings.TrimSpace(*env.Data) == "" {
		s.logger.Warn("Confirmation without data field, acknowledging")
		return &NotificationResult{
			Status:  http.StatusOK,
			Body:    map[string]string{"status": "received"},
			Outcome: OutcomeReceived,
		}
	}

	secret, err := s.params.Require(ctx, tenantID, domain.ParamSecretKey)
	if err != nil {
		s.logger.Error("Cannot decrypt confirmation",
			zap.String("tenant_id", tenantID.String()),
			zap.String("key", domain.ConfigKey(err)),
			zap.Error(err),
		)
		outcome := OutcomeFailed
		if domain.IsConfigError(err) {
			outcome = OutcomeConfigMissing
		}
		return internalError(outcome)
	}

	plaintext, err := s.codec.DecryptJSON([]byte(*env.Data), secret)
	if err != nil {
		s.logger.Error("Failed to decrypt confirmation", zap.Error(err))
		return decryptFailed()
	}

	notification, err := domain.ParseNotification(plaintext)
	if err != nil {
		s.logger.Error("Decrypted confirmation is malformed", zap.Error(err))
		return decryptFailed()
	}

	if notification.InvoiceNumber == "" {
		s.logger.Error("Confirmation has no invoice number",
			zap.String("guid", notification.InfoMsg.GUID.String()),
		)
		return &NotificationResult{
			Status:  http.StatusBadRequest,
			Body:    map[string]string{"status": "error", "message": "Missing invoice number"},
			Outcome: OutcomeMissingInvoice,
		}
	}

	var result *NotificationResult
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var txErr error
		result, txErr = s.apply(ctx, tx, tenantID, notification)
		return txErr
	})
	if err != nil {
		s.logger.Error("Failed to apply confirmation, rolled back",
			zap.String("invoice_number", notification.InvoiceNumber),
			zap.String("guid", notification.InfoMsg.GUID.String()),
			zap.Error(err),
		)
		return internalError(OutcomeFailed)
	}
	return result
}

// apply runs the locked part of the flow. Returning an error rolls back
// the payment and the stored notification together.
func (s *ConfirmationService) apply(ctx context.Context, tx ports.DBTX, tenantID uuid.UUID, n *domain.Notification) (*NotificationResult, error) {
	guid := n.InfoMsg.GUID.String()

	record, err := s.records.LockByInvoiceNumber(ctx, tx, tenantID, n.InvoiceNumber)
	if err != nil {
		if domain.IsNotFoundError(err) {
			s.logger.Warn("Confirmation for unknown invoice",
				zap.String("invoice_number", n.InvoiceNumber),
				zap.String("guid", guid),
			)
			return &NotificationResult{
				Status: http.StatusOK,
				Body: map[string]string{
					"status":        "error",
					"message":       "Invoice doesn't exist",
					"numeroFactura": n.InvoiceNumber,
				},
				Outcome: OutcomeUnknownInvoice,
			}, nil
		}
		return nil, fmt.Errorf("lock transaction record: %w", err)
	}

	duplicate, err := record.IsDuplicateOf(guid)
	if err != nil {
		s.logger.Warn("Stored notification is unreadable, processing as new",
			zap.String("invoice_number", n.InvoiceNumber),
			zap.Error(err),
		)
	}
	if duplicate {
		s.logger.Info("Duplicate confirmation ignored",
			zap.String("invoice_number", n.InvoiceNumber),
			zap.String("guid", guid),
		)
		return &NotificationResult{
			Status:  http.StatusOK,
			Body:    domain.NewDuplicateAck(n),
			Outcome: OutcomeDuplicate,
		}, nil
	}

	if err := s.postPayment(ctx, tx, record, guid); err != nil {
		return nil, err
	}

	now := timeutil.Now()
	if err := s.records.MarkConfirmed(ctx, tx, record.ID, n.Raw, now); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	record.ApplyNotification(n.Raw, now)

	s.logger.Info("Confirmation applied",
		zap.String("invoice_number", n.InvoiceNumber),
		zap.String("record_id", record.ID.String()),
		zap.String("guid", guid),
	)

	return &NotificationResult{
		Status:  http.StatusOK,
		Body:    domain.NewSuccessAck(n),
		Outcome: OutcomeApplied,
	}, nil
}

func (s *ConfirmationService) postPayment(ctx context.Context, tx ports.DBTX, record *domain.TransactionRecord, guid string) error {
	invoice, err := s.ledger.LockUnpaidInvoiceByRef(ctx, tx, record.CompanyID, record.InvoiceNumber)
	if err != nil {
		if domain.IsNotFoundError(err) {
			s.logger.Warn("No unpaid invoice for confirmed record",
				zap.String("invoice_number", record.InvoiceNumber),
				zap.String("record_id", record.ID.String()),
			)
			return nil
		}
		return fmt.Errorf("lock invoice: %w", err)
	}

	recordID := record.ID
	invoiceID := invoice.ID
	payment := &domain.Payment{
		ID:                     uuid.New(),
		CompanyID:              invoice.CompanyID,
		PartnerID:              invoice.PartnerID,
		InvoiceID:              &invoiceID,
		MercantilTransactionID: &recordID,
		Amount:                 invoice.AmountTotal,
		CurrencyCode:           invoice.CurrencyCode,
		JournalCode:            s.bankJournal,
		Memo:                   fmt.Sprintf("Mercantil %s guId %s", record.InvoiceNumber, guid),
	}
	if err := s.ledger.RegisterPayment(ctx, tx, payment); err != nil {
		return fmt.Errorf("register payment: %w", err)
	}
	if err := s.ledger.MarkInvoicePaid(ctx, tx, invoice.ID); err != nil {
		return fmt.Errorf("mark invoice paid: %w", err)
	}

	s.logger.Info("Invoice marked as paid",
		zap.String("invoice_number", record.InvoiceNumber),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("amount", invoice.AmountTotal.StringFixed(2)),
	)
	return nil
}

func internalError(outcome string) *NotificationResult {
	return &NotificationResult{
		Status:  http.StatusInternalServerError,
		Body:    map[string]string{"error": "Internal server error"},
		Outcome: outcome,
	}
}

func decryptFailed() *NotificationResult {
	return &NotificationResult{
		Status:  http.StatusBadRequest,
		Body:    map[string]string{"status": "error", "message": "Unable to decrypt notification"},
		Outcome: OutcomeDecryptFailed,
	}
}
