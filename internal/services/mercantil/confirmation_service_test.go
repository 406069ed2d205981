package mercantil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/testutil/fixtures"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/testutil/mocks"
	"github.com/steamsolutionsvzla/odoo-megalabs/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type confirmationFixture struct {
	tm      *mocks.MockTransactionManager
	records *mocks.MockTransactionRecordRepository
	ledger  *mocks.MockLedgerRepository
	params  *mocks.MockParameterResolver
	svc     *ConfirmationService
	tenant  uuid.UUID
}

func newConfirmationFixture(t *testing.T) *confirmationFixture {
	f := &confirmationFixture{
		tm:      &mocks.MockTransactionManager{},
		records: new(mocks.MockTransactionRecordRepository),
		ledger:  new(mocks.MockLedgerRepository),
		params:  new(mocks.MockParameterResolver),
		tenant:  uuid.New(),
	}
	f.svc = NewConfirmationService(f.tm, f.records, f.ledger, f.params,
		crypto.NewAESECBCodec(), "BNK1", zaptest.NewLogger(t))
	return f
}

func (f *confirmationFixture) withSecret() {
	f.params.On("Require", mock.Anything, f.tenant, domain.ParamSecretKey).Return(testSecret, nil)
}

// encryptedBody wraps a notification the way the gateway posts it
func encryptedBody(t *testing.T, plaintext []byte) []byte {
	t.Helper()
	ciphertext, err := crypto.NewAESECBCodec().Encrypt(plaintext, testSecret)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]string{"data": string(ciphertext)})
	require.NoError(t, err)
	return body
}

func unpaidInvoice(record *domain.TransactionRecord) *domain.Invoice {
	return &domain.Invoice{
		ID:           uuid.New(),
		CompanyID:    record.CompanyID,
		PartnerID:    uuid.New(),
		Ref:          record.InvoiceNumber,
		AmountTotal:  decimal.NewFromInt(4000),
		CurrencyCode: domain.SettlementCurrency,
		PaymentState: domain.InvoiceNotPaid,
	}
}

func TestHandleNotification_EnvelopeErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantBody    map[string]string
		wantOutcome string
	}{
		{
			name:        "invalid_json",
			body:        `{not json`,
			wantStatus:  http.StatusBadRequest,
			wantBody:    map[string]string{"error": "Invalid JSON"},
			wantOutcome: OutcomeInvalidJSON,
		},
		{
			name:        "missing_data",
			body:        `{"other":"x"}`,
			wantStatus:  http.StatusOK,
			wantBody:    map[string]string{"status": "received"},
			wantOutcome: OutcomeReceived,
		},
		{
			name:        "blank_data",
			body:        `{"data":"  "}`,
			wantStatus:  http.StatusOK,
			wantBody:    map[string]string{"status": "received"},
			wantOutcome: OutcomeReceived,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConfirmationFixture(t)

			result := f.svc.HandleNotification(context.Background(), f.tenant, []byte(tt.body))

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantBody, result.Body)
			assert.Equal(t, tt.wantOutcome, result.Outcome)
			f.params.AssertNotCalled(t, "Require", mock.Anything, mock.Anything, mock.Anything)
			assert.Zero(t, f.tm.Commits+f.tm.Rollbacks)
		})
	}
}

func TestHandleNotification_SecretMissing(t *testing.T) {
	f := newConfirmationFixture(t)
	f.params.On("Require", mock.Anything, f.tenant, domain.ParamSecretKey).
		Return("", domain.NewConfigError(domain.ParamSecretKey))

	result := f.svc.HandleNotification(context.Background(), f.tenant, []byte(`{"data":"abc"}`))

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, map[string]string{"error": "Internal server error"}, result.Body)
	assert.Equal(t, OutcomeConfigMissing, result.Outcome)
}

func TestHandleNotification_DecryptFailure(t *testing.T) {
	for name, data := range map[string]string{
		"not_base64":      "%%%",
		"wrong_key":       mustEncrypt(t, `{"a":1}`, "other-secret"),
		"not_json":        mustEncrypt(t, `hello`, testSecret),
		"json_not_object": mustEncrypt(t, `[1,2]`, testSecret),
	} {
		t.Run(name, func(t *testing.T) {
			f := newConfirmationFixture(t)
			f.withSecret()
			body, _ := json.Marshal(map[string]string{"data": data})

			result := f.svc.HandleNotification(context.Background(), f.tenant, body)

			assert.Equal(t, http.StatusBadRequest, result.Status)
			assert.Equal(t, map[string]string{"status": "error", "message": "Unable to decrypt notification"}, result.Body)
			assert.Zero(t, f.tm.Commits+f.tm.Rollbacks)
		})
	}
}

func mustEncrypt(t *testing.T, plaintext, secret string) string {
	t.Helper()
	out, err := crypto.NewAESECBCodec().Encrypt([]byte(plaintext), secret)
	require.NoError(t, err)
	return string(out)
}

func TestHandleNotification_MissingInvoiceNumber(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()

	result := f.svc.HandleNotification(context.Background(), f.tenant,
		encryptedBody(t, []byte(`{"infoMsg":{"guId":"g-1"},"webhookNotificationIn":{}}`)))

	assert.Equal(t, http.StatusBadRequest, result.Status)
	assert.Equal(t, map[string]string{"status": "error", "message": "Missing invoice number"}, result.Body)
	f.records.AssertNotCalled(t, "LockByInvoiceNumber", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleNotification_UnknownInvoice(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, "999").
		Return(nil, domain.ErrTransactionNotFound)

	result := f.svc.HandleNotification(context.Background(), f.tenant,
		encryptedBody(t, fixtures.NotificationJSON("g-1", "999")))

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, map[string]string{
		"status":        "error",
		"message":       "Invoice doesn't exist",
		"numeroFactura": "999",
	}, result.Body)
	assert.Equal(t, OutcomeUnknownInvoice, result.Outcome)
	f.ledger.AssertNotCalled(t, "LockUnpaidInvoiceByRef", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleNotification_AppliesPayment(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	record := fixtures.NewTransactionRecord().WithCompanyID(f.tenant).Build()
	invoice := unpaidInvoice(record)
	plaintext := fixtures.NotificationJSON("guid-123", record.InvoiceNumber)

	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(record, nil)
	f.ledger.On("LockUnpaidInvoiceByRef", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(invoice, nil)
	f.ledger.On("RegisterPayment", mock.Anything, mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.Amount.Equal(decimal.NewFromInt(4000)) &&
			p.JournalCode == "BNK1" &&
			*p.InvoiceID == invoice.ID &&
			*p.MercantilTransactionID == record.ID &&
			strings.Contains(p.Memo, "guid-123")
	})).Return(nil)
	f.ledger.On("MarkInvoicePaid", mock.Anything, mock.Anything, invoice.ID).Return(nil)
	f.records.On("MarkConfirmed", mock.Anything, mock.Anything, record.ID,
		mock.MatchedBy(func(raw json.RawMessage) bool { return string(raw) == string(plaintext) }),
		mock.AnythingOfType("time.Time")).Return(nil)

	result := f.svc.HandleNotification(context.Background(), f.tenant, encryptedBody(t, plaintext))

	require.Equal(t, http.StatusOK, result.Status)
	ack, ok := result.Body.(domain.AckEnvelope)
	require.True(t, ok)
	assert.Equal(t, domain.AckCodeSuccess, ack.Codigo)
	assert.Equal(t, 0, ack.Code)
	assert.Equal(t, "guid-123", ack.IDRegistro)
	assert.Equal(t, "WEB", ack.InfoMsg.Channel)
	assert.Equal(t, "Notificacion recibida con éxito!", ack.MensajeCliente)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.Equal(t, 1, f.tm.Commits)
	f.ledger.AssertExpectations(t)
	f.records.AssertExpectations(t)
}

func TestHandleNotification_NoUnpaidInvoiceStillConfirms(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	record := fixtures.NewTransactionRecord().WithCompanyID(f.tenant).Build()

	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(record, nil)
	f.ledger.On("LockUnpaidInvoiceByRef", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(nil, domain.ErrNotFound)
	f.records.On("MarkConfirmed", mock.Anything, mock.Anything, record.ID, mock.Anything, mock.Anything).Return(nil)

	result := f.svc.HandleNotification(context.Background(), f.tenant,
		encryptedBody(t, fixtures.NotificationJSON("guid-9", record.InvoiceNumber)))

	assert.Equal(t, http.StatusOK, result.Status)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	f.ledger.AssertNotCalled(t, "RegisterPayment", mock.Anything, mock.Anything, mock.Anything)
}

// TestHandleNotification_Idempotent delivers the same notification twice:
// one payment is posted and the replay is acknowledged with code 06.
func TestHandleNotification_Idempotent(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	record := fixtures.NewTransactionRecord().WithCompanyID(f.tenant).Build()
	replayed := fixtures.NewTransactionRecord().WithCompanyID(f.tenant).WithStoredNotification("guid-dup").Build()
	invoice := unpaidInvoice(record)
	body := encryptedBody(t, fixtures.NotificationJSON("guid-dup", record.InvoiceNumber))

	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(record, nil).Once()
	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(replayed, nil).Once()
	f.ledger.On("LockUnpaidInvoiceByRef", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(invoice, nil).Once()
	f.ledger.On("RegisterPayment", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	f.ledger.On("MarkInvoicePaid", mock.Anything, mock.Anything, invoice.ID).Return(nil).Once()
	f.records.On("MarkConfirmed", mock.Anything, mock.Anything, record.ID, mock.Anything, mock.Anything).Return(nil).Once()

	first := f.svc.HandleNotification(context.Background(), f.tenant, body)
	second := f.svc.HandleNotification(context.Background(), f.tenant, body)

	assert.Equal(t, OutcomeApplied, first.Outcome)
	require.Equal(t, http.StatusOK, second.Status)
	ack, ok := second.Body.(domain.AckEnvelope)
	require.True(t, ok)
	assert.Equal(t, domain.AckCodeDuplicate, ack.Codigo)
	assert.Equal(t, "Notificación duplicada", ack.MensajeCliente)
	assert.Equal(t, "Webhook already processed", ack.MensajeSistema)
	f.ledger.AssertNumberOfCalls(t, "RegisterPayment", 1)
	f.records.AssertNumberOfCalls(t, "MarkConfirmed", 1)
}

func TestHandleNotification_CorruptStoredResponseIsReprocessed(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	record := fixtures.NewTransactionRecord().WithCompanyID(f.tenant).Build()
	record.WebhookResponse = json.RawMessage(`{broken`)

	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(record, nil)
	f.ledger.On("LockUnpaidInvoiceByRef", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(nil, domain.ErrNotFound)
	f.records.On("MarkConfirmed", mock.Anything, mock.Anything, record.ID, mock.Anything, mock.Anything).Return(nil)

	result := f.svc.HandleNotification(context.Background(), f.tenant,
		encryptedBody(t, fixtures.NotificationJSON("g-5", record.InvoiceNumber)))

	assert.Equal(t, OutcomeApplied, result.Outcome)
}

func TestHandleNotification_EmptyGUIDIsNeverDuplicate(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	record := fixtures.NewTransactionRecord().WithCompanyID(f.tenant).WithStoredNotification("").Build()

	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(record, nil)
	f.ledger.On("LockUnpaidInvoiceByRef", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(nil, domain.ErrNotFound)
	f.records.On("MarkConfirmed", mock.Anything, mock.Anything, record.ID, mock.Anything, mock.Anything).Return(nil)

	result := f.svc.HandleNotification(context.Background(), f.tenant,
		encryptedBody(t, fixtures.NotificationJSON("", record.InvoiceNumber)))

	assert.Equal(t, OutcomeApplied, result.Outcome)
}

// TestHandleNotification_RollbackOnPaymentFailure checks that the notification
// is not stored when the payment cannot be posted.
func TestHandleNotification_RollbackOnPaymentFailure(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	record := fixtures.NewTransactionRecord().WithCompanyID(f.tenant).Build()

	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(record, nil)
	f.ledger.On("LockUnpaidInvoiceByRef", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(unpaidInvoice(record), nil)
	f.ledger.On("RegisterPayment", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("journal BNK1 not found"))

	result := f.svc.HandleNotification(context.Background(), f.tenant,
		encryptedBody(t, fixtures.NotificationJSON("g-2", record.InvoiceNumber)))

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, map[string]string{"error": "Internal server error"}, result.Body)
	assert.Equal(t, 1, f.tm.Rollbacks)
	assert.Zero(t, f.tm.Commits)
	f.records.AssertNotCalled(t, "MarkConfirmed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.False(t, record.IsConfirmed())
}

func TestHandleNotification_LockFailure(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, "77").
		Return(nil, errors.New("deadlock detected"))

	result := f.svc.HandleNotification(context.Background(), f.tenant,
		encryptedBody(t, fixtures.NotificationJSON("g", "77")))

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, 1, f.tm.Rollbacks)
}

func TestHandleNotification_MarkConfirmedFailure(t *testing.T) {
	f := newConfirmationFixture(t)
	f.withSecret()
	record := fixtures.NewTransactionRecord().WithCompanyID(f.tenant).Build()

	f.records.On("LockByInvoiceNumber", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(record, nil)
	f.ledger.On("LockUnpaidInvoiceByRef", mock.Anything, mock.Anything, f.tenant, record.InvoiceNumber).Return(nil, domain.ErrNotFound)
	f.records.On("MarkConfirmed", mock.Anything, mock.Anything, record.ID, mock.Anything, mock.Anything).
		Return(errors.New("disk full"))

	result := f.svc.HandleNotification(context.Background(), f.tenant,
		encryptedBody(t, fixtures.NotificationJSON("g-3", record.InvoiceNumber)))

	assert.Equal(t, http.StatusInternalServerError, result.Status)
	assert.Equal(t, 1, f.tm.Rollbacks)
}
