package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// TestResolveSettlementAmount tests fixed > ingested > default precedence
func TestResolveSettlementAmount(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		fixed      string
		latest     *decimal.Decimal
		expected   string
		wantSource RateSource
	}{
		{
			name:       "fixed_rate_wins_over_ingested",
			amount:     "100",
			fixed:      "35",
			latest:     decimalPtr("40"),
			expected:   "3500",
			wantSource: RateSourceFixed,
		},
		{
			name:       "ingested_rate_used_when_fixed_is_zero",
			amount:     "100",
			fixed:      "0",
			latest:     decimalPtr("40"),
			expected:   "4000",
			wantSource: RateSourceIngested,
		},
		{
			name:       "negative_fixed_rate_is_ignored",
			amount:     "10",
			fixed:      "-5",
			latest:     decimalPtr("36.5"),
			expected:   "365",
			wantSource: RateSourceIngested,
		},
		{
			name:       "default_rate_of_one_without_rows",
			amount:     "12.34",
			fixed:      "0",
			latest:     nil,
			expected:   "12.34",
			wantSource: RateSourceDefault,
		},
		{
			name:       "zero_amount_stays_zero",
			amount:     "0",
			fixed:      "0",
			latest:     decimalPtr("40"),
			expected:   "0",
			wantSource: RateSourceIngested,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, source := ResolveSettlementAmount(
				decimal.RequireFromString(tt.amount),
				decimal.RequireFromString(tt.fixed),
				tt.latest,
			)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got),
				"expected %s, got %s", tt.expected, got)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func validRecord() *TransactionRecord {
	return &TransactionRecord{
		ID:            uuid.New(),
		CompanyID:     uuid.New(),
		SaleOrderID:   uuid.New(),
		Attempt:       1,
		MerchantID:    "200284",
		InvoiceNumber: "5551234",
		Amount:        decimal.NewFromInt(100),
		TrxType:       TrxTypePurchase,
		CurrencyCode:  GatewayCurrency,
		Status:        TransactionStatusAwaitingPayment,
	}
}

// TestTransactionRecord_Validate tests record invariants
func TestTransactionRecord_Validate(t *testing.T) {
	t.Run("valid_record", func(t *testing.T) {
		assert.NoError(t, validRecord().Validate())
	})

	t.Run("blank_invoice_number", func(t *testing.T) {
		r := validRecord()
		r.InvoiceNumber = "   "
		err := r.Validate()
		assert.ErrorIs(t, err, ErrInvoiceNumberRequired)
	})

	t.Run("missing_merchant_id", func(t *testing.T) {
		r := validRecord()
		r.MerchantID = ""
		assert.ErrorIs(t, r.Validate(), ErrMerchantIDRequired)
	})

	t.Run("attempt_zero", func(t *testing.T) {
		r := validRecord()
		r.Attempt = 0
		assert.True(t, IsValidationError(r.Validate()))
	})

	t.Run("unknown_trx_type", func(t *testing.T) {
		r := validRecord()
		r.TrxType = "refund"
		assert.True(t, IsValidationError(r.Validate()))
	})
}

// TestParseTrxType tests that sale and purchase stay distinct
func TestParseTrxType(t *testing.T) {
	purchase, err := ParseTrxType("compra")
	require.NoError(t, err)
	assert.Equal(t, TrxTypePurchase, purchase)

	sale, err := ParseTrxType("VENTA")
	require.NoError(t, err)
	assert.Equal(t, TrxTypeSale, sale)
	assert.NotEqual(t, purchase, sale)

	def, err := ParseTrxType("")
	require.NoError(t, err)
	assert.Equal(t, TrxTypePurchase, def)

	_, err = ParseTrxType("purchase")
	assert.Error(t, err)
}

// TestTransactionRecord_IsDuplicateOf tests guId based replay detection
func TestTransactionRecord_IsDuplicateOf(t *testing.T) {
	stored := json.RawMessage(`{"infoMsg":{"guId":"abc-123"},"webhookNotificationIn":{"numeroFactura":"5551234"}}`)

	tests := []struct {
		name     string
		response json.RawMessage
		guid     string
		expected bool
		wantErr  bool
	}{
		{name: "no_stored_response", response: nil, guid: "abc-123", expected: false},
		{name: "null_stored_response", response: json.RawMessage(`null`), guid: "abc-123", expected: false},
		{name: "same_guid", response: stored, guid: "abc-123", expected: true},
		{name: "different_guid", response: stored, guid: "xyz-999", expected: false},
		{name: "empty_incoming_guid_never_matches", response: json.RawMessage(`{"infoMsg":{}}`), guid: "", expected: false},
		{name: "corrupt_stored_response", response: json.RawMessage(`{not json`), guid: "abc-123", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			r.WebhookResponse = tt.response
			dup, err := r.IsDuplicateOf(tt.guid)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, dup)
		})
	}
}

// TestTransactionRecord_ApplyNotification tests the confirmed transition
func TestTransactionRecord_ApplyNotification(t *testing.T) {
	r := validRecord()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{"infoMsg":{"guId":"g-1"}}`)

	r.ApplyNotification(raw, at)

	assert.True(t, r.IsConfirmed())
	require.NotNil(t, r.ConfirmedAt)
	assert.Equal(t, at, *r.ConfirmedAt)
	guid, err := r.StoredGUID()
	require.NoError(t, err)
	assert.Equal(t, "g-1", guid)
}

// TestDeriveCustomerName tests display name derivation
func TestDeriveCustomerName(t *testing.T) {
	assert.Equal(t, "", DeriveCustomerName(nil))
	assert.Equal(t, "Ana Pérez", DeriveCustomerName(&Partner{Name: " Ana Pérez "}))
	assert.Equal(t, "Ana Pérez", DeriveCustomerName(&Partner{Name: "Ana Pérez", CompanyName: "Megalabs"}))
	assert.Equal(t, "", DeriveCustomerName(&Partner{CompanyName: "Megalabs"}))
}
