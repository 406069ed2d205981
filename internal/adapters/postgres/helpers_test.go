package postgres

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericConversion(t *testing.T) {
	values := []string{"0", "36.5", "4000.00", "0.027397260274", "-12.345"}
	for _, v := range values {
		t.Run(v, func(t *testing.T) {
			d := decimal.RequireFromString(v)
			got, err := pgNumericToDecimal(decimalToNumeric(d))
			require.NoError(t, err)
			assert.True(t, d.Equal(got), "expected %s, got %s", d, got)
		})
	}
}

func TestPgNumericToDecimal_Edges(t *testing.T) {
	t.Run("null_is_zero", func(t *testing.T) {
		got, err := pgNumericToDecimal(pgtype.Numeric{})
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})

	t.Run("nan_rejected", func(t *testing.T) {
		_, err := pgNumericToDecimal(pgtype.Numeric{NaN: true, Valid: true})
		assert.Error(t, err)
	})

	t.Run("scaled_integer", func(t *testing.T) {
		got, err := pgNumericToDecimal(pgtype.Numeric{Int: big.NewInt(3650), Exp: -2, Valid: true})
		require.NoError(t, err)
		assert.Equal(t, "36.5", got.String())
	})
}

func TestNullableNumeric(t *testing.T) {
	assert.False(t, nullableNumeric(decimal.Zero).Valid)
	assert.True(t, nullableNumeric(decimal.NewFromInt(35)).Valid)
}

func TestJSONBParam(t *testing.T) {
	assert.Nil(t, jsonbParam(nil))
	assert.Nil(t, jsonbParam(json.RawMessage{}))
	assert.Equal(t, []byte(`{"a":1}`), jsonbParam(json.RawMessage(`{"a":1}`)))
}

func TestConceptsParam(t *testing.T) {
	b, err := conceptsParam(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `["b2b","c2p","tdd"]`, string(b))

	b, err = conceptsParam(domain.PaymentConcepts{domain.PaymentConceptTDD})
	require.NoError(t, err)
	assert.JSONEq(t, `["tdd"]`, string(b))
}
