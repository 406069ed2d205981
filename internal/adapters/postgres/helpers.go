package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain"
	"github.com/steamsolutionsvzla/odoo-megalabs/internal/domain/ports"
)

// executor picks the caller's transaction when given one, otherwise the pool
func executor(pool ports.DBTX, tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return pool
}

// notFound maps pgx.ErrNoRows to the given domain error and wraps everything else
func notFound(err error, missing error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return missing
	}
	return fmt.Errorf("%s: %w", op, err)
}

// decimalToNumeric converts decimal.Decimal to pgtype.Numeric without a string round trip
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// nullableNumeric stores zero as NULL
func nullableNumeric(d decimal.Decimal) pgtype.Numeric {
	if d.IsZero() {
		return pgtype.Numeric{}
	}
	return decimalToNumeric(d)
}

// pgNumericToDecimal converts pgtype.Numeric to decimal.Decimal. NULL becomes zero.
func pgNumericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("numeric value is not finite")
	}
	if n.Int == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

// jsonbParam passes an empty document as SQL NULL
func jsonbParam(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

func conceptsParam(c domain.PaymentConcepts) ([]byte, error) {
	b, err := json.Marshal(c.OrDefault().Strings())
	if err != nil {
		return nil, fmt.Errorf("encode payment concepts: %w", err)
	}
	return b, nil
}
