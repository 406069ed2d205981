// Package converters maps domain values to and from pgx nullable types.
package converters

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// NullableUUID converts a UUID pointer to pgtype.UUID.
// A nil pointer becomes SQL NULL, which addresses global rows.
func NullableUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}

// TextOrEmpty returns the trimmed text, or "" for NULL
func TextOrEmpty(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return strings.TrimSpace(t.String)
}
