package sqlutil

import (
	"database/sql"
	"time"
)

// Helper functions for converting between Go types and sql.Null* types

// FromSqlTime converts sql.NullTime to Go time pointer
func FromSqlTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time.UTC()
	return &t
}

// ToNullJSON converts a raw JSON payload to a nullable text parameter.
// Text keeps drivers from encoding the bytes as bytea.
func ToNullJSON(payload []byte) sql.NullString {
	if len(payload) == 0 {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: string(payload), Valid: true}
}

// FromNullJSON converts a nullable text column back to raw JSON bytes.
func FromNullJSON(val sql.NullString) []byte {
	if !val.Valid {
		return nil
	}
	return []byte(val.String)
}
