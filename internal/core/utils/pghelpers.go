package utils

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ToNullString converts an optional string to a pgtype.Text.
// A nil pointer is considered invalid (NULL).
func ToNullString(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{
		String: *s,
		Valid:  true,
	}
}

// FromNullString converts a pgtype.Text to an optional string.
func FromNullString(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

// ToNullFloat converts an optional float to a pgtype.Float8.
func ToNullFloat(f *float64) pgtype.Float8 {
	if f == nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: *f, Valid: true}
}

// FromNullFloat converts a pgtype.Float8 to an optional float.
func FromNullFloat(f pgtype.Float8) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// ToNullInt converts an optional int to a pgtype.Int4.
func ToNullInt(i *int) pgtype.Int4 {
	if i == nil {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(*i), Valid: true}
}

// FromNullInt converts a pgtype.Int4 to an optional int.
func FromNullInt(i pgtype.Int4) *int {
	if !i.Valid {
		return nil
	}
	v := int(i.Int32)
	return &v
}

// ToTimestamptz converts a time to a pgtype.Timestamptz.
// The zero time is considered invalid (NULL).
func ToTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

// FromTimestamptz converts a pgtype.Timestamptz to a UTC time.
// A NULL value is converted to the zero time.
func FromTimestamptz(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
