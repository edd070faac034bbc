package db

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// timestampLayout is fixed-width UTC so SQLite TEXT columns sort
// chronologically. PostgreSQL parses the same string into TIMESTAMPTZ.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// Timestamp stores a time.Time portably across SQLite and PostgreSQL.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, normalised to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	return t.UTC().Format(timestampLayout), nil
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		return fmt.Errorf("scan timestamp: unexpected NULL")
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (t *Timestamp) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("scan timestamp: %w", err)
	}
	t.Time = parsed.UTC()
	return nil
}

// timePtr converts a nullable column to the domain representation.
func timePtr(ts *Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
