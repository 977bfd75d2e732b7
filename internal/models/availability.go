package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AvailabilityStatus tracks whether an operator has submitted the week.
type AvailabilityStatus string

const (
	AvailabilityDraft     AvailabilityStatus = "draft"
	AvailabilitySubmitted AvailabilityStatus = "submitted"
)

// DayAvailability is one day of a weekly declaration. Times are meaningless when Available is false.
type DayAvailability struct {
	Available bool   `json:"available"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
}

// AvailabilityDays maps weekday keys (mon..sun) to the day's window.
type AvailabilityDays map[string]DayAvailability

// Value implements driver.Valuer for the JSONB column.
func (d AvailabilityDays) Value() (driver.Value, error) {
	if d == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner for the JSONB column.
func (d *AvailabilityDays) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = AvailabilityDays{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported availability payload %T", src)
	}
	out := AvailabilityDays{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode availability days: %w", err)
	}
	*d = out
	return nil
}

// WeeklyAvailability is one freelance operator's declared availability for a Monday-aligned week.
type WeeklyAvailability struct {
	OperatorID  int64              `db:"operator_id" json:"operator_id"`
	WeekStart   string             `db:"week_start" json:"week_start"`
	Days        AvailabilityDays   `db:"days" json:"days"`
	Status      AvailabilityStatus `db:"status" json:"status"`
	SubmittedAt *time.Time         `db:"submitted_at" json:"submitted_at,omitempty"`
	UpdatedAt   time.Time          `db:"updated_at" json:"updated_at"`
}
