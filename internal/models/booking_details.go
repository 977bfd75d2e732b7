package models

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
)

// Category is the location kind a booking is made for.
type Category string

const (
	CategoryStudio   Category = "studio"
	CategoryAcademy  Category = "academy"
	CategoryInternal Category = "internal"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryStudio || c == CategoryAcademy || c == CategoryInternal
}

// CategoryDetails holds the category-specific booking fields. The set of
// implementations is closed: StudioDetails, AcademyDetails, InternalDetails.
type CategoryDetails interface {
	Category() Category
	sealed()
}

// StudioDetails describes a studio recording.
type StudioDetails struct {
	SetLayout         string `json:"set_layout,omitempty"`
	NeedsTeleprompter bool   `json:"needs_teleprompter"`
}

// AcademyDetails describes a lecture recorded for an academy course.
type AcademyDetails struct {
	CourseName    string `json:"course_name,omitempty"`
	SessionNumber int    `json:"session_number,omitempty"`
}

// InternalDetails describes an internal production.
type InternalDetails struct {
	Department string `json:"department,omitempty"`
	Purpose    string `json:"purpose,omitempty"`
}

func (StudioDetails) Category() Category { return CategoryStudio }
func (AcademyDetails) Category() Category { return CategoryAcademy }
func (InternalDetails) Category() Category { return CategoryInternal }

func (StudioDetails) sealed() {}
func (AcademyDetails) sealed() {}
func (InternalDetails) sealed() {}

// DecodeDetails decodes raw JSON into the variant for category. Empty input yields the zero variant.
func DecodeDetails(category Category, raw []byte) (CategoryDetails, error) {
	empty := len(raw) == 0 || string(raw) == "null"
	switch category {
	case CategoryStudio:
		var d StudioDetails
		if !empty {
			if err := json.Unmarshal(raw, &d); err != nil {
				return nil, fmt.Errorf("decode studio details: %w", err)
			}
		}
		return d, nil
	case CategoryAcademy:
		var d AcademyDetails
		if !empty {
			if err := json.Unmarshal(raw, &d); err != nil {
				return nil, fmt.Errorf("decode academy details: %w", err)
			}
		}
		return d, nil
	case CategoryInternal:
		var d InternalDetails
		if !empty {
			if err := json.Unmarshal(raw, &d); err != nil {
				return nil, fmt.Errorf("decode internal details: %w", err)
			}
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown category %q", category)
}

// EncodeDetails renders details for the JSONB column.
func EncodeDetails(d CategoryDetails) (types.JSONText, error) {
	if d == nil {
		return types.JSONText(`{}`), nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode %s details: %w", d.Category(), err)
	}
	return types.JSONText(raw), nil
}

// DecodeDetails populates Details from RawDetails after a row scan.
func (b *Booking) DecodeDetails() error {
	d, err := DecodeDetails(b.Category, b.RawDetails)
	if err != nil {
		return err
	}
	b.Details = d
	return nil
}

// EncodeDetails populates RawDetails from Details before a write.
func (b *Booking) EncodeDetails() error {
	raw, err := EncodeDetails(b.Details)
	if err != nil {
		return err
	}
	b.RawDetails = raw
	return nil
}

// BookingFields are the business fields of a booking; bookkeeping columns are excluded.
type BookingFields struct {
	Category   Category
	Date       string
	StartTime  string
	EndTime    string
	LocationID string
	Subject    string
	Instructor string
	Details    CategoryDetails
}

type bookingFieldsJSON struct {
	Category   Category        `json:"category"`
	Date       string          `json:"date"`
	StartTime  string          `json:"start_time"`
	EndTime    string          `json:"end_time"`
	LocationID string          `json:"location_id"`
	Subject    string          `json:"subject"`
	Instructor string          `json:"instructor"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (f BookingFields) MarshalJSON() ([]byte, error) {
	details, err := EncodeDetails(f.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(bookingFieldsJSON{
		Category:   f.Category,
		Date:       f.Date,
		StartTime:  f.StartTime,
		EndTime:    f.EndTime,
		LocationID: f.LocationID,
		Subject:    f.Subject,
		Instructor: f.Instructor,
		Details:    json.RawMessage(details),
	})
}

// UnmarshalJSON decodes the details variant selected by the category field.
func (f *BookingFields) UnmarshalJSON(data []byte) error {
	var aux bookingFieldsJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	details, err := DecodeDetails(aux.Category, aux.Details)
	if err != nil {
		return err
	}
	*f = BookingFields{
		Category:   aux.Category,
		Date:       aux.Date,
		StartTime:  aux.StartTime,
		EndTime:    aux.EndTime,
		LocationID: aux.LocationID,
		Subject:    aux.Subject,
		Instructor: aux.Instructor,
		Details:    details,
	}
	return nil
}

// Equal compares business fields. Details are compared by value since every variant is comparable.
func (f BookingFields) Equal(other BookingFields) bool {
	return f.Category == other.Category &&
		f.Date == other.Date &&
		f.StartTime == other.StartTime &&
		f.EndTime == other.EndTime &&
		f.LocationID == other.LocationID &&
		f.Subject == other.Subject &&
		f.Instructor == other.Instructor &&
		detailsOrZero(f.Category, f.Details) == detailsOrZero(other.Category, other.Details)
}

func detailsOrZero(category Category, d CategoryDetails) CategoryDetails {
	if d != nil {
		return d
	}
	zero, err := DecodeDetails(category, nil)
	if err != nil {
		return nil
	}
	return zero
}
