package models

// Location is a physical place bookings are made for.
type Location struct {
	ID        string   `db:"id" json:"id"`
	Name      string   `db:"name" json:"name"`
	GroupKey  string   `db:"group_key" json:"group_key"`
	Category  Category `db:"category" json:"category"`
	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`
}

// HasCoordinates reports whether geofencing can be applied.
func (l Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}
