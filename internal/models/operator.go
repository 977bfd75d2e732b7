package models

import (
	"time"

	"github.com/lib/pq"
)

// OperatorType classifies how an operator is engaged.
type OperatorType string

const (
	OperatorStaffCoordinator OperatorType = "staff_coordinator"
	OperatorRegular          OperatorType = "regular"
	OperatorDispatched       OperatorType = "dispatched"
	OperatorFreelance        OperatorType = "freelance"
)

// Priority orders operator types in eligibility listings; lower sorts first.
func (t OperatorType) Priority() int {
	switch t {
	case OperatorStaffCoordinator:
		return 0
	case OperatorRegular:
		return 1
	case OperatorDispatched:
		return 2
	case OperatorFreelance:
		return 3
	}
	return 4
}

// AccessPolicy controls which locations an operator may be assigned to.
type AccessPolicy string

const (
	AccessAll      AccessPolicy = "all"
	AccessDeclared AccessPolicy = "declared"
)

// Operator is a camera operator on the roster.
type Operator struct {
	ID             int64          `db:"id" json:"id"`
	DisplayName    string         `db:"display_name" json:"display_name"`
	Type           OperatorType   `db:"operator_type" json:"type"`
	AccessPolicy   AccessPolicy   `db:"access_policy" json:"access_policy"`
	LocationGroups pq.StringArray `db:"location_groups" json:"location_groups"`
	Phone          *string        `db:"phone" json:"phone,omitempty"`
	Active         bool           `db:"active" json:"active"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// CanAccess reports whether the operator may work in the location group.
func (o Operator) CanAccess(group string) bool {
	if o.AccessPolicy != AccessDeclared {
		return true
	}
	for _, g := range o.LocationGroups {
		if g == group {
			return true
		}
	}
	return false
}
