package dto

// AssignOperatorRequest assigns an operator to a booking. Override lets an admin assign outside the eligible list.
type AssignOperatorRequest struct {
	OperatorID int64  `json:"operator_id" validate:"required,gt=0"`
	Override   bool   `json:"override"`
	Reason     string `json:"reason" validate:"max=500"`
}
