package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ApprovalStatus is the closed lifecycle state of a booking.
type ApprovalStatus string

const (
	StatusPending               ApprovalStatus = "pending"
	StatusApprovalRequested     ApprovalStatus = "approval_requested"
	StatusApproved              ApprovalStatus = "approved"
	StatusConfirmed             ApprovalStatus = "confirmed"
	StatusModificationRequested ApprovalStatus = "modification_requested"
	StatusModificationApproved  ApprovalStatus = "modification_approved"
	StatusCancellationRequested ApprovalStatus = "cancellation_requested"
	StatusDeletionRequested     ApprovalStatus = "deletion_requested"
	StatusCancelled             ApprovalStatus = "cancelled"
	StatusDeleted               ApprovalStatus = "deleted"
)

// ApprovalStatuses lists every persisted status value.
var ApprovalStatuses = []ApprovalStatus{
	StatusPending,
	StatusApprovalRequested,
	StatusApproved,
	StatusConfirmed,
	StatusModificationRequested,
	StatusModificationApproved,
	StatusCancellationRequested,
	StatusDeletionRequested,
	StatusCancelled,
	StatusDeleted,
}

// Valid reports whether s belongs to the closed status set.
func (s ApprovalStatus) Valid() bool {
	for _, candidate := range ApprovalStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether s is cancelled or deleted.
func (s ApprovalStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusDeleted
}

// Committed reports whether a booking in s holds its operator's time slot.
func (s ApprovalStatus) Committed() bool {
	switch s {
	case StatusApproved, StatusConfirmed, StatusModificationRequested, StatusModificationApproved,
		StatusCancellationRequested, StatusDeletionRequested:
		return true
	}
	return false
}

// BookingAction names an approval workflow action.
type BookingAction string

const (
	ActionSaveDraft           BookingAction = "save_draft"
	ActionRequest             BookingAction = "request"
	ActionWithdrawRequest     BookingAction = "withdraw_request"
	ActionApprove             BookingAction = "approve"
	ActionConfirm             BookingAction = "confirm"
	ActionRejectRequest       BookingAction = "reject_request"
	ActionRequestModification BookingAction = "request_modification"
	ActionApproveModification BookingAction = "approve_modification"
	ActionRequestCancellation BookingAction = "request_cancellation"
	ActionRequestDeletion     BookingAction = "request_deletion"
	ActionApproveCancellation BookingAction = "approve_cancellation"
	ActionApproveDeletion     BookingAction = "approve_deletion"
	ActionForceCancel         BookingAction = "force_cancel"
	ActionForceDelete         BookingAction = "force_delete"
)

// BookingActions lists every workflow action.
var BookingActions = []BookingAction{
	ActionSaveDraft, ActionRequest, ActionWithdrawRequest, ActionApprove, ActionConfirm, ActionRejectRequest,
	ActionRequestModification, ActionApproveModification, ActionRequestCancellation, ActionRequestDeletion,
	ActionApproveCancellation, ActionApproveDeletion, ActionForceCancel, ActionForceDelete,
}

// Valid reports whether a is a known action.
func (a BookingAction) Valid() bool {
	for _, candidate := range BookingActions {
		if a == candidate {
			return true
		}
	}
	return false
}

// RequestType reports whether the action is a submission subject to the weekly deadline.
func (a BookingAction) RequestType() bool {
	switch a {
	case ActionRequest, ActionRequestModification, ActionRequestCancellation, ActionRequestDeletion:
		return true
	}
	return false
}

// Booking is a reservation of a location and time window for recording.
type Booking struct {
	ID                  int64           `db:"id" json:"id"`
	Category            Category        `db:"category" json:"category"`
	Date                string          `db:"shoot_date" json:"date"`
	StartTime           string          `db:"start_time" json:"start_time"`
	EndTime             string          `db:"end_time" json:"end_time"`
	LocationID          string          `db:"location_id" json:"location_id"`
	Subject             string          `db:"subject" json:"subject"`
	Instructor          string          `db:"instructor" json:"instructor"`
	RawDetails          types.JSONText  `db:"details" json:"-"`
	Details             CategoryDetails `db:"-" json:"details"`
	ApprovalStatus      ApprovalStatus  `db:"approval_status" json:"approval_status"`
	ResumeStatus        *ApprovalStatus `db:"resume_status" json:"resume_status,omitempty"`
	IsActive            bool            `db:"is_active" json:"is_active"`
	AssignedOperatorID  *int64          `db:"assigned_operator_id" json:"assigned_operator_id"`
	OperatorConfirmedAt *time.Time      `db:"operator_confirmed_at" json:"operator_confirmed_at,omitempty"`
	TrackingStatus      *string         `db:"tracking_status" json:"tracking_status"`
	ActualStartAt       *time.Time      `db:"actual_start_at" json:"actual_start_at,omitempty"`
	ActualEndAt         *time.Time      `db:"actual_end_at" json:"actual_end_at,omitempty"`
	PendingChanges      *types.JSONText `db:"pending_changes" json:"pending_changes,omitempty"`
	RequestedBy         string          `db:"requested_by" json:"requested_by"`
	ApprovedBy          *string         `db:"approved_by" json:"approved_by,omitempty"`
	RequestReason       *string         `db:"request_reason" json:"request_reason,omitempty"`
	ModificationReason  *string         `db:"modification_reason" json:"modification_reason,omitempty"`
	CancellationReason  *string         `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	DeletionReason      *string         `db:"deletion_reason" json:"deletion_reason,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so engines can derive the next state without aliasing the stored snapshot.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.RawDetails = append(types.JSONText(nil), b.RawDetails...)
	c.ResumeStatus = clonePtr(b.ResumeStatus)
	c.AssignedOperatorID = clonePtr(b.AssignedOperatorID)
	c.OperatorConfirmedAt = clonePtr(b.OperatorConfirmedAt)
	c.TrackingStatus = clonePtr(b.TrackingStatus)
	c.ActualStartAt = clonePtr(b.ActualStartAt)
	c.ActualEndAt = clonePtr(b.ActualEndAt)
	c.ApprovedBy = clonePtr(b.ApprovedBy)
	c.RequestReason = clonePtr(b.RequestReason)
	c.ModificationReason = clonePtr(b.ModificationReason)
	c.CancellationReason = clonePtr(b.CancellationReason)
	c.DeletionReason = clonePtr(b.DeletionReason)
	if b.PendingChanges != nil {
		pending := append(types.JSONText(nil), (*b.PendingChanges)...)
		c.PendingChanges = &pending
	}
	return &c
}

// Fields extracts the business fields compared when approving modifications.
func (b *Booking) Fields() BookingFields {
	return BookingFields{
		Category:   b.Category,
		Date:       b.Date,
		StartTime:  b.StartTime,
		EndTime:    b.EndTime,
		LocationID: b.LocationID,
		Subject:    b.Subject,
		Instructor: b.Instructor,
		Details:    b.Details,
	}
}

// ApplyFields overwrites the business fields.
func (b *Booking) ApplyFields(f BookingFields) {
	b.Category = f.Category
	b.Date = f.Date
	b.StartTime = f.StartTime
	b.EndTime = f.EndTime
	b.LocationID = f.LocationID
	b.Subject = f.Subject
	b.Instructor = f.Instructor
	b.Details = f.Details
}

// BookingFilter constrains booking listings.
type BookingFilter struct {
	WeekStart    string
	Date         string
	RequestedBy  string
	OperatorID   *int64
	Statuses     []ApprovalStatus
	ActiveOnly   bool
	UpdatedSince *time.Time
	Page         int
	PageSize     int
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
