package model

import (
	"time"

	"github.com/google/uuid"
)

// RequestState enum constants, the fixed lifecycle of a procurement request
const (
	StateDraft                 = "DRAFT"
	StatePendingCheck          = "PENDING_CHECK"
	StateChecked               = "CHECKED"
	StatePendingReview         = "PENDING_REVIEW"
	StateReviewed              = "REVIEWED"
	StateApproved              = "APPROVED"
	StateProcurementPending    = "PROCUREMENT_PENDING"
	StateProcurementInProgress = "PROCUREMENT_IN_PROGRESS"
	StateSourced               = "SOURCED"
	StateDelivered             = "DELIVERED"
	StateRejected              = "REJECTED"
)

// Priority enum constants, set at creation and immutable afterwards
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Actor role enum constants
const (
	RoleAdmin           = "admin"
	RoleStaff           = "staff"
	RoleChecker         = "checker"
	RoleReviewer        = "reviewer"
	RoleDirectorGeneral = "director_general"
	RoleProcurement     = "procurement"
)

// Transition action enum constants
const (
	ActionCheck            = "CHECK"
	ActionReview           = "REVIEW"
	ActionApprove          = "APPROVE"
	ActionReject           = "REJECT"
	ActionStartProcurement = "START_PROCUREMENT"
	ActionBeginSourcing    = "BEGIN_SOURCING"
	ActionMarkSourced      = "MARK_SOURCED"
	ActionMarkDelivered    = "MARK_DELIVERED"
)

// IsTerminalState reports whether no further transition may leave the state.
func IsTerminalState(state string) bool {
	return state == StateDelivered || state == StateRejected
}

// Request represents a procurement requisition moving through the approval
// workflow. Version backs optimistic concurrency: every state change must
// compare-and-swap against the version it loaded, so two actors racing on the
// same request cannot both commit.
type Request struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestNumber  string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"request_number"`
	ItemName       string    `gorm:"type:varchar(255);not null" json:"item_name"`
	Quantity       int       `gorm:"type:int;not null" json:"quantity"`
	Department     string    `gorm:"type:varchar(100);not null;index" json:"department"`
	InitiatorID    uuid.UUID `gorm:"type:uuid;not null;index" json:"initiator_id"`
	Initiator      *User     `gorm:"foreignKey:InitiatorID" json:"initiator,omitempty"`
	State          string    `gorm:"type:varchar(30);not null;default:'PENDING_CHECK';index" json:"state"`
	Priority       string    `gorm:"type:varchar(10);not null;index" json:"priority"`
	Version        int64     `gorm:"not null;default:1" json:"version"`
	StateEnteredAt time.Time `gorm:"not null" json:"state_entered_at"` // reset on every transition, drives days-waiting metrics
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
