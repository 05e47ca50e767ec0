package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// POStatus enum constants
const (
	POStatusDraft     = "DRAFT"
	POStatusSent      = "SENT"
	POStatusConfirmed = "CONFIRMED"
	POStatusDelivered = "DELIVERED"
	POStatusCancelled = "CANCELLED"
)

// PurchaseOrder is procurement's commitment to a vendor for an approved
// request. A request may have at most one active (non-cancelled) purchase
// order at a time; the invariant is enforced transactionally at creation.
type PurchaseOrder struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PONumber     string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"po_number"`
	RequestID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"request_id"`
	Request      *Request        `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	VendorID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor       *Vendor         `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	Quantity     int             `gorm:"type:int;not null" json:"quantity"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	Status       string          `gorm:"type:varchar(20);not null;default:'DRAFT';index" json:"status"`
	CreatedBy    *uuid.UUID      `gorm:"type:uuid;index" json:"created_by"`
	Creator      *User           `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	DeliveryDate *time.Time      `json:"delivery_date"` // set only on the CONFIRMED -> DELIVERED edge
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
