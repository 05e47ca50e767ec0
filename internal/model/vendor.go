package model

import (
	"time"

	"github.com/google/uuid"
)

// VendorStatus enum constants
const (
	VendorActive   = "ACTIVE"
	VendorInactive = "INACTIVE"
)

// Vendor represents a supplier eligible for purchase orders. TotalOrders is
// derived and monotone: incremented once per delivered purchase order, never
// decremented.
type Vendor struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Category    string    `gorm:"type:varchar(100);index" json:"category"`
	Rating      float64   `gorm:"type:decimal(3,2);not null;default:0" json:"rating"` // 0..5
	TotalOrders int       `gorm:"type:int;not null;default:0" json:"total_orders"`
	Status      string    `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
