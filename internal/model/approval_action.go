package model

import (
	"time"

	"github.com/google/uuid"
)

// Recommendation enum constants (optional field on an ApprovalAction)
const (
	RecommendationApprove         = "APPROVE"
	RecommendationNeedsDiscussion = "NEEDS_DISCUSSION"
)

// ApprovalAction is one entry in the append-only ledger of state changes for
// a request. Keyed (request_id, seq) so the chronological order survives
// clock skew. Rows are never updated or deleted after creation.
type ApprovalAction struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_action_request_seq,priority:1" json:"request_id"`
	Seq            int       `gorm:"not null;uniqueIndex:idx_action_request_seq,priority:2" json:"seq"`
	ActorID        uuid.UUID `gorm:"type:uuid;not null;index" json:"actor_id"`
	Actor          *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorRole      string    `gorm:"type:varchar(30);not null" json:"actor_role"`
	FromState      string    `gorm:"type:varchar(30);not null" json:"from_state"`
	ToState        string    `gorm:"type:varchar(30);not null" json:"to_state"`
	Recommendation string    `gorm:"type:varchar(30)" json:"recommendation,omitempty"`
	Comment        string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}
