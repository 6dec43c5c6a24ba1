package models

import (
	"time"

	"gorm.io/gorm"
)

// EnvelopeStatus represents the lifecycle status of an envelope.
// It only ever advances draft -> pending -> (completed | rejected).
type EnvelopeStatus string

const (
	EnvelopeStatusDraft     EnvelopeStatus = "draft"
	EnvelopeStatusPending   EnvelopeStatus = "pending"
	EnvelopeStatusCompleted EnvelopeStatus = "completed"
	EnvelopeStatusRejected  EnvelopeStatus = "rejected"
)

// SigningOrderMode controls whether gating recipients sign in strict index
// order or in any order.
type SigningOrderMode string

const (
	OrderParallel   SigningOrderMode = "parallel"
	OrderSequential SigningOrderMode = "sequential"
)

// Envelope is the signable unit: one or more documents sent to a set of
// recipients for signature.
// Implements the Ownable interface for ownership-based authorization.
type Envelope struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// UserID is the owner of this envelope (for multi-tenant isolation)
	UserID uint `gorm:"index;not null" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	Title string `gorm:"size:255;not null" json:"title"`

	Status    EnvelopeStatus   `gorm:"size:20;default:'draft'" json:"status"`
	OrderMode SigningOrderMode `gorm:"size:20;default:'parallel'" json:"order_mode"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Recipients []Recipient `gorm:"foreignKey:EnvelopeID" json:"recipients,omitempty"`
	Fields     []Field     `gorm:"foreignKey:EnvelopeID" json:"fields,omitempty"`
}

// GetUserID implements the Ownable interface for authorization.
func (e *Envelope) GetUserID() uint {
	return e.UserID
}

// IsDraft returns true while the envelope is still being assembled by the sender.
func (e *Envelope) IsDraft() bool {
	return e.Status == EnvelopeStatusDraft
}

// IsPending returns true while the envelope is out for signature.
func (e *Envelope) IsPending() bool {
	return e.Status == EnvelopeStatusPending
}

// IsTerminal returns true once the envelope has been completed or rejected.
// Terminal envelopes accept no further signing activity.
func (e *Envelope) IsTerminal() bool {
	return e.Status == EnvelopeStatusCompleted || e.Status == EnvelopeStatusRejected
}
