package models

import "time"

// RecipientRole determines what a participant may do and whether they gate
// completion. Capabilities per role live in internal/signing.
type RecipientRole string

const (
	RoleSigner    RecipientRole = "signer"
	RoleApprover  RecipientRole = "approver"
	RoleCC        RecipientRole = "cc"
	RoleAssistant RecipientRole = "assistant"
)

// SendStatus tracks initial-notification dispatch for a recipient.
type SendStatus string

const (
	SendStatusNotSent    SendStatus = "not_sent"
	SendStatusSent       SendStatus = "sent"
	SendStatusLinkCopied SendStatus = "link_copied"
)

// ReadStatus flips to opened on first access to the signing view and never reverts.
type ReadStatus string

const (
	ReadStatusNotOpened ReadStatus = "not_opened"
	ReadStatusOpened    ReadStatus = "opened"
)

// SigningStatus transitions only not_signed -> signed or not_signed -> rejected.
type SigningStatus string

const (
	SigningStatusNotSigned SigningStatus = "not_signed"
	SigningStatusSigned    SigningStatus = "signed"
	SigningStatusRejected  SigningStatus = "rejected"
)

// Recipient is a participant in an envelope, addressed by an opaque signing
// token rather than an account. The token is unique and immutable once issued.
type Recipient struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EnvelopeID uint `gorm:"index;not null" json:"envelope_id"`

	Role  RecipientRole `gorm:"size:20;not null" json:"role"`
	Email string        `gorm:"size:255;not null" json:"email"`
	Name  string        `gorm:"size:255" json:"name"`

	// Token authorizes unauthenticated access to the signing view.
	Token string `gorm:"size:64;uniqueIndex;not null" json:"-"`

	// SigningOrder is meaningful only when the envelope's order mode is
	// sequential; ties are broken by recipient id ascending.
	SigningOrder *int `json:"signing_order,omitempty"`

	SendStatus    SendStatus    `gorm:"size:20;default:'not_sent'" json:"send_status"`
	ReadStatus    ReadStatus    `gorm:"size:20;default:'not_opened'" json:"read_status"`
	SigningStatus SigningStatus `gorm:"size:20;default:'not_signed'" json:"signing_status"`

	RejectReason string     `gorm:"size:500" json:"reject_reason,omitempty"`
	SignedAt     *time.Time `json:"signed_at,omitempty"`

	Fields []Field `gorm:"foreignKey:RecipientID" json:"fields,omitempty"`
}

// IsSigned returns true once the recipient has signed.
func (r *Recipient) IsSigned() bool {
	return r.SigningStatus == SigningStatusSigned
}

// IsTerminal returns true once the recipient has signed or rejected.
// No further field writes are accepted from a terminal recipient.
func (r *Recipient) IsTerminal() bool {
	return r.SigningStatus == SigningStatusSigned || r.SigningStatus == SigningStatusRejected
}
