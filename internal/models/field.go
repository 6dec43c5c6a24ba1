package models

import "time"

// FieldType is the closed set of field kinds. Every switch over FieldType in
// internal/signing carries a default branch that fails loudly, so adding a
// kind here forces every handler to be updated.
type FieldType string

const (
	FieldSignature FieldType = "signature"
	FieldInitials  FieldType = "initials"
	FieldName      FieldType = "name"
	FieldEmail     FieldType = "email"
	FieldDate      FieldType = "date"
	FieldText      FieldType = "text"
	FieldNumber    FieldType = "number"
	FieldRadio     FieldType = "radio"
	FieldCheckbox  FieldType = "checkbox"
	FieldDropdown  FieldType = "dropdown"
)

// FieldOption is one selectable value of a radio or dropdown field.
type FieldOption struct {
	Value string `json:"value"`
}

// FieldMeta carries the type-specific configuration of a field. It is stored
// as a JSON blob; which keys are meaningful depends on the field type.
type FieldMeta struct {
	Label       string        `json:"label,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
	Required    bool          `json:"required,omitempty"`
	ReadOnly    bool          `json:"read_only,omitempty"`
	Default     string        `json:"default,omitempty"`
	MinVal      *float64      `json:"min,omitempty"`
	MaxVal      *float64      `json:"max,omitempty"`
	Options     []FieldOption `json:"options,omitempty"`
}

// OptionValues returns the option values in declaration order.
func (m FieldMeta) OptionValues() []string {
	out := make([]string, 0, len(m.Options))
	for _, o := range m.Options {
		out = append(out, o.Value)
	}
	return out
}

// HasOption reports whether v is a member of the options set.
func (m FieldMeta) HasOption(v string) bool {
	for _, o := range m.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// Field is a positioned, typed placeholder on a document bound to exactly one
// recipient. A field is either inserted (has a committed value) or not.
type Field struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EnvelopeID  uint `gorm:"index;not null" json:"envelope_id"`
	RecipientID uint `gorm:"index;not null" json:"recipient_id"`

	Type FieldType `gorm:"size:20;not null" json:"type"`

	Page int     `gorm:"default:1" json:"page"`
	PosX float64 `json:"pos_x"`
	PosY float64 `json:"pos_y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`

	Meta FieldMeta `gorm:"serializer:json" json:"meta"`

	Inserted bool `gorm:"default:false" json:"inserted"`

	Value *FieldValue `gorm:"foreignKey:FieldID" json:"value,omitempty"`
}

// FieldValue is the committed value for a field. It is written whole in the
// same transaction that flips Field.Inserted, and is never overwritten.
type FieldValue struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	FieldID uint `gorm:"uniqueIndex;not null" json:"field_id"`

	Value string `gorm:"type:text;not null" json:"value"`

	// SignedName is the signer's resolved display name; set for signature
	// and initials fields only.
	SignedName string `gorm:"size:255" json:"signed_name,omitempty"`

	InsertedAt time.Time `gorm:"not null" json:"inserted_at"`
}
