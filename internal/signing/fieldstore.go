package signing

import (
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-esign/internal/models"
	"github.com/diewo77/go-esign/validation"
)

// Input is the raw value a recipient submits for one field.
type Input struct {
	Value string `json:"value"`
	// SignedName overrides the resolved display name on signature and
	// initials fields. Defaults to the owning recipient's name.
	SignedName string `json:"signed_name,omitempty"`
}

const dateLayout = "2006-01-02"

// ValidateFieldConfig checks type-specific metadata at configuration time,
// before the envelope is sent. Violations here are sender mistakes, reported
// with the specific rule so the envelope editor can point at it.
func ValidateFieldConfig(t models.FieldType, meta models.FieldMeta) error {
	switch t {
	case models.FieldDropdown:
		if meta.ReadOnly && meta.Required {
			return invalid("read_only_required", "a field cannot be both read-only and required")
		}
		if len(meta.Options) == 0 {
			if meta.ReadOnly {
				return invalid("read_only_needs_option", "a read-only dropdown needs at least one option")
			}
			return invalid("options_empty", "a dropdown needs at least one option")
		}
		if err := checkOptions(meta); err != nil {
			return err
		}
		if meta.Default != "" && !meta.HasOption(meta.Default) {
			return invalid("default_not_an_option", "the default value must be one of the available options")
		}
		return nil
	case models.FieldRadio:
		if len(meta.Options) == 0 {
			return invalid("options_empty", "a radio group needs at least one option")
		}
		if err := checkOptions(meta); err != nil {
			return err
		}
		if meta.Default != "" && !meta.HasOption(meta.Default) {
			return invalid("default_not_an_option", "the default value must be one of the available options")
		}
		return nil
	case models.FieldNumber:
		if meta.MinVal != nil && meta.MaxVal != nil && *meta.MinVal > *meta.MaxVal {
			return invalid("min_above_max", "the minimum cannot exceed the maximum")
		}
		if meta.Default != "" {
			if _, err := strconv.ParseFloat(meta.Default, 64); err != nil {
				return invalid("default_not_numeric", "the default value must be a number")
			}
		}
		return nil
	case models.FieldSignature, models.FieldInitials, models.FieldName,
		models.FieldEmail, models.FieldDate, models.FieldText, models.FieldCheckbox:
		return nil
	default:
		return invalid("unknown_field_type", "unknown field type")
	}
}

func checkOptions(meta models.FieldMeta) *Error {
	seen := map[string]bool{}
	for _, o := range meta.Options {
		if o.Value == "" {
			return invalid("option_empty", "options cannot be empty")
		}
		if seen[o.Value] {
			return invalid("option_duplicate", "options must be unique")
		}
		seen[o.Value] = true
	}
	return nil
}

// resolveValue validates in against the field's type contract and returns the
// value to commit. The switch is exhaustive over models.FieldType; a new
// field kind must be handled here before it can be signed.
func resolveValue(field models.Field, owner models.Recipient, in Input) (value, signedName string, err *Error) {
	meta := field.Meta
	v := strings.TrimSpace(in.Value)

	switch field.Type {
	case models.FieldText:
		if v == "" && meta.Default != "" {
			v = meta.Default
		}
		if v == "" && meta.Required {
			return "", "", invalid("required", "this field is required")
		}
		return v, "", nil

	case models.FieldNumber:
		if v == "" && meta.Default != "" {
			v = meta.Default
		}
		if v == "" {
			if meta.Required {
				return "", "", invalid("required", "this field is required")
			}
			return "", "", nil
		}
		n, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return "", "", invalid("not_numeric", "the value must be a number")
		}
		if meta.MinVal != nil && n < *meta.MinVal {
			return "", "", invalid("below_min", "the value is below the minimum")
		}
		if meta.MaxVal != nil && n > *meta.MaxVal {
			return "", "", invalid("above_max", "the value is above the maximum")
		}
		return v, "", nil

	case models.FieldEmail:
		if v == "" {
			v = owner.Email
		}
		if !validation.IsEmail(v) {
			return "", "", invalid("invalid_email", "the value must be a valid email address")
		}
		return v, "", nil

	case models.FieldName:
		if v == "" {
			v = strings.TrimSpace(owner.Name)
		}
		if v == "" {
			return "", "", invalid("required", "a name is required")
		}
		return v, "", nil

	case models.FieldDate:
		if v == "" {
			return time.Now().Format(dateLayout), "", nil
		}
		if _, perr := time.Parse(dateLayout, v); perr != nil {
			return "", "", invalid("invalid_date", "the date must use the YYYY-MM-DD format")
		}
		return v, "", nil

	case models.FieldInitials:
		if v == "" {
			return "", "", invalid("required", "initials are required")
		}
		return v, resolveSignedName(owner, in), nil

	case models.FieldSignature:
		// Payload is opaque: typed text, stroke data, or an image reference.
		if in.Value == "" {
			return "", "", invalid("required", "a signature is required")
		}
		return in.Value, resolveSignedName(owner, in), nil

	case models.FieldRadio, models.FieldDropdown:
		if v == "" && meta.Default != "" {
			v = meta.Default
		}
		if v == "" {
			if meta.Required {
				return "", "", invalid("required", "choosing an option is required")
			}
			return "", "", nil
		}
		if !meta.HasOption(v) {
			return "", "", invalid("not_an_option", "the value must be one of the available options")
		}
		return v, "", nil

	case models.FieldCheckbox:
		switch strings.ToLower(v) {
		case "":
			if meta.Required {
				return "", "", invalid("required", "this checkbox is required")
			}
			return "unchecked", "", nil
		case "checked", "true", "on", "1":
			return "checked", "", nil
		case "unchecked", "false", "off", "0":
			if meta.Required {
				return "", "", invalid("required", "this checkbox is required")
			}
			return "unchecked", "", nil
		default:
			return "", "", invalid("invalid_checkbox", "the value must be checked or unchecked")
		}

	default:
		return "", "", invalid("unknown_field_type", "unknown field type")
	}
}

func resolveSignedName(owner models.Recipient, in Input) string {
	if n := strings.TrimSpace(in.SignedName); n != "" {
		return n
	}
	return strings.TrimSpace(owner.Name)
}
