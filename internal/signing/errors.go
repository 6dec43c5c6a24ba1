package signing

import "errors"

// Kind classifies a workflow outcome. All kinds are recoverable and
// user-actionable; infrastructure failures are returned as plain errors and
// never mapped to a Kind.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation_failed"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
)

// Error is the typed workflow error returned by every public engine
// operation. Messages explain the cause to the end user without leaking
// internal identifiers.
type Error struct {
	Kind    Kind
	Message string
	// Rule names the specific violated rule for validation failures.
	Rule string
}

func (e *Error) Error() string {
	if e.Rule != "" {
		return string(e.Kind) + " (" + e.Rule + "): " + e.Message
	}
	return string(e.Kind) + ": " + e.Message
}

func notFound(msg string) *Error     { return &Error{Kind: KindNotFound, Message: msg} }
func forbidden(msg string) *Error    { return &Error{Kind: KindForbidden, Message: msg} }
func conflict(msg string) *Error     { return &Error{Kind: KindConflict, Message: msg} }
func invalidState(msg string) *Error { return &Error{Kind: KindInvalidState, Message: msg} }

func invalid(rule, msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Rule: rule}
}

// KindOf extracts the workflow kind from err. ok is false for infrastructure
// errors, which callers should treat as transient.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err is a workflow error of the given kind.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// NewError builds a workflow error. It exists for collaborators outside the
// engine (the sender-side envelope service) that share the taxonomy.
func NewError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// NewValidation builds a validation failure carrying the violated rule.
func NewValidation(rule, msg string) *Error { return invalid(rule, msg) }
