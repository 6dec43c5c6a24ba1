package handlers

import (
	"errors"
	"net/http"

	"github.com/diewo77/go-esign/httpx"
	"github.com/diewo77/go-esign/internal/signing"
)

// statusFor maps workflow error kinds to HTTP statuses.
func statusFor(k signing.Kind) int {
	switch k {
	case signing.KindNotFound:
		return http.StatusNotFound
	case signing.KindForbidden:
		return http.StatusForbidden
	case signing.KindValidation:
		return http.StatusBadRequest
	case signing.KindConflict, signing.KindInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a workflow error as typed JSON; anything else is an
// infrastructure failure and comes back as an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	var e *signing.Error
	if errors.As(err, &e) {
		details := map[string]string{"message": e.Message}
		if e.Rule != "" {
			details["rule"] = e.Rule
		}
		httpx.JSONError(w, statusFor(e.Kind), string(e.Kind), details)
		return
	}
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}
