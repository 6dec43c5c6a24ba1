package handlers

import (
	"net/http"

	"github.com/diewo77/go-esign/httpx"
	"github.com/diewo77/go-esign/internal/models"
	"github.com/diewo77/go-esign/internal/signing"
)

// SigningHandler exposes the token-authorized recipient surface. No session
// is involved: possession of the opaque signing token is the credential, and
// the engine decides everything else.
type SigningHandler struct {
	Engine *signing.Engine
}

func NewSigningHandler(eng *signing.Engine) *SigningHandler { return &SigningHandler{Engine: eng} }

func token(r *http.Request) string { return r.URL.Query().Get("token") }

// View: GET /sign/view?token= — the signing view. Opening it flips the
// recipient's read status (first open only; never reverts).
func (h *SigningHandler) View(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, "GET")
		return
	}
	t := token(r)
	env, rec, err := h.Engine.EnvelopeByToken(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Engine.MarkRecipientRead(r.Context(), t); err != nil {
		writeError(w, err)
		return
	}
	decision, err := h.Engine.ResolveTurn(r.Context(), env.ID, t)
	if err != nil {
		writeError(w, err)
		return
	}
	fields := fieldsFor(env.Fields, rec.ID)
	if signing.RoleCapability(rec.Role).CanActOnBehalf {
		// Assistants see every field they might fill in for others.
		fields = env.Fields
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"envelope": map[string]any{"id": env.ID, "title": env.Title, "status": env.Status, "order_mode": env.OrderMode},
		"recipient": map[string]any{
			"id": rec.ID, "role": rec.Role, "name": rec.Name, "email": rec.Email,
			"signing_status": rec.SigningStatus,
		},
		"fields": fields,
		"turn":   decision,
	})
}

// Turn: GET /sign/turn?token=
func (h *SigningHandler) Turn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.MethodNotAllowed(w, "GET")
		return
	}
	t := token(r)
	_, rec, err := h.Engine.EnvelopeByToken(r.Context(), t)
	if err != nil {
		writeError(w, err)
		return
	}
	decision, err := h.Engine.ResolveTurn(r.Context(), rec.EnvelopeID, t)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, decision)
}

// Read: POST /sign/read
func (h *SigningHandler) Read(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Engine.MarkRecipientRead(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Field: POST /sign/field — validate and commit one field value.
func (h *SigningHandler) Field(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		Token      string `json:"token"`
		FieldID    uint   `json:"field_id"`
		Value      string `json:"value"`
		SignedName string `json:"signed_name"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	fv, err := h.Engine.SubmitFieldValue(r.Context(), req.Token, req.FieldID, signing.Input{Value: req.Value, SignedName: req.SignedName})
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, fv)
}

// Complete: POST /sign/complete — the recipient finishes their signing
// session; may complete the envelope.
func (h *SigningHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Engine.CompleteSigning(r.Context(), req.Token); err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Reject: POST /sign/reject — decline to sign. Terminal for the recipient
// and short-circuits the envelope.
func (h *SigningHandler) Reject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.MethodNotAllowed(w, "POST")
		return
	}
	var req struct {
		Token  string `json:"token"`
		Reason string `json:"reason"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.Engine.RejectSigning(r.Context(), req.Token, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fieldsFor filters an envelope's fields down to one recipient.
func fieldsFor(fields []models.Field, recipientID uint) []models.Field {
	out := []models.Field{}
	for _, f := range fields {
		if f.RecipientID == recipientID {
			out = append(out, f)
		}
	}
	return out
}
