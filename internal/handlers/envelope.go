package handlers

import (
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/go-esign/auth"
	"github.com/diewo77/go-esign/httpx"
	"github.com/diewo77/go-esign/internal/models"
	"github.com/diewo77/go-esign/internal/services"
	"github.com/diewo77/go-esign/internal/signing"
)

// EnvelopeHandler exposes the sender-side envelope surface. All routes are
// behind auth middleware; userID comes from the session context.
type EnvelopeHandler struct {
	DB     *gorm.DB
	Svc    *services.EnvelopeService
	Engine *signing.Engine
}

func NewEnvelopeHandler(db *gorm.DB, svc *services.EnvelopeService, eng *signing.Engine) *EnvelopeHandler {
	return &EnvelopeHandler{DB: db, Svc: svc, Engine: eng}
}

func userID(r *http.Request, w http.ResponseWriter) (uint, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	}
	return uid, ok
}

func queryID(r *http.Request, key string) (uint, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return uint(n), true
}

// Create: POST /envelopes
func (h *EnvelopeHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r, w)
	if !ok {
		return
	}
	var req struct {
		Title     string                  `json:"title"`
		OrderMode models.SigningOrderMode `json:"order_mode"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	env, err := h.Svc.CreateDraft(r.Context(), uid, req.Title, req.OrderMode)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, env)
}

// List: GET /envelopes
func (h *EnvelopeHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r, w)
	if !ok {
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	envs, total, err := h.Svc.List(r.Context(), uid, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": envs, "total": total, "limit": limit, "offset": offset})
}

// Get: GET /envelopes/get?id=
func (h *EnvelopeHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r, w)
	if !ok {
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	env, err := h.Svc.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, env)
}

// AddRecipient: POST /envelopes/recipients
func (h *EnvelopeHandler) AddRecipient(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r, w)
	if !ok {
		return
	}
	var req struct {
		EnvelopeID   uint                 `json:"envelope_id"`
		Role         models.RecipientRole `json:"role"`
		Email        string               `json:"email"`
		Name         string               `json:"name"`
		SigningOrder *int                 `json:"signing_order"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	rec, err := h.Svc.AddRecipient(r.Context(), uid, req.EnvelopeID, req.Role, req.Email, req.Name, req.SigningOrder)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

// AddField: POST /envelopes/fields
func (h *EnvelopeHandler) AddField(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r, w)
	if !ok {
		return
	}
	var req struct {
		EnvelopeID  uint             `json:"envelope_id"`
		RecipientID uint             `json:"recipient_id"`
		Type        models.FieldType `json:"type"`
		Page        int              `json:"page"`
		PosX        float64          `json:"pos_x"`
		PosY        float64          `json:"pos_y"`
		W           float64          `json:"w"`
		H           float64          `json:"h"`
		Meta        models.FieldMeta `json:"meta"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	field := models.Field{
		RecipientID: req.RecipientID,
		Type:        req.Type,
		Page:        req.Page,
		PosX:        req.PosX,
		PosY:        req.PosY,
		W:           req.W,
		H:           req.H,
		Meta:        req.Meta,
	}
	created, err := h.Svc.AddField(r.Context(), uid, req.EnvelopeID, field)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

// Send: POST /envelopes/send?id=
func (h *EnvelopeHandler) Send(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r, w)
	if !ok {
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	env, err := h.Svc.Send(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": env.ID, "status": env.Status})
}

// CopyLink: POST /envelopes/copy-link
func (h *EnvelopeHandler) CopyLink(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r, w)
	if !ok {
		return
	}
	var req struct {
		EnvelopeID  uint `json:"envelope_id"`
		RecipientID uint `json:"recipient_id"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	token, err := h.Svc.CopyLink(r.Context(), uid, req.EnvelopeID, req.RecipientID)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": token})
}

// Completion: GET /envelopes/completion?id=
func (h *EnvelopeHandler) Completion(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r, w)
	if !ok {
		return
	}
	id, ok := queryID(r, "id")
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	// Ownership gate first; completion state itself is owner-agnostic.
	if _, err := h.Svc.Get(r.Context(), uid, id); err != nil {
		writeError(w, err)
		return
	}
	state, err := h.Engine.EnvelopeCompletionState(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}
