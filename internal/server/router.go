package server

import (
	"context"
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/go-esign/auth"
	"github.com/diewo77/go-esign/httpx"
	"github.com/diewo77/go-esign/internal/handlers"
	"github.com/diewo77/go-esign/internal/models"
	"github.com/diewo77/go-esign/internal/services"
	"github.com/diewo77/go-esign/internal/signing"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, eng *signing.Engine, svc *services.EnvelopeService) http.Handler {
	mux := http.NewServeMux()

	// Configure a user verifier so RequireAuth can ensure the user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	//revive:enable:unused-parameter

	// Auth endpoints
	authHandler := handlers.NewAuthHandler(db)
	authHandler.Register(mux)

	// Sender-side envelope endpoints (session required)
	eh := handlers.NewEnvelopeHandler(db, svc, eng)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth.Middleware(auth.RequireAuth(h))
	}
	mux.Handle("/envelopes", protected(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			eh.List(w, r)
		case http.MethodPost:
			eh.Create(w, r)
		default:
			httpx.MethodNotAllowed(w, "GET,POST")
		}
	}))
	mux.Handle("/envelopes/get", protected(eh.Get))
	mux.Handle("/envelopes/recipients", protected(eh.AddRecipient))
	mux.Handle("/envelopes/fields", protected(eh.AddField))
	mux.Handle("/envelopes/send", protected(eh.Send))
	mux.Handle("/envelopes/copy-link", protected(eh.CopyLink))
	mux.Handle("/envelopes/completion", protected(eh.Completion))

	// Recipient signing endpoints (token-authorized, no session)
	sh := handlers.NewSigningHandler(eng)
	mux.HandleFunc("/sign/view", sh.View)
	mux.HandleFunc("/sign/turn", sh.Turn)
	mux.HandleFunc("/sign/read", sh.Read)
	mux.HandleFunc("/sign/field", sh.Field)
	mux.HandleFunc("/sign/complete", sh.Complete)
	mux.HandleFunc("/sign/reject", sh.Reject)

	return mux
}
