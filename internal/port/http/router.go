package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/revival-automotive/account-service/internal/session"
)

// NewRouter wires the account endpoints onto a chi mux.
func NewRouter(h *AccountHandler, tokens *session.TokenStore) *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	})

	// Public auth routes
	mux.Post("/api/auth/register", h.Register)
	mux.Post("/api/auth/register/verify", h.VerifyRegistration)
	mux.Post("/api/auth/register/back", h.BackToDetails)
	mux.Post("/api/auth/register/resend", h.ResendCode)
	mux.Post("/api/auth/login", h.Login)
	mux.Post("/api/auth/federated", h.FederatedSignIn)

	// Protected routes (require a live session token)
	mux.Group(func(authRouter chi.Router) {
		authRouter.Use(SessionAuth(tokens))

		authRouter.Get("/api/auth/session", h.Session)
		authRouter.Post("/api/auth/logout", h.Logout)
		authRouter.Get("/api/user/profile", h.GetProfile)
		authRouter.Put("/api/user/profile", h.UpdateProfile)
		authRouter.Post("/api/user/profile/complete", h.CompleteProfile)
	})

	return mux
}
