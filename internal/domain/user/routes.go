package user

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register attaches the user directory routes to the API router.
func (h *Handler) Register(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/users/me", h.GetMe)
		r.Patch("/users/me/privacy", h.UpdatePrivacy)
	})
}
