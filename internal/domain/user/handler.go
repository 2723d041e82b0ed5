package user

import (
	"errors"
	"net/http"

	"github.com/tetherapp/tether-api/internal/middleware"
	"github.com/tetherapp/tether-api/internal/pkg/response"
	"github.com/tetherapp/tether-api/internal/pkg/validator"
)

// UpdatePrivacyRequest for PATCH /users/me/privacy
type UpdatePrivacyRequest struct {
	IsPrivate *bool `json:"is_private" validate:"required"`
}

// Handler handles user directory HTTP requests
type Handler struct {
	repo Repository
}

// NewHandler creates user directory handler
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GetMe handles GET /users/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	u, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, u)
}

// UpdatePrivacy handles PATCH /users/me/privacy. Flipping to private only
// affects future follow attempts; existing followers keep their edges.
func (h *Handler) UpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	var req UpdatePrivacyRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.repo.SetPrivacy(r.Context(), userID, *req.IsPrivate); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]bool{"is_private": *req.IsPrivate})
}
