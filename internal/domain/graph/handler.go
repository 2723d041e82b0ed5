package graph

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tetherapp/tether-api/internal/middleware"
	"github.com/tetherapp/tether-api/internal/pkg/response"
	"github.com/tetherapp/tether-api/internal/pkg/validator"
)

// RelationshipService is the engine surface the transport binds to.
type RelationshipService interface {
	Follow(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)
	Unfollow(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)
	CancelFollowRequest(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)
	AcceptFollowRequest(ctx context.Context, actorID, requesterID uuid.UUID) (*Relationship, error)
	RejectFollowRequest(ctx context.Context, actorID, requesterID uuid.UUID) (*Relationship, error)
	RequestFriend(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)
	CancelFriendRequest(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)
	AcceptFriendRequest(ctx context.Context, actorID, senderID uuid.UUID) (*Relationship, error)
	RejectFriendRequest(ctx context.Context, actorID, senderID uuid.UUID) (*Relationship, error)
	RemoveFriend(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)
	Block(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)
	Unblock(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)
	Relationship(ctx context.Context, actorID, otherID uuid.UUID) (*Relationship, error)
	RelationshipBatch(ctx context.Context, actorID uuid.UUID, otherIDs []uuid.UUID) ([]*Relationship, error)
	Stats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	Followers(ctx context.Context, subjectID uuid.UUID, cursor string, pageSize int) (*Page, error)
	Following(ctx context.Context, subjectID uuid.UUID, cursor string, pageSize int) (*Page, error)
	Friends(ctx context.Context, subjectID uuid.UUID, cursor string, pageSize int) (*Page, error)
	FollowRequests(ctx context.Context, recipientID uuid.UUID, cursor string, pageSize int) (*Page, error)
	FriendRequests(ctx context.Context, recipientID uuid.UUID, cursor string, pageSize int) (*Page, error)
	Blocked(ctx context.Context, actorID uuid.UUID, cursor string, pageSize int) (*Page, error)
}

// ProfileFetcher enriches listing entries with profile summaries. A
// failure here degrades entries to bare ids, it never fails the page.
type ProfileFetcher interface {
	GetSummaries(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]UserSummary, error)
}

// Handler handles relationship HTTP requests
type Handler struct {
	service  RelationshipService
	profiles ProfileFetcher
}

// NewHandler creates relationship handler
func NewHandler(service RelationshipService, profiles ProfileFetcher) *Handler {
	return &Handler{service: service, profiles: profiles}
}

// respondError translates the engine's error taxonomy into HTTP codes.
// Infrastructure failures collapse into a single retryable class so
// storage details never leak to callers.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrInvalidCursor):
		response.BadRequest(w, "Invalid relationship operation")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "Relationship or user not found")
	case errors.Is(err, ErrBlocked):
		response.Error(w, http.StatusForbidden, "BLOCKED", "This action is not available")
	case errors.Is(err, ErrConflict):
		response.Conflict(w, "Relationship state conflict")
	default:
		response.Error(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Temporary failure, please try again")
	}
}

func targetParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// mutate runs one service mutation against the {id} path param and writes
// the authoritative relationship state back.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error)) {
	targetID, ok := targetParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	actorID := middleware.GetUserID(r.Context())
	rel, err := op(r.Context(), actorID, targetID)
	if err != nil {
		respondError(w, err)
		return
	}
	response.OK(w, rel)
}

// Follow handles POST /users/{id}/follow
func (h *Handler) Follow(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Follow)
}

// Unfollow handles DELETE /users/{id}/follow
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Unfollow)
}

// CancelFollowRequest handles DELETE /users/{id}/follow-request
func (h *Handler) CancelFollowRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.CancelFollowRequest)
}

// AcceptFollowRequest handles POST /follow-requests/{id}/accept
func (h *Handler) AcceptFollowRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.AcceptFollowRequest)
}

// RejectFollowRequest handles DELETE /follow-requests/{id}
func (h *Handler) RejectFollowRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.RejectFollowRequest)
}

// RequestFriend handles POST /users/{id}/friend-request
func (h *Handler) RequestFriend(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.RequestFriend)
}

// CancelFriendRequest handles DELETE /users/{id}/friend-request
func (h *Handler) CancelFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.CancelFriendRequest)
}

// AcceptFriendRequest handles POST /friend-requests/{id}/accept
func (h *Handler) AcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.AcceptFriendRequest)
}

// RejectFriendRequest handles DELETE /friend-requests/{id}
func (h *Handler) RejectFriendRequest(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.RejectFriendRequest)
}

// RemoveFriend handles DELETE /users/{id}/friend
func (h *Handler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.RemoveFriend)
}

// Block handles POST /users/{id}/block
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Block)
}

// Unblock handles DELETE /users/{id}/block
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Unblock)
}

// GetRelationship handles GET /users/{id}/relationship
func (h *Handler) GetRelationship(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.service.Relationship)
}

// GetStats handles GET /users/{id}/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := targetParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	stats, err := h.service.Stats(r.Context(), subjectID)
	if err != nil {
		respondError(w, err)
		return
	}
	response.OK(w, stats)
}

// Lookup handles POST /relationships/lookup
func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	actorID := middleware.GetUserID(r.Context())
	rels, err := h.service.RelationshipBatch(r.Context(), actorID, req.UserIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	response.OK(w, &LookupResponse{Relationships: rels})
}

func pageParams(r *http.Request) (cursor string, pageSize int) {
	cursor = r.URL.Query().Get("cursor")
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			pageSize = n
		}
	}
	return cursor, pageSize
}

// listPage runs one paginated read for the given subject and writes the
// enriched page.
func (h *Handler) listPage(w http.ResponseWriter, r *http.Request, subjectID uuid.UUID, read func(ctx context.Context, subjectID uuid.UUID, cursor string, pageSize int) (*Page, error)) {
	cursor, pageSize := pageParams(r)

	page, err := read(r.Context(), subjectID, cursor, pageSize)
	if err != nil {
		respondError(w, err)
		return
	}

	response.OK(w, NewPageResponse(page, h.fetchSummaries(r.Context(), page)))
}

func (h *Handler) fetchSummaries(ctx context.Context, page *Page) map[uuid.UUID]UserSummary {
	if h.profiles == nil || len(page.Items) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, item := range page.Items {
		ids = append(ids, item.UserID)
	}
	summaries, err := h.profiles.GetSummaries(ctx, ids)
	if err != nil {
		// Fall back to bare ids
		return nil
	}
	return summaries
}

// ListFollowers handles GET /users/{id}/followers
func (h *Handler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := targetParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	h.listPage(w, r, subjectID, h.service.Followers)
}

// ListFollowing handles GET /users/{id}/following
func (h *Handler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := targetParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	h.listPage(w, r, subjectID, h.service.Following)
}

// ListFriends handles GET /users/{id}/friends
func (h *Handler) ListFriends(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := targetParam(r)
	if !ok {
		response.BadRequest(w, "Invalid user ID")
		return
	}
	h.listPage(w, r, subjectID, h.service.Friends)
}

// ListFollowRequests handles GET /users/me/follow-requests
func (h *Handler) ListFollowRequests(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, middleware.GetUserID(r.Context()), h.service.FollowRequests)
}

// ListFriendRequests handles GET /users/me/friend-requests
func (h *Handler) ListFriendRequests(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, middleware.GetUserID(r.Context()), h.service.FriendRequests)
}

// ListBlocked handles GET /users/me/blocked
func (h *Handler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	h.listPage(w, r, middleware.GetUserID(r.Context()), h.service.Blocked)
}
