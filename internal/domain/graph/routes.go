package graph

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Register attaches the relationship routes to the API router.
func (h *Handler) Register(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		// All routes require authentication
		r.Use(authMiddleware)

		// Listings scoped to the authenticated user
		r.Get("/users/me/follow-requests", h.ListFollowRequests)
		r.Get("/users/me/friend-requests", h.ListFriendRequests)
		r.Get("/users/me/blocked", h.ListBlocked)

		// Follow operations
		r.Post("/users/{id}/follow", h.Follow)
		r.Delete("/users/{id}/follow", h.Unfollow)
		r.Delete("/users/{id}/follow-request", h.CancelFollowRequest)
		r.Post("/follow-requests/{id}/accept", h.AcceptFollowRequest)
		r.Delete("/follow-requests/{id}", h.RejectFollowRequest)

		// Friend operations
		r.Post("/users/{id}/friend-request", h.RequestFriend)
		r.Delete("/users/{id}/friend-request", h.CancelFriendRequest)
		r.Post("/friend-requests/{id}/accept", h.AcceptFriendRequest)
		r.Delete("/friend-requests/{id}", h.RejectFriendRequest)
		r.Delete("/users/{id}/friend", h.RemoveFriend)

		// Block/unblock operations
		r.Post("/users/{id}/block", h.Block)
		r.Delete("/users/{id}/block", h.Unblock)

		// Reads
		r.Get("/users/{id}/followers", h.ListFollowers)
		r.Get("/users/{id}/following", h.ListFollowing)
		r.Get("/users/{id}/friends", h.ListFriends)
		r.Get("/users/{id}/relationship", h.GetRelationship)
		r.Get("/users/{id}/stats", h.GetStats)
		r.Post("/relationships/lookup", h.Lookup)
	})
}
