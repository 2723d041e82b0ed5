package graph

import (
	"time"

	"github.com/google/uuid"
)

// UserSummary carries the profile fields a listing entry is enriched with.
// Enrichment is the transport layer's concern; the engine only owns the
// user id and the edge timestamp.
type UserSummary struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// EntryResponse is one row of a paginated listing in API responses.
type EntryResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	Username    string    `json:"username,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
}

// PageResponse is the envelope of every paginated read.
type PageResponse struct {
	Items       []*EntryResponse `json:"items"`
	NextCursor  *string          `json:"next_cursor"`
	HasNextPage bool             `json:"has_next_page"`
}

// LookupRequest for POST /relationships/lookup
type LookupRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" validate:"required,min=1,max=100"`
}

// LookupResponse for POST /relationships/lookup
type LookupResponse struct {
	Relationships []*Relationship `json:"relationships"`
}

// NewPageResponse converts an engine page plus enrichment data into the
// API shape. Missing summaries degrade to bare ids.
func NewPageResponse(page *Page, summaries map[uuid.UUID]UserSummary) *PageResponse {
	resp := &PageResponse{
		Items:       make([]*EntryResponse, 0, len(page.Items)),
		HasNextPage: page.HasNextPage,
	}
	if page.NextCursor != "" {
		resp.NextCursor = &page.NextCursor
	}
	for _, item := range page.Items {
		entry := &EntryResponse{
			UserID:    item.UserID,
			CreatedAt: item.CreatedAt,
		}
		if summary, ok := summaries[item.UserID]; ok {
			entry.Username = summary.Username
			entry.DisplayName = summary.DisplayName
			entry.AvatarURL = summary.AvatarURL
		}
		resp.Items = append(resp.Items, entry)
	}
	return resp
}
