package notification

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Type represents notification type
type Type string

const (
	TypeFollow         Type = "follow"         // Someone started following you
	TypeFollowRequest  Type = "followRequest"  // Someone requested to follow you
	TypeFollowAccepted Type = "followAccepted" // Your follow request was accepted
	TypeFriendRequest  Type = "friendRequest"  // Someone sent you a friend request
	TypeFriendAccepted Type = "friendAccepted" // Your friend request was accepted
)

// Notification represents an in-app notification record
type Notification struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	UserID    uuid.UUID    `db:"user_id" json:"user_id"`
	Type      Type         `db:"type" json:"type"`
	ActorID   uuid.UUID    `db:"actor_id" json:"actor_id"`
	IsRead    bool         `db:"is_read" json:"is_read"`
	ReadAt    sql.NullTime `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// ValidType reports whether t is one of the relationship event types.
func ValidType(t Type) bool {
	switch t {
	case TypeFollow, TypeFollowRequest, TypeFollowAccepted, TypeFriendRequest, TypeFriendAccepted:
		return true
	}
	return false
}
