package graph

import (
	"time"

	"github.com/google/uuid"
)

// State represents the relationship between an actor and another user,
// from the actor's point of view.
type State string

const (
	StateNone                  State = "none"
	StateFollowing             State = "following"
	StateFollowRequested       State = "follow_requested"
	StateFollowRequestReceived State = "follow_request_received"
	StateFriends               State = "friends"
	StateFriendRequested       State = "friend_requested"
	StateFriendRequestReceived State = "friend_request_received"
	StateBlocked               State = "blocked"    // actor blocked the other user
	StateBlockedBy             State = "blocked_by" // the other user blocked the actor
)

// FollowEdge represents an active directed follow (follower -> followee)
type FollowEdge struct {
	ID         uuid.UUID `db:"id" json:"id"`
	FollowerID uuid.UUID `db:"follower_id" json:"follower_id"`
	FolloweeID uuid.UUID `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// FollowRequest represents a pending follow toward a private account
type FollowRequest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SenderID    uuid.UUID `db:"sender_id" json:"sender_id"`
	RecipientID uuid.UUID `db:"recipient_id" json:"recipient_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FriendEdge represents an undirected friendship stored under canonical
// ordering: UserAID < UserBID by uuid string comparison, so a single row
// serves both directions.
type FriendEdge struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserAID   uuid.UUID `db:"user_a_id" json:"user_a_id"`
	UserBID   uuid.UUID `db:"user_b_id" json:"user_b_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FriendRequest represents a pending friendship proposal
type FriendRequest struct {
	ID          uuid.UUID `db:"id" json:"id"`
	SenderID    uuid.UUID `db:"sender_id" json:"sender_id"`
	RecipientID uuid.UUID `db:"recipient_id" json:"recipient_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Block represents a user-to-user block
type Block struct {
	ID        uuid.UUID `db:"id" json:"id"`
	BlockerID uuid.UUID `db:"blocker_id" json:"blocker_id"`
	BlockedID uuid.UUID `db:"blocked_id" json:"blocked_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Stats holds denormalized per-user relationship counters. After any
// committed mutation each counter equals the true cardinality of the
// corresponding edge/request set.
type Stats struct {
	UserID             uuid.UUID `db:"user_id" json:"user_id"`
	FollowerCount      int       `db:"follower_count" json:"follower_count"`
	FollowingCount     int       `db:"following_count" json:"following_count"`
	FriendCount        int       `db:"friend_count" json:"friend_count"`
	FollowRequestCount int       `db:"follow_request_count" json:"follow_request_count"`
	FriendRequestCount int       `db:"friend_request_count" json:"friend_request_count"`
	UpdatedAt          time.Time `db:"updated_at" json:"-"`
}

// Entry is one row of a paginated relationship listing. The counterpart
// user id plus the edge timestamp are owned by the engine; profile fields
// are filled in by the transport layer's enrichment.
type Entry struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Page is the result of a cursor-paginated read.
type Page struct {
	Items       []Entry
	NextCursor  string
	HasNextPage bool
}

// CanonicalPair orders two user ids so an undirected pair maps to exactly
// one row regardless of which side initiated.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() < b.String() {
		return a, b
	}
	return b, a
}
