package graph

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Snapshot collects every persisted relationship bit between two users in
// a single read, from the first user's point of view.
type Snapshot struct {
	Following        bool `db:"following"`
	FollowedBy       bool `db:"followed_by"`
	FollowRequestOut bool `db:"follow_request_out"`
	FollowRequestIn  bool `db:"follow_request_in"`
	Friends          bool `db:"friends"`
	FriendRequestOut bool `db:"friend_request_out"`
	FriendRequestIn  bool `db:"friend_request_in"`
	Blocked          bool `db:"blocked"`
	BlockedBy        bool `db:"blocked_by"`
}

// Repository provides the atomic primitives of the relationship store.
// Mutating primitives run inside a transaction supplied by the caller, so
// a service operation composed of several primitives gets exactly one
// commit/rollback unit. Paginated reads run on the pool.
type Repository interface {
	Begin(ctx context.Context) (*sqlx.Tx, error)

	// Follow edges. Create fails with ErrConflict if the edge already
	// exists and maintains following/follower counters. Remove is
	// idempotent and reports whether a row was actually deleted.
	CreateFollowEdge(ctx context.Context, tx *sqlx.Tx, followerID, followeeID uuid.UUID) (*FollowEdge, error)
	RemoveFollowEdge(ctx context.Context, tx *sqlx.Tx, followerID, followeeID uuid.UUID) (bool, error)
	FollowEdgeExists(ctx context.Context, tx *sqlx.Tx, followerID, followeeID uuid.UUID) (bool, error)

	// Follow requests. The request counter is maintained on the
	// recipient only. Accept deletes the request and creates the edge
	// in the same transaction, failing with ErrNotFound when nothing
	// is pending.
	CreateFollowRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (*FollowRequest, error)
	DeleteFollowRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (bool, error)
	FollowRequestExists(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (bool, error)
	AcceptFollowRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (*FollowEdge, error)

	// Friend equivalents. Edges are stored under canonical ordering so
	// one row serves both directions; callers pass ids in any order.
	CreateFriendEdge(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (*FriendEdge, error)
	RemoveFriendEdge(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (bool, error)
	FriendEdgeExists(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (bool, error)
	CreateFriendRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (*FriendRequest, error)
	DeleteFriendRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (bool, error)
	FriendRequestExists(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (bool, error)
	AcceptFriendRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (*FriendEdge, error)

	// Blocks. CreateBlock also deletes every follow/friend edge and
	// request between the pair in either direction, adjusting all
	// affected counters, within the caller's transaction. RemoveBlock
	// deletes the block row only.
	CreateBlock(ctx context.Context, tx *sqlx.Tx, blockerID, blockedID uuid.UUID) (*Block, error)
	RemoveBlock(ctx context.Context, tx *sqlx.Tx, blockerID, blockedID uuid.UUID) (bool, error)
	BlockedEither(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (bool, error)

	// Reads outside any transaction.
	GetSnapshot(ctx context.Context, userID, otherID uuid.UUID) (*Snapshot, error)
	GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error)
	PaginateFollowers(ctx context.Context, subjectID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error)
	PaginateFollowing(ctx context.Context, subjectID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error)
	PaginateFriends(ctx context.Context, subjectID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error)
	PaginateFollowRequests(ctx context.Context, recipientID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error)
	PaginateFriendRequests(ctx context.Context, recipientID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error)
	PaginateBlocked(ctx context.Context, blockerID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error)
}
