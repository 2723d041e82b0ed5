package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	// DefaultPageSize applies when the caller passes no or a non-positive
	// page size.
	DefaultPageSize = 20
	// MaxPageSize bounds a single page regardless of caller input.
	MaxPageSize = 100
)

// user_stats columns adjusted by the primitives.
const (
	statFollowers      = "follower_count"
	statFollowing      = "following_count"
	statFriends        = "friend_count"
	statFollowRequests = "follow_request_count"
	statFriendRequests = "friend_request_count"
)

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the sqlx-backed relationship repository.
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, mapStoreError("begin", err)
	}
	return tx, nil
}

// bumpStat upserts a single user_stats counter. The column name comes from
// the stat* constants only, never from caller input.
func (r *repository) bumpStat(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, column string, delta int) error {
	query := fmt.Sprintf(`
		INSERT INTO user_stats (user_id, %[1]s, updated_at)
		VALUES ($1, GREATEST($2, 0), now())
		ON CONFLICT (user_id) DO UPDATE
		SET %[1]s = GREATEST(user_stats.%[1]s + $2, 0), updated_at = now()
	`, column)
	if _, err := tx.ExecContext(ctx, query, userID, delta); err != nil {
		return mapStoreError("bump "+column, err)
	}
	return nil
}

func existsQuery(ctx context.Context, tx *sqlx.Tx, op, query string, args ...interface{}) (bool, error) {
	var exists bool
	if err := tx.GetContext(ctx, &exists, query, args...); err != nil {
		return false, mapStoreError(op, err)
	}
	return exists, nil
}

// ---------- Follow edges ----------

func (r *repository) CreateFollowEdge(ctx context.Context, tx *sqlx.Tx, followerID, followeeID uuid.UUID) (*FollowEdge, error) {
	edge := &FollowEdge{
		ID:         uuid.New(),
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO follow_edges (id, follower_id, followee_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, edge.ID, edge.FollowerID, edge.FolloweeID, edge.CreatedAt)
	if err != nil {
		return nil, mapStoreError("create follow edge", err)
	}

	if err := r.bumpStat(ctx, tx, followerID, statFollowing, 1); err != nil {
		return nil, err
	}
	if err := r.bumpStat(ctx, tx, followeeID, statFollowers, 1); err != nil {
		return nil, err
	}
	return edge, nil
}

func (r *repository) RemoveFollowEdge(ctx context.Context, tx *sqlx.Tx, followerID, followeeID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM follow_edges WHERE follower_id = $1 AND followee_id = $2
	`, followerID, followeeID)
	if err != nil {
		return false, mapStoreError("remove follow edge", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}

	if err := r.bumpStat(ctx, tx, followerID, statFollowing, -1); err != nil {
		return false, err
	}
	if err := r.bumpStat(ctx, tx, followeeID, statFollowers, -1); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) FollowEdgeExists(ctx context.Context, tx *sqlx.Tx, followerID, followeeID uuid.UUID) (bool, error) {
	return existsQuery(ctx, tx, "follow edge exists",
		`SELECT EXISTS(SELECT 1 FROM follow_edges WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID)
}

// ---------- Follow requests ----------

func (r *repository) CreateFollowRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (*FollowRequest, error) {
	req := &FollowRequest{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO follow_requests (id, sender_id, recipient_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, req.ID, req.SenderID, req.RecipientID, req.CreatedAt)
	if err != nil {
		return nil, mapStoreError("create follow request", err)
	}

	if err := r.bumpStat(ctx, tx, recipientID, statFollowRequests, 1); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *repository) DeleteFollowRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM follow_requests WHERE sender_id = $1 AND recipient_id = $2
	`, senderID, recipientID)
	if err != nil {
		return false, mapStoreError("delete follow request", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}

	if err := r.bumpStat(ctx, tx, recipientID, statFollowRequests, -1); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) FollowRequestExists(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (bool, error) {
	return existsQuery(ctx, tx, "follow request exists",
		`SELECT EXISTS(SELECT 1 FROM follow_requests WHERE sender_id = $1 AND recipient_id = $2)`,
		senderID, recipientID)
}

func (r *repository) AcceptFollowRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (*FollowEdge, error) {
	deleted, err := r.DeleteFollowRequest(ctx, tx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, fmt.Errorf("accept follow request: %w", ErrNotFound)
	}
	return r.CreateFollowEdge(ctx, tx, senderID, recipientID)
}

// ---------- Friend edges ----------

func (r *repository) CreateFriendEdge(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (*FriendEdge, error) {
	a, b := CanonicalPair(userID, otherID)
	edge := &FriendEdge{
		ID:        uuid.New(),
		UserAID:   a,
		UserBID:   b,
		CreatedAt: time.Now().UTC(),
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO friend_edges (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, edge.ID, edge.UserAID, edge.UserBID, edge.CreatedAt)
	if err != nil {
		return nil, mapStoreError("create friend edge", err)
	}

	if err := r.bumpStat(ctx, tx, a, statFriends, 1); err != nil {
		return nil, err
	}
	if err := r.bumpStat(ctx, tx, b, statFriends, 1); err != nil {
		return nil, err
	}
	return edge, nil
}

func (r *repository) RemoveFriendEdge(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (bool, error) {
	a, b := CanonicalPair(userID, otherID)
	res, err := tx.ExecContext(ctx, `
		DELETE FROM friend_edges WHERE user_a_id = $1 AND user_b_id = $2
	`, a, b)
	if err != nil {
		return false, mapStoreError("remove friend edge", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}

	if err := r.bumpStat(ctx, tx, a, statFriends, -1); err != nil {
		return false, err
	}
	if err := r.bumpStat(ctx, tx, b, statFriends, -1); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) FriendEdgeExists(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (bool, error) {
	a, b := CanonicalPair(userID, otherID)
	return existsQuery(ctx, tx, "friend edge exists",
		`SELECT EXISTS(SELECT 1 FROM friend_edges WHERE user_a_id = $1 AND user_b_id = $2)`,
		a, b)
}

// ---------- Friend requests ----------

func (r *repository) CreateFriendRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (*FriendRequest, error) {
	req := &FriendRequest{
		ID:          uuid.New(),
		SenderID:    senderID,
		RecipientID: recipientID,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO friend_requests (id, sender_id, recipient_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, req.ID, req.SenderID, req.RecipientID, req.CreatedAt)
	if err != nil {
		return nil, mapStoreError("create friend request", err)
	}

	if err := r.bumpStat(ctx, tx, recipientID, statFriendRequests, 1); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *repository) DeleteFriendRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM friend_requests WHERE sender_id = $1 AND recipient_id = $2
	`, senderID, recipientID)
	if err != nil {
		return false, mapStoreError("delete friend request", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return false, nil
	}

	if err := r.bumpStat(ctx, tx, recipientID, statFriendRequests, -1); err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) FriendRequestExists(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (bool, error) {
	return existsQuery(ctx, tx, "friend request exists",
		`SELECT EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = $1 AND recipient_id = $2)`,
		senderID, recipientID)
}

func (r *repository) AcceptFriendRequest(ctx context.Context, tx *sqlx.Tx, senderID, recipientID uuid.UUID) (*FriendEdge, error) {
	deleted, err := r.DeleteFriendRequest(ctx, tx, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, fmt.Errorf("accept friend request: %w", ErrNotFound)
	}
	// A reciprocal pending request resolves into the same friendship, so
	// it is consumed here too; otherwise it would outlive the edge.
	if _, err := r.DeleteFriendRequest(ctx, tx, recipientID, senderID); err != nil {
		return nil, err
	}
	return r.CreateFriendEdge(ctx, tx, senderID, recipientID)
}

// ---------- Blocks ----------

// CreateBlock inserts the block row and tears down every relationship
// between the pair in either direction, all inside the caller's
// transaction. Counters are adjusted through the same delete primitives
// that maintain them on the normal paths.
func (r *repository) CreateBlock(ctx context.Context, tx *sqlx.Tx, blockerID, blockedID uuid.UUID) (*Block, error) {
	block := &Block{
		ID:        uuid.New(),
		BlockerID: blockerID,
		BlockedID: blockedID,
		CreatedAt: time.Now().UTC(),
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO user_blocks (id, blocker_id, blocked_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, block.ID, block.BlockerID, block.BlockedID, block.CreatedAt)
	if err != nil {
		return nil, mapStoreError("create block", err)
	}

	if _, err := r.RemoveFollowEdge(ctx, tx, blockerID, blockedID); err != nil {
		return nil, err
	}
	if _, err := r.RemoveFollowEdge(ctx, tx, blockedID, blockerID); err != nil {
		return nil, err
	}
	if _, err := r.DeleteFollowRequest(ctx, tx, blockerID, blockedID); err != nil {
		return nil, err
	}
	if _, err := r.DeleteFollowRequest(ctx, tx, blockedID, blockerID); err != nil {
		return nil, err
	}
	if _, err := r.RemoveFriendEdge(ctx, tx, blockerID, blockedID); err != nil {
		return nil, err
	}
	if _, err := r.DeleteFriendRequest(ctx, tx, blockerID, blockedID); err != nil {
		return nil, err
	}
	if _, err := r.DeleteFriendRequest(ctx, tx, blockedID, blockerID); err != nil {
		return nil, err
	}

	return block, nil
}

func (r *repository) RemoveBlock(ctx context.Context, tx *sqlx.Tx, blockerID, blockedID uuid.UUID) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2
	`, blockerID, blockedID)
	if err != nil {
		return false, mapStoreError("remove block", err)
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

func (r *repository) BlockedEither(ctx context.Context, tx *sqlx.Tx, userID, otherID uuid.UUID) (bool, error) {
	return existsQuery(ctx, tx, "block exists",
		`SELECT EXISTS(
			SELECT 1 FROM user_blocks
			WHERE (blocker_id = $1 AND blocked_id = $2)
			   OR (blocker_id = $2 AND blocked_id = $1)
		)`,
		userID, otherID)
}

// ---------- Reads ----------

func (r *repository) GetSnapshot(ctx context.Context, userID, otherID uuid.UUID) (*Snapshot, error) {
	a, b := CanonicalPair(userID, otherID)
	var snap Snapshot
	err := r.db.GetContext(ctx, &snap, `
		SELECT
			EXISTS(SELECT 1 FROM follow_edges WHERE follower_id = $1 AND followee_id = $2)    AS following,
			EXISTS(SELECT 1 FROM follow_edges WHERE follower_id = $2 AND followee_id = $1)    AS followed_by,
			EXISTS(SELECT 1 FROM follow_requests WHERE sender_id = $1 AND recipient_id = $2)  AS follow_request_out,
			EXISTS(SELECT 1 FROM follow_requests WHERE sender_id = $2 AND recipient_id = $1)  AS follow_request_in,
			EXISTS(SELECT 1 FROM friend_edges WHERE user_a_id = $3 AND user_b_id = $4)        AS friends,
			EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = $1 AND recipient_id = $2)  AS friend_request_out,
			EXISTS(SELECT 1 FROM friend_requests WHERE sender_id = $2 AND recipient_id = $1)  AS friend_request_in,
			EXISTS(SELECT 1 FROM user_blocks WHERE blocker_id = $1 AND blocked_id = $2)       AS blocked,
			EXISTS(SELECT 1 FROM user_blocks WHERE blocker_id = $2 AND blocked_id = $1)       AS blocked_by
	`, userID, otherID, a, b)
	if err != nil {
		return nil, mapStoreError("get snapshot", err)
	}
	return &snap, nil
}

func (r *repository) GetStats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	var stats Stats
	err := r.db.GetContext(ctx, &stats, `
		SELECT user_id, follower_count, following_count, friend_count,
		       follow_request_count, friend_request_count, updated_at
		FROM user_stats WHERE user_id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return &Stats{UserID: userID}, nil
	}
	if err != nil {
		return nil, mapStoreError("get stats", err)
	}
	return &stats, nil
}

// listing pairs a first-page query with its cursor-resumed variant. Both
// select (user_id, created_at); the cursor variant appends the keyset
// predicate as $2/$3 before the limit.
type listing struct {
	head string
	rest string
}

var (
	followersListing = listing{
		head: `
			SELECT follower_id AS user_id, created_at
			FROM follow_edges
			WHERE followee_id = $1
			ORDER BY created_at DESC, follower_id DESC
			LIMIT $2`,
		rest: `
			SELECT follower_id AS user_id, created_at
			FROM follow_edges
			WHERE followee_id = $1 AND (created_at, follower_id) < ($2, $3)
			ORDER BY created_at DESC, follower_id DESC
			LIMIT $4`,
	}
	followingListing = listing{
		head: `
			SELECT followee_id AS user_id, created_at
			FROM follow_edges
			WHERE follower_id = $1
			ORDER BY created_at DESC, followee_id DESC
			LIMIT $2`,
		rest: `
			SELECT followee_id AS user_id, created_at
			FROM follow_edges
			WHERE follower_id = $1 AND (created_at, followee_id) < ($2, $3)
			ORDER BY created_at DESC, followee_id DESC
			LIMIT $4`,
	}
	friendsListing = listing{
		head: `
			SELECT user_id, created_at FROM (
				SELECT CASE WHEN user_a_id = $1 THEN user_b_id ELSE user_a_id END AS user_id, created_at
				FROM friend_edges
				WHERE user_a_id = $1 OR user_b_id = $1
			) f
			ORDER BY created_at DESC, user_id DESC
			LIMIT $2`,
		rest: `
			SELECT user_id, created_at FROM (
				SELECT CASE WHEN user_a_id = $1 THEN user_b_id ELSE user_a_id END AS user_id, created_at
				FROM friend_edges
				WHERE user_a_id = $1 OR user_b_id = $1
			) f
			WHERE (created_at, user_id) < ($2, $3)
			ORDER BY created_at DESC, user_id DESC
			LIMIT $4`,
	}
	followRequestsListing = listing{
		head: `
			SELECT sender_id AS user_id, created_at
			FROM follow_requests
			WHERE recipient_id = $1
			ORDER BY created_at DESC, sender_id DESC
			LIMIT $2`,
		rest: `
			SELECT sender_id AS user_id, created_at
			FROM follow_requests
			WHERE recipient_id = $1 AND (created_at, sender_id) < ($2, $3)
			ORDER BY created_at DESC, sender_id DESC
			LIMIT $4`,
	}
	friendRequestsListing = listing{
		head: `
			SELECT sender_id AS user_id, created_at
			FROM friend_requests
			WHERE recipient_id = $1
			ORDER BY created_at DESC, sender_id DESC
			LIMIT $2`,
		rest: `
			SELECT sender_id AS user_id, created_at
			FROM friend_requests
			WHERE recipient_id = $1 AND (created_at, sender_id) < ($2, $3)
			ORDER BY created_at DESC, sender_id DESC
			LIMIT $4`,
	}
	blockedListing = listing{
		head: `
			SELECT blocked_id AS user_id, created_at
			FROM user_blocks
			WHERE blocker_id = $1
			ORDER BY created_at DESC, blocked_id DESC
			LIMIT $2`,
		rest: `
			SELECT blocked_id AS user_id, created_at
			FROM user_blocks
			WHERE blocker_id = $1 AND (created_at, blocked_id) < ($2, $3)
			ORDER BY created_at DESC, blocked_id DESC
			LIMIT $4`,
	}
)

// paginate runs a listing with a limit+1 overfetch so has_next_page comes
// out of the same round trip.
func (r *repository) paginate(ctx context.Context, l listing, subjectID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	var (
		items []Entry
		err   error
	)
	if cursor == nil {
		err = r.db.SelectContext(ctx, &items, l.head, subjectID, pageSize+1)
	} else {
		err = r.db.SelectContext(ctx, &items, l.rest, subjectID, cursor.CreatedAt, cursor.ID, pageSize+1)
	}
	if err != nil {
		return nil, mapStoreError("paginate", err)
	}

	page := &Page{Items: items}
	if len(items) > pageSize {
		page.Items = items[:pageSize]
		page.HasNextPage = true
	}
	if page.HasNextPage {
		last := page.Items[len(page.Items)-1]
		page.NextCursor = Cursor{CreatedAt: last.CreatedAt, ID: last.UserID}.Encode()
	}
	return page, nil
}

func (r *repository) PaginateFollowers(ctx context.Context, subjectID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error) {
	return r.paginate(ctx, followersListing, subjectID, cursor, pageSize)
}

func (r *repository) PaginateFollowing(ctx context.Context, subjectID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error) {
	return r.paginate(ctx, followingListing, subjectID, cursor, pageSize)
}

func (r *repository) PaginateFriends(ctx context.Context, subjectID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error) {
	return r.paginate(ctx, friendsListing, subjectID, cursor, pageSize)
}

func (r *repository) PaginateFollowRequests(ctx context.Context, recipientID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error) {
	return r.paginate(ctx, followRequestsListing, recipientID, cursor, pageSize)
}

func (r *repository) PaginateFriendRequests(ctx context.Context, recipientID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error) {
	return r.paginate(ctx, friendRequestsListing, recipientID, cursor, pageSize)
}

func (r *repository) PaginateBlocked(ctx context.Context, blockerID uuid.UUID, cursor *Cursor, pageSize int) (*Page, error) {
	return r.paginate(ctx, blockedListing, blockerID, cursor, pageSize)
}
