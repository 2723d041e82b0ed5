package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// UserDirectory is the external identity/privacy collaborator. The engine
// never assumes profile data is co-located; it only needs these two bits.
type UserDirectory interface {
	Exists(ctx context.Context, userID uuid.UUID) (bool, error)
	IsPrivate(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Relationship is the consolidated, authoritative view between the actor
// and another user. Every mutation returns it so callers reconcile their
// caches from the response instead of patching optimistically.
type Relationship struct {
	UserID                uuid.UUID `json:"user_id"`
	FollowState           State     `json:"follow_state"` // none, following, follow_requested
	FriendState           State     `json:"friend_state"` // none, friends, friend_requested, friend_request_received
	FollowedBy            bool      `json:"followed_by"`
	IncomingFollowRequest bool      `json:"incoming_follow_request"`
	BlockState            State     `json:"block_state"` // none, blocked, blocked_by
}

// Service owns the business semantics of the relationship engine. It
// composes repository primitives inside a single transaction per logical
// operation and emits notification events only after commit.
type Service struct {
	repo    Repository
	users   UserDirectory
	emitter Emitter

	emitTimeout time.Duration
}

// NewService creates the relationship service.
func NewService(repo Repository, users UserDirectory, emitter Emitter) *Service {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	return &Service{
		repo:        repo,
		users:       users,
		emitter:     emitter,
		emitTimeout: 5 * time.Second,
	}
}

func validatePair(actorID, targetID uuid.UUID) error {
	if actorID == uuid.Nil || targetID == uuid.Nil {
		return fmt.Errorf("%w: missing user id", ErrInvalidOperation)
	}
	if actorID == targetID {
		return fmt.Errorf("%w: cannot target self", ErrInvalidOperation)
	}
	return nil
}

func (s *Service) requireTarget(ctx context.Context, targetID uuid.UUID) error {
	exists, err := s.users.Exists(ctx, targetID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !exists {
		return fmt.Errorf("target user: %w", ErrNotFound)
	}
	return nil
}

// inTx runs fn inside one transaction. Any error rolls the whole unit
// back, including partially applied counter updates.
func (s *Service) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapStoreError("commit", err)
	}
	return nil
}

// emit dispatches a notification event after the transaction has
// committed. The caller's context may already be done, so delivery runs
// detached with its own deadline.
func (s *Service) emit(eventType EventType, actorID, targetID uuid.UUID) {
	event := Event{
		Type:       eventType,
		ActorID:    actorID,
		TargetID:   targetID,
		OccurredAt: time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.emitTimeout)
		defer cancel()
		if err := s.emitter.Emit(ctx, event); err != nil {
			log.Error().
				Err(err).
				Str("event_type", string(event.Type)).
				Str("actor_id", event.ActorID.String()).
				Str("target_id", event.TargetID.String()).
				Msg("Relationship event emit failed")
		}
	}()
}

// ---------- Follow ----------

// Follow creates a follow edge toward a public target, or a follow request
// toward a private one. Repeating the call in the already-achieved state
// is a no-op success.
func (s *Service) Follow(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}

	private, err := s.users.IsPrivate(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var emitType EventType
	err = s.inTx(ctx, func(tx *sqlx.Tx) error {
		blocked, err := s.repo.BlockedEither(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlocked
		}

		following, err := s.repo.FollowEdgeExists(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		if following {
			return nil
		}

		if private {
			if _, err := s.repo.CreateFollowRequest(ctx, tx, actorID, targetID); err != nil {
				return err
			}
			emitType = EventFollowRequest
			return nil
		}

		// A request left over from when the target was private must not
		// survive the edge; deleting it also settles the request counter.
		if _, err := s.repo.DeleteFollowRequest(ctx, tx, actorID, targetID); err != nil {
			return err
		}
		if _, err := s.repo.CreateFollowEdge(ctx, tx, actorID, targetID); err != nil {
			return err
		}
		emitType = EventFollow
		return nil
	})
	// A concurrent call winning the insert race leaves the pair in the
	// desired state; the losing transaction's conflict is a success.
	if errors.Is(err, ErrConflict) {
		err = nil
		emitType = ""
	}
	if err != nil {
		return nil, err
	}

	if emitType != "" {
		s.emit(emitType, actorID, targetID)
	}
	return s.Relationship(ctx, actorID, targetID)
}

// Unfollow removes the follow edge if present. Absence is a no-op success.
func (s *Service) Unfollow(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.RemoveFollowEdge(ctx, tx, actorID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Relationship(ctx, actorID, targetID)
}

// CancelFollowRequest withdraws the actor's pending request toward the
// target. Absence is a no-op success.
func (s *Service) CancelFollowRequest(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.DeleteFollowRequest(ctx, tx, actorID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Relationship(ctx, actorID, targetID)
}

// AcceptFollowRequest converts the requester's pending request into a
// follow edge. A missing request is a real NotFound, not absorbed.
func (s *Service) AcceptFollowRequest(ctx context.Context, actorID, requesterID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, requesterID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, requesterID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		blocked, err := s.repo.BlockedEither(ctx, tx, actorID, requesterID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlocked
		}
		_, err = s.repo.AcceptFollowRequest(ctx, tx, requesterID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(EventFollowAccepted, actorID, requesterID)
	return s.Relationship(ctx, actorID, requesterID)
}

// RejectFollowRequest deletes an inbound request without creating an edge.
// Absence is a no-op success: the sender may have cancelled concurrently.
func (s *Service) RejectFollowRequest(ctx context.Context, actorID, requesterID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, requesterID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, requesterID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.DeleteFollowRequest(ctx, tx, requesterID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Relationship(ctx, actorID, requesterID)
}

// ---------- Friends ----------

// RequestFriend creates a pending friend request. Already friends or an
// already pending outbound request are no-op successes.
func (s *Service) RequestFriend(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}

	emit := false
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		blocked, err := s.repo.BlockedEither(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlocked
		}

		friends, err := s.repo.FriendEdgeExists(ctx, tx, actorID, targetID)
		if err != nil {
			return err
		}
		if friends {
			return nil
		}

		if _, err := s.repo.CreateFriendRequest(ctx, tx, actorID, targetID); err != nil {
			return err
		}
		emit = true
		return nil
	})
	if errors.Is(err, ErrConflict) {
		err = nil
		emit = false
	}
	if err != nil {
		return nil, err
	}

	if emit {
		s.emit(EventFriendRequest, actorID, targetID)
	}
	return s.Relationship(ctx, actorID, targetID)
}

// CancelFriendRequest withdraws the actor's pending friend request.
func (s *Service) CancelFriendRequest(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.DeleteFriendRequest(ctx, tx, actorID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Relationship(ctx, actorID, targetID)
}

// AcceptFriendRequest converts the sender's pending request into a friend
// edge. A missing request is a real NotFound.
func (s *Service) AcceptFriendRequest(ctx context.Context, actorID, senderID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, senderID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, senderID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		blocked, err := s.repo.BlockedEither(ctx, tx, actorID, senderID)
		if err != nil {
			return err
		}
		if blocked {
			return ErrBlocked
		}
		_, err = s.repo.AcceptFriendRequest(ctx, tx, senderID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit(EventFriendAccepted, actorID, senderID)
	return s.Relationship(ctx, actorID, senderID)
}

// RejectFriendRequest deletes an inbound friend request.
func (s *Service) RejectFriendRequest(ctx context.Context, actorID, senderID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, senderID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, senderID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.DeleteFriendRequest(ctx, tx, senderID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Relationship(ctx, actorID, senderID)
}

// RemoveFriend deletes the friendship in both directions (single canonical
// row). Absence is a no-op success.
func (s *Service) RemoveFriend(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.RemoveFriendEdge(ctx, tx, actorID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Relationship(ctx, actorID, targetID)
}

// ---------- Blocks ----------

// Block inserts the block and destructively clears every follow/friend
// edge and request between the pair, in one transaction. Blocking an
// already blocked user is a no-op success. No notification is emitted.
func (s *Service) Block(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.CreateBlock(ctx, tx, actorID, targetID)
		return err
	})
	if errors.Is(err, ErrConflict) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return s.Relationship(ctx, actorID, targetID)
}

// Unblock removes the actor's block. Prior relationships are not restored.
func (s *Service) Unblock(ctx context.Context, actorID, targetID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, targetID); err != nil {
		return nil, err
	}
	if err := s.requireTarget(ctx, targetID); err != nil {
		return nil, err
	}

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.repo.RemoveBlock(ctx, tx, actorID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Relationship(ctx, actorID, targetID)
}

// ---------- Reads ----------

// Relationship returns the consolidated state between actor and other.
func (s *Service) Relationship(ctx context.Context, actorID, otherID uuid.UUID) (*Relationship, error) {
	if err := validatePair(actorID, otherID); err != nil {
		return nil, err
	}

	snap, err := s.repo.GetSnapshot(ctx, actorID, otherID)
	if err != nil {
		return nil, err
	}
	return relationshipFromSnapshot(otherID, snap), nil
}

// RelationshipBatch resolves states toward up to MaxPageSize users in one
// call, for hydrating list screens.
func (s *Service) RelationshipBatch(ctx context.Context, actorID uuid.UUID, otherIDs []uuid.UUID) ([]*Relationship, error) {
	if actorID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing actor id", ErrInvalidOperation)
	}
	if len(otherIDs) > MaxPageSize {
		return nil, fmt.Errorf("%w: at most %d users per lookup", ErrInvalidOperation, MaxPageSize)
	}

	result := make([]*Relationship, 0, len(otherIDs))
	for _, otherID := range otherIDs {
		if otherID == actorID || otherID == uuid.Nil {
			continue
		}
		rel, err := s.Relationship(ctx, actorID, otherID)
		if err != nil {
			return nil, err
		}
		result = append(result, rel)
	}
	return result, nil
}

// Stats returns the denormalized counters for a user.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID) (*Stats, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidOperation)
	}
	return s.repo.GetStats(ctx, userID)
}

func (s *Service) paginated(
	ctx context.Context,
	subjectID uuid.UUID,
	cursorToken string,
	pageSize int,
	read func(context.Context, uuid.UUID, *Cursor, int) (*Page, error),
) (*Page, error) {
	if subjectID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing subject id", ErrInvalidOperation)
	}
	cursor, err := DecodeCursor(cursorToken)
	if err != nil {
		return nil, err
	}
	return read(ctx, subjectID, cursor, pageSize)
}

// Followers lists users following the subject, newest first.
func (s *Service) Followers(ctx context.Context, subjectID uuid.UUID, cursorToken string, pageSize int) (*Page, error) {
	return s.paginated(ctx, subjectID, cursorToken, pageSize, s.repo.PaginateFollowers)
}

// Following lists users the subject follows, newest first.
func (s *Service) Following(ctx context.Context, subjectID uuid.UUID, cursorToken string, pageSize int) (*Page, error) {
	return s.paginated(ctx, subjectID, cursorToken, pageSize, s.repo.PaginateFollowing)
}

// Friends lists the subject's friends, newest first.
func (s *Service) Friends(ctx context.Context, subjectID uuid.UUID, cursorToken string, pageSize int) (*Page, error) {
	return s.paginated(ctx, subjectID, cursorToken, pageSize, s.repo.PaginateFriends)
}

// FollowRequests lists inbound follow requests for the recipient.
func (s *Service) FollowRequests(ctx context.Context, recipientID uuid.UUID, cursorToken string, pageSize int) (*Page, error) {
	return s.paginated(ctx, recipientID, cursorToken, pageSize, s.repo.PaginateFollowRequests)
}

// FriendRequests lists inbound friend requests for the recipient.
func (s *Service) FriendRequests(ctx context.Context, recipientID uuid.UUID, cursorToken string, pageSize int) (*Page, error) {
	return s.paginated(ctx, recipientID, cursorToken, pageSize, s.repo.PaginateFriendRequests)
}

// Blocked lists users the actor has blocked.
func (s *Service) Blocked(ctx context.Context, actorID uuid.UUID, cursorToken string, pageSize int) (*Page, error) {
	return s.paginated(ctx, actorID, cursorToken, pageSize, s.repo.PaginateBlocked)
}

func relationshipFromSnapshot(otherID uuid.UUID, snap *Snapshot) *Relationship {
	rel := &Relationship{
		UserID:                otherID,
		FollowState:           StateNone,
		FriendState:           StateNone,
		BlockState:            StateNone,
		FollowedBy:            snap.FollowedBy,
		IncomingFollowRequest: snap.FollowRequestIn,
	}

	switch {
	case snap.Following:
		rel.FollowState = StateFollowing
	case snap.FollowRequestOut:
		rel.FollowState = StateFollowRequested
	}

	switch {
	case snap.Friends:
		rel.FriendState = StateFriends
	case snap.FriendRequestOut:
		rel.FriendState = StateFriendRequested
	case snap.FriendRequestIn:
		rel.FriendState = StateFriendRequestReceived
	}

	switch {
	case snap.Blocked:
		rel.BlockState = StateBlocked
	case snap.BlockedBy:
		rel.BlockState = StateBlockedBy
	}

	return rel
}
