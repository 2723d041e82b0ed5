package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RealtimePublisher pushes a freshly created notification to connected
// clients. Delivery is best-effort; the persisted row is authoritative.
type RealtimePublisher interface {
	NotifyNew(ctx context.Context, userID uuid.UUID, n *Notification, unreadCount int) error
}

// Service handles notification logic
type Service struct {
	repo     Repository
	realtime RealtimePublisher
}

// NewService creates notification service
func NewService(repo Repository, realtime RealtimePublisher) *Service {
	return &Service{repo: repo, realtime: realtime}
}

// Record persists one relationship notification for recipientID and
// pushes it to any live connections.
func (s *Service) Record(ctx context.Context, recipientID uuid.UUID, notifType Type, actorID uuid.UUID, occurredAt time.Time) (*Notification, error) {
	if !ValidType(notifType) {
		return nil, fmt.Errorf("unknown notification type %q", notifType)
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	n := &Notification{
		ID:        uuid.New(),
		UserID:    recipientID,
		Type:      notifType,
		ActorID:   actorID,
		IsRead:    false,
		CreatedAt: occurredAt,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("record notification: %w", err)
	}

	if s.realtime != nil {
		unread, err := s.repo.CountUnreadByUser(ctx, recipientID)
		if err != nil {
			unread = 0
		}
		if err := s.realtime.NotifyNew(ctx, recipientID, n, unread); err != nil {
			log.Warn().Err(err).Str("user_id", recipientID.String()).Msg("Realtime notification push failed")
		}
	}
	return n, nil
}

// List returns notifications for user
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// GetUnreadCount returns unread count
func (s *Service) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnreadByUser(ctx, userID)
}

// MarkAsRead marks single notification as read
func (s *Service) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

// MarkAllAsRead marks all notifications as read
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// CleanupOlderThan removes stale notification rows.
func (s *Service) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, age)
}
