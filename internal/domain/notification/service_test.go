package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeRepo struct {
	created   []*Notification
	unread    int
	unreadErr error
	createErr error
}

func (f *fakeRepo) Create(ctx context.Context, n *Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Notification, error) {
	out := make([]*Notification, 0)
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeRepo) CountUnreadByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return f.unread, f.unreadErr
}

func (f *fakeRepo) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error { return nil }

func (f *fakeRepo) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error { return nil }

func (f *fakeRepo) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return 0, nil
}

type fakePublisher struct {
	pushed []pushedEvent
	err    error
}

type pushedEvent struct {
	userID uuid.UUID
	n      *Notification
	unread int
}

func (f *fakePublisher) NotifyNew(ctx context.Context, userID uuid.UUID, n *Notification, unreadCount int) error {
	f.pushed = append(f.pushed, pushedEvent{userID: userID, n: n, unread: unreadCount})
	return f.err
}

func TestRecordPersistsAndPushes(t *testing.T) {
	repo := &fakeRepo{unread: 3}
	pub := &fakePublisher{}
	svc := NewService(repo, pub)

	recipient := uuid.New()
	actor := uuid.New()
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	n, err := svc.Record(context.Background(), recipient, TypeFollow, actor, at)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if n.UserID != recipient || n.ActorID != actor || n.Type != TypeFollow {
		t.Fatalf("unexpected notification %+v", n)
	}
	if !n.CreatedAt.Equal(at) {
		t.Fatalf("expected created_at %v, got %v", at, n.CreatedAt)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 persisted row, got %d", len(repo.created))
	}
	if len(pub.pushed) != 1 {
		t.Fatalf("expected 1 push, got %d", len(pub.pushed))
	}
	if pub.pushed[0].userID != recipient || pub.pushed[0].unread != 3 {
		t.Fatalf("unexpected push %+v", pub.pushed[0])
	}
}

func TestRecordRejectsUnknownType(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	_, err := svc.Record(context.Background(), uuid.New(), Type("payment_received"), uuid.New(), time.Now())
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestRecordZeroTimeDefaultsToNow(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	before := time.Now().UTC()
	n, err := svc.Record(context.Background(), uuid.New(), TypeFriendRequest, uuid.New(), time.Time{})
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if n.CreatedAt.Before(before) {
		t.Fatalf("expected created_at >= %v, got %v", before, n.CreatedAt)
	}
}

func TestRecordPushFailureIsNotFatal(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{err: errors.New("socket closed")}
	svc := NewService(repo, pub)

	if _, err := svc.Record(context.Background(), uuid.New(), TypeFollowAccepted, uuid.New(), time.Now()); err != nil {
		t.Fatalf("record should survive push failure, got %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected persisted row, got %d", len(repo.created))
	}
}

func TestRecordPersistFailure(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("insert failed")}
	pub := &fakePublisher{}
	svc := NewService(repo, pub)

	if _, err := svc.Record(context.Background(), uuid.New(), TypeFollow, uuid.New(), time.Now()); err == nil {
		t.Fatal("expected error when persist fails")
	}
	if len(pub.pushed) != 0 {
		t.Fatal("must not push when persist fails")
	}
}

func TestListClampsLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)
	userID := uuid.New()

	for i := 0; i < 30; i++ {
		if _, err := svc.Record(context.Background(), userID, TypeFollow, uuid.New(), time.Now()); err != nil {
			t.Fatalf("record %d failed: %v", i, err)
		}
	}

	// Non-positive and oversized limits fall back to the default of 20
	for _, limit := range []int{0, -5, 1000} {
		got, err := svc.List(context.Background(), userID, limit, 0)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(got) != 20 {
			t.Fatalf("limit=%d: expected 20 rows, got %d", limit, len(got))
		}
	}
}
