package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies what changed for the target user.
type EventType string

const (
	EventFollow         EventType = "follow"
	EventFollowRequest  EventType = "followRequest"
	EventFollowAccepted EventType = "followAccepted"
	EventFriendRequest  EventType = "friendRequest"
	EventFriendAccepted EventType = "friendAccepted"
)

// Event is emitted after a committed state transition that changes what
// the target user can see. Delivery (in-app records, push, retries) is the
// emitter's responsibility, not the engine's.
type Event struct {
	Type       EventType `json:"type"`
	ActorID    uuid.UUID `json:"actor_id"`
	TargetID   uuid.UUID `json:"target_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Emitter receives relationship-changed events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// NopEmitter discards events.
type NopEmitter struct{}

func (NopEmitter) Emit(ctx context.Context, event Event) error { return nil }
