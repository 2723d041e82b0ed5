package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrInvalidOperation covers self-targeting and malformed input.
	ErrInvalidOperation = errors.New("invalid relationship operation")
	// ErrNotFound means the relationship or request being operated on
	// does not exist.
	ErrNotFound = errors.New("relationship not found")
	// ErrConflict means the state already satisfies the request. The
	// service absorbs it where the outcome matches the caller's intent.
	ErrConflict = errors.New("relationship already exists")
	// ErrBlocked means one of the two users has blocked the other.
	ErrBlocked = errors.New("relationship blocked")
	// ErrInvalidCursor means the pagination cursor could not be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
	// ErrStoreUnavailable wraps transient persistence failures.
	ErrStoreUnavailable = errors.New("relationship store unavailable")
)

// SQLSTATE classes the repository translates into typed errors.
const (
	sqlStateUniqueViolation = "23505"
	sqlStateFKViolation     = "23503"
	sqlStateCheckViolation  = "23514"
)

// mapStoreError translates a persistence failure into the engine's error
// taxonomy. Constraint outcomes become typed errors; anything else is
// surfaced as ErrStoreUnavailable so callers never see driver internals.
func mapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case sqlStateUniqueViolation:
			return fmt.Errorf("%s: %w", op, ErrConflict)
		case sqlStateFKViolation:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case sqlStateCheckViolation:
			return fmt.Errorf("%s: %w", op, ErrInvalidOperation)
		}
	}

	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
