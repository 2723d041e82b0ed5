package graph

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
)

func TestMapStoreError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"unique violation", &pq.Error{Code: pq.ErrorCode(sqlStateUniqueViolation)}, ErrConflict},
		{"fk violation", &pq.Error{Code: pq.ErrorCode(sqlStateFKViolation)}, ErrNotFound},
		{"check violation", &pq.Error{Code: pq.ErrorCode(sqlStateCheckViolation)}, ErrInvalidOperation},
		{"deadline", context.DeadlineExceeded, ErrStoreUnavailable},
		{"canceled", context.Canceled, ErrStoreUnavailable},
		{"unknown", errors.New("connection reset"), ErrStoreUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mapStoreError("op", tc.in)
			if !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMapStoreErrorNil(t *testing.T) {
	if err := mapStoreError("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
