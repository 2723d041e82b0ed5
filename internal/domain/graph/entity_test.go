package graph

import (
	"testing"

	"github.com/google/uuid"
)

func TestCanonicalPairOrdering(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	first, second := CanonicalPair(a, b)
	if first != a || second != b {
		t.Fatalf("expected (%s, %s), got (%s, %s)", a, b, first, second)
	}

	// Same pair regardless of argument order
	first, second = CanonicalPair(b, a)
	if first != a || second != b {
		t.Fatalf("expected (%s, %s), got (%s, %s)", a, b, first, second)
	}
}

func TestCanonicalPairIsStable(t *testing.T) {
	for i := 0; i < 100; i++ {
		a, b := uuid.New(), uuid.New()

		x1, y1 := CanonicalPair(a, b)
		x2, y2 := CanonicalPair(b, a)
		if x1 != x2 || y1 != y2 {
			t.Fatalf("canonical pair not stable for (%s, %s)", a, b)
		}
		if x1.String() >= y1.String() {
			t.Fatalf("pair not ordered: %s >= %s", x1, y1)
		}
	}
}
