package hll

import (
	"fmt"
	"math"
	"testing"
)

func TestNewRejectsOutOfRangeP(t *testing.T) {
	if _, err := New(6, 0); err == nil {
		t.Fatal("expected error for p=6")
	}
	if _, err := New(17, 0); err == nil {
		t.Fatal("expected error for p=17")
	}
}

func TestAddIdempotent(t *testing.T) {
	s, err := New(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Add([]byte("k"))
	first := append([]uint8(nil), s.Registers()...)
	s.Add([]byte("k"))
	second := s.Registers()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("register %d changed on repeat add: %d != %d", i, first[i], second[i])
		}
	}
	if s.NAdded() != 2 {
		t.Fatalf("expected n_added=2, got %d", s.NAdded())
	}
}

func TestQueryCardinalityWithinErrorBound(t *testing.T) {
	const p = 14
	s, err := New(p, 0)
	if err != nil {
		t.Fatal(err)
	}
	n := 10000
	for i := 0; i < n; i++ {
		s.Add([]byte(fmt.Sprintf("key-%d", i)))
	}
	est := s.Query()

	m := float64(uint64(1) << p)
	stdErr := 1.04 / math.Sqrt(m)
	tolerance := 4 * stdErr * float64(n) // generous multiple for test stability
	if math.Abs(est-float64(n)) > tolerance {
		t.Fatalf("estimate %f too far from true cardinality %d (tolerance %f)", est, n, tolerance)
	}
}

func TestMergeRequiresMatchingConfig(t *testing.T) {
	a, _ := New(10, 0)
	b, _ := New(11, 0)
	if err := a.Merge(b); err == nil {
		t.Fatal("expected error merging sketches with differing p")
	}

	c, _ := New(10, 1)
	if err := a.Merge(c); err == nil {
		t.Fatal("expected error merging sketches with differing seed")
	}
}

func TestMergeCommutative(t *testing.T) {
	a, _ := New(10, 0)
	b, _ := New(10, 0)
	for i := 0; i < 500; i++ {
		a.Add([]byte(fmt.Sprintf("a-%d", i)))
	}
	for i := 0; i < 500; i++ {
		b.Add([]byte(fmt.Sprintf("b-%d", i)))
	}

	ab, _ := New(10, 0)
	ab.Merge(a)
	ab.Merge(b)

	ba, _ := New(10, 0)
	ba.Merge(b)
	ba.Merge(a)

	for i := range ab.Registers() {
		if ab.Registers()[i] != ba.Registers()[i] {
			t.Fatalf("merge not commutative at register %d", i)
		}
	}
}

func TestEndToEndThreeAddsOneB(t *testing.T) {
	s, _ := New(10, 0)
	s.Add([]byte("a"))
	s.Add([]byte("a"))
	s.Add([]byte("a"))
	s.Add([]byte("b"))

	est := s.Query()
	if math.Abs(est-2) > 1.5 {
		t.Fatalf("expected estimate near 2, got %f", est)
	}
}
