package cms

import (
	"fmt"
	"testing"
)

func TestLinearAddQuery(t *testing.T) {
	s, err := NewLinear(1<<17, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Add([]byte("a"))
	s.Add([]byte("a"))
	s.Add([]byte("a"))
	s.Add([]byte("b"))

	if got := s.Query([]byte("a")); got != 3 {
		t.Fatalf("expected query(a)=3, got %d", got)
	}
	if got := s.Query([]byte("b")); got != 1 {
		t.Fatalf("expected query(b)=1, got %d", got)
	}
}

func TestLinearConservativeMonotone(t *testing.T) {
	s, _ := NewLinear(1024, 8, 0)
	before := s.Query([]byte("k"))
	s.Add([]byte("k"))
	after := s.Query([]byte("k"))
	if after < before {
		t.Fatalf("query decreased after add: %d -> %d", before, after)
	}
}

func TestLinearMergeOverlap(t *testing.T) {
	a, _ := NewLinear(1<<17, 8, 0)
	b, _ := NewLinear(1<<17, 8, 0)

	for i := 0; i < 1000; i++ {
		a.Add([]byte(fmt.Sprintf("a-%d", i)))
	}
	for i := 900; i < 1900; i++ {
		b.Add([]byte(fmt.Sprintf("a-%d", i)))
	}

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if got := a.Query([]byte("a-950")); got != 2 {
		t.Fatalf("expected overlap key count 2, got %d", got)
	}
}

func TestLinearMergeRejectsMismatch(t *testing.T) {
	a, _ := NewLinear(1024, 8, 0)
	b, _ := NewLinear(2048, 8, 0)
	if err := a.Merge(b); err == nil {
		t.Fatal("expected error merging mismatched widths")
	}
}

func TestLog8RepeatedAddWithinRange(t *testing.T) {
	s, err := NewLog8(2048, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Add([]byte("k"), 50)
	got := s.Query([]byte("k"))
	if got < 30 || got > 80 {
		t.Fatalf("expected query(k) roughly near 50, got %d", got)
	}
}

func TestLog16MergePreservesOrderOfMagnitude(t *testing.T) {
	a, err := NewLog16(4096, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewLog16(4096, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	a.Add([]byte("k"), 100)
	b.Add([]byte("k"), 100)

	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	got := a.Query([]byte("k"))
	if got < 120 || got > 400 {
		t.Fatalf("expected merged estimate roughly near 200, got %d", got)
	}
}

func TestLogMergeRejectsMismatchedVariant(t *testing.T) {
	a, _ := NewLog8(1024, 8, 0)
	b, _ := NewLog16(1024, 8, 0)
	if err := a.Merge(b); err == nil {
		t.Fatal("expected error merging log8 with log16")
	}
}

func TestNewRejectsZeroDims(t *testing.T) {
	if _, err := NewLinear(0, 8, 0); err == nil {
		t.Fatal("expected error for w=0")
	}
	if _, err := NewLinear(8, 0, 0); err != nil {
		t.Fatalf("d=0 should default to DefaultDepth, got error: %v", err)
	}
}

func TestRowSeedsDeterministic(t *testing.T) {
	a, _ := NewLinear(1024, 8, 42)
	b, _ := NewLinear(1024, 8, 42)
	a.Add([]byte("x"), 5)
	b.Add([]byte("x"), 5)
	for i := range a.Store() {
		if a.Store()[i] != b.Store()[i] {
			t.Fatalf("identical seed/input produced different store at %d", i)
		}
	}
}
