package hh

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestNewRejectsZero(t *testing.T) {
	if _, err := New(0, 8, 0); err == nil {
		t.Fatal("expected error for w=0")
	}
	if _, err := New(8, 0, 0); err == nil {
		t.Fatal("expected error for max_key_len=0")
	}
}

func TestEndToEndThreeAddsOneB(t *testing.T) {
	s, err := New(64, 8, 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Add([]byte("a"))
	s.Add([]byte("a"))
	s.Add([]byte("a"))
	s.Add([]byte("b"))

	got := s.Query(1)
	if len(got) != 1 {
		t.Fatalf("expected 1 result, got %d", len(got))
	}
	if string(got[0].Key) != "a" || got[0].Count != 3 {
		t.Fatalf("expected (a, 3), got (%s, %d)", got[0].Key, got[0].Count)
	}
}

func TestMergeDoublesNAdded(t *testing.T) {
	a, _ := New(256, 8, 0)
	b, _ := New(256, 8, 0)
	for i := 0; i < 100; i++ {
		a.Add([]byte(fmt.Sprintf("k%d", i%5)))
		b.Add([]byte(fmt.Sprintf("k%d", i%5)))
	}
	before := a.NAdded()
	if err := a.Merge(b); err != nil {
		t.Fatal(err)
	}
	if a.NAdded() != 2*before {
		t.Fatalf("expected n_added to double: %d -> %d", before, a.NAdded())
	}
}

func TestMergeRejectsMismatchedPhi(t *testing.T) {
	a, _ := New(64, 8, 0, WithPhi(0.1))
	b, _ := New(64, 8, 0, WithPhi(0.2))
	if err := a.Merge(b); err == nil {
		t.Fatal("expected error merging sketches with differing phi")
	}
}

func TestZipfTopKRecoversTrueHeavyHitters(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	zipf := rand.NewZipf(rng, 1.1, 1.0, 9999)

	const n = 100000
	trueCounts := make(map[uint64]int)
	s, err := New(100, 8, 0, WithDepth(4), WithPhi(0.01))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < n; i++ {
		v := zipf.Uint64()
		trueCounts[v]++
		key := fmt.Sprintf("%d", v)
		s.Add([]byte(key))
	}

	type kv struct {
		key   uint64
		count int
	}
	var ranked []kv
	for k, c := range trueCounts {
		ranked = append(ranked, kv{k, c})
	}
	// simple selection of true top-20 by count (descending)
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].count > ranked[i].count {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	top20 := map[string]bool{}
	for i := 0; i < 20 && i < len(ranked); i++ {
		top20[fmt.Sprintf("%d", ranked[i].key)] = true
	}

	got := s.Query(10)
	hits := 0
	for _, p := range got {
		if top20[string(p.Key)] {
			hits++
		}
	}
	if len(got) > 0 && float64(hits)/float64(len(got)) < 0.5 {
		t.Fatalf("too few returned top-10 entries land in true top-20: %d/%d", hits, len(got))
	}
}
