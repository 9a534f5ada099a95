package sketchio

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/seiflotfy/sketchkit/cms"
	"github.com/seiflotfy/sketchkit/hh"
	"github.com/seiflotfy/sketchkit/hll"
)

func TestHLLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hll.skt")

	s, err := hll.New(10, 42)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 300; i++ {
		s.Add([]byte(fmt.Sprintf("k-%d", i)))
	}

	if err := SaveHLL(path, s); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadHLL(path)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.NAdded() != s.NAdded() {
		t.Fatalf("n_added mismatch: %d != %d", loaded.NAdded(), s.NAdded())
	}
	for i, r := range s.Registers() {
		if loaded.Registers()[i] != r {
			t.Fatalf("register %d mismatch after round-trip", i)
		}
	}
}

func TestLinearCMSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cms-linear.skt")

	s, err := cms.NewLinear(1024, 8, 7)
	if err != nil {
		t.Fatal(err)
	}
	s.Add([]byte("a"), 5)
	s.Add([]byte("b"), 2)

	if err := SaveLinear(path, s); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadLinear(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Query([]byte("a")) != s.Query([]byte("a")) {
		t.Fatal("query(a) mismatch after round-trip")
	}
	for i, v := range s.Store() {
		if loaded.Store()[i] != v {
			t.Fatalf("store %d mismatch after round-trip", i)
		}
	}
}

func TestLog8CMSRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cms-log8.skt")

	s, err := cms.NewLog8(512, 8, 3)
	if err != nil {
		t.Fatal(err)
	}
	s.Add([]byte("k"), 20)

	if err := SaveLog8(path, s); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadLog8(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range s.Store() {
		if loaded.Store()[i] != v {
			t.Fatalf("store %d mismatch after round-trip", i)
		}
	}
}

func TestHHRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hh.skt")

	s, err := hh.New(64, 16, 11)
	if err != nil {
		t.Fatal(err)
	}
	s.Add([]byte("alpha"), 3)
	s.Add([]byte("beta"), 1)

	if err := SaveHH(path, s); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadHH(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.NAdded() != s.NAdded() {
		t.Fatalf("n_added mismatch: %d != %d", loaded.NAdded(), s.NAdded())
	}
	got := loaded.Query(5)
	want := s.Query(5)
	if len(got) != len(want) {
		t.Fatalf("query length mismatch: %d != %d", len(got), len(want))
	}
}

func TestLoadRejectsWrongKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixed.skt")

	s, _ := cms.NewLinear(64, 8, 0)
	if err := SaveLinear(path, s); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHLL(path); err == nil {
		t.Fatal("expected format error loading a CMS file as HLL")
	}
}
