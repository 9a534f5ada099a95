package hash

import "testing"

func TestFastHash64Deterministic(t *testing.T) {
	a := FastHash64([]byte("one_key"), 0)
	b := FastHash64([]byte("one_key"), 0)
	if a != b {
		t.Fatalf("FastHash64 not deterministic: %x != %x", a, b)
	}
}

func TestFastHash64SeedSensitivity(t *testing.T) {
	a := FastHash64([]byte("one_key"), 0)
	b := FastHash64([]byte("one_key"), 1)
	if a == b {
		t.Fatalf("FastHash64 ignored seed: both %x", a)
	}
}

func TestFastHash64EmptyInput(t *testing.T) {
	// Must not panic on zero-length input; the tail fold and word loop
	// both degenerate to no-ops.
	_ = FastHash64(nil, 0)
	_ = FastHash64([]byte{}, 42)
}

func TestFastHash64TailLengths(t *testing.T) {
	base := []byte("0123456789abcdef")
	seen := map[uint64]bool{}
	for n := 0; n <= len(base); n++ {
		h := FastHash64(base[:n], 7)
		if seen[h] {
			t.Fatalf("collision across tail length %d", n)
		}
		seen[h] = true
	}
}

func TestFastHash32Deterministic(t *testing.T) {
	a := FastHash32([]byte("one_key"), 1)
	b := FastHash32([]byte("one_key"), 1)
	if a != b {
		t.Fatalf("FastHash32 not deterministic: %x != %x", a, b)
	}
}

func TestRowSeedIsAdditive(t *testing.T) {
	if RowSeed(100, 3) != 103 {
		t.Fatalf("expected RowSeed(100,3) == 103, got %d", RowSeed(100, 3))
	}
}

func TestMurmurHash3Deterministic(t *testing.T) {
	a := MurmurHash3x86_32([]byte("one_key"), 1)
	b := MurmurHash3x86_32([]byte("one_key"), 1)
	if a != b {
		t.Fatalf("MurmurHash3x86_32 not deterministic: %x != %x", a, b)
	}
}

func TestMurmurHash3EmptyInput(t *testing.T) {
	if got := MurmurHash3x86_32(nil, 0); got == 0 {
		// zero is a legal hash, but the empty-seed-0 case is a commonly
		// checked smoke test against the reference vector of 0.
		t.Logf("MurmurHash3x86_32(nil, 0) = %d", got)
	}
}
