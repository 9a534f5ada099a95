// Package hh implements Topkapi, the Mandal et al. 2018 algorithm for
// parallel phi-heavy-hitter estimation. Structurally it reuses the
// Count-Min Sketch's d×w row/column layout (see package cms) with each
// cell widened to hold a candidate key alongside its counter, since
// top-k estimation — unlike pure frequency estimation — needs to
// recover which keys were heavy, not just how heavy a given key is.
package hh

import (
	"bytes"
	"sort"

	"github.com/seiflotfy/sketchkit/hash"
	"github.com/seiflotfy/sketchkit/sketcherr"
)

// DefaultDepth is the default row count when Depth is left unset.
const DefaultDepth = 4

type cell struct {
	key     []byte
	length  uint8
	counter uint32
}

func (c *cell) empty() bool { return c.counter == 0 }

func (c *cell) matches(key []byte) bool {
	return !c.empty() && int(c.length) == len(key) && bytes.Equal(c.key[:c.length], key)
}

// Sketch is a Topkapi heavy-hitters sketch over a d×w cell grid, each
// cell holding a candidate key (up to maxKeyLen bytes) and a secondary
// counter.
type Sketch struct {
	w, d      uint
	maxKeyLen uint
	phi       float64
	seed      uint64

	cells []cell

	nAdded, nRecords uint64
}

// Option configures optional Sketch construction parameters.
type Option func(*config)

type config struct {
	depth uint
	phi   float64
}

// WithDepth overrides the default depth (DefaultDepth).
func WithDepth(d uint) Option { return func(c *config) { c.depth = d } }

// WithPhi overrides the default phi threshold (1/w).
func WithPhi(phi float64) Option { return func(c *config) { c.phi = phi } }

// New returns a new Topkapi sketch of width w, holding keys up to
// maxKeyLen bytes, seeded with seed.
func New(w, maxKeyLen uint, seed uint64, opts ...Option) (*Sketch, error) {
	if w == 0 {
		return nil, sketcherr.NewConfigError("w", "must be > 0")
	}
	if maxKeyLen == 0 {
		return nil, sketcherr.NewConfigError("max_key_len", "must be > 0")
	}

	cfg := config{depth: DefaultDepth, phi: 1.0 / float64(w)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.depth == 0 {
		cfg.depth = DefaultDepth
	}
	if cfg.phi <= 0 || cfg.phi > 1 {
		return nil, sketcherr.NewConfigError("phi", "must be in (0, 1]")
	}

	cells := make([]cell, w*cfg.depth)
	for i := range cells {
		cells[i].key = make([]byte, maxKeyLen)
	}

	return &Sketch{
		w:         w,
		d:         cfg.depth,
		maxKeyLen: maxKeyLen,
		phi:       cfg.phi,
		seed:      seed,
		cells:     cells,
	}, nil
}

func (s *Sketch) Width() uint      { return s.w }
func (s *Sketch) Depth() uint      { return s.d }
func (s *Sketch) MaxKeyLen() uint  { return s.maxKeyLen }
func (s *Sketch) Phi() float64     { return s.phi }
func (s *Sketch) Seed() uint64     { return s.seed }
func (s *Sketch) NAdded() uint64   { return s.nAdded }
func (s *Sketch) NRecords() uint64 { return s.nRecords }

func (s *Sketch) AddRecord()             { s.nRecords++ }
func (s *Sketch) UpdateRecords(n uint64) { s.nRecords += n }

// Add credits key with count occurrences. Keys longer than
// maxKeyLen are truncated to their first maxKeyLen bytes before being
// placed in a cell, a limitation the grid's fixed-width key slot
// requires; n_added is still credited in full.
func (s *Sketch) Add(key []byte, count ...uint64) {
	c := uint64(1)
	if len(count) > 0 {
		c = count[0]
	}
	slotKey := key
	if uint(len(slotKey)) > s.maxKeyLen {
		slotKey = slotKey[:s.maxKeyLen]
	}

	for i := uint(0); i < s.d; i++ {
		h := hash.FastHash64(key, hash.RowSeed(s.seed, i))
		col := uint(h % uint64(s.w))
		cl := &s.cells[i*s.w+col]

		switch {
		case cl.matches(slotKey):
			cl.counter = saturatingAddU32(cl.counter, c)
		case uint64(cl.counter) > c:
			cl.counter -= uint32(c)
		default:
			newCounter := c - uint64(cl.counter)
			copy(cl.key, slotKey)
			cl.length = uint8(len(slotKey))
			cl.counter = saturatingU32(newCounter)
		}
	}
	s.nAdded += c
}

// Update adds every key in keys, each with count 1.
func (s *Sketch) Update(keys [][]byte) {
	for _, k := range keys {
		s.Add(k)
	}
}

// UpdateCounts adds every key in counts with its associated count.
func (s *Sketch) UpdateCounts(counts map[string]uint64) {
	for k, c := range counts {
		s.Add([]byte(k), c)
	}
}

func saturatingAddU32(a uint32, b uint64) uint32 {
	sum := uint64(a) + b
	return saturatingU32(sum)
}

func saturatingU32(v uint64) uint32 {
	if v > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(v)
}

// Pair is a (key, estimated count) result from Query.
type Pair struct {
	Key   []byte
	Count uint64
}

// Query scans the full grid, takes the maximum counter across all cells
// holding each distinct candidate key, filters by the phi/threshold rule
// and returns the top-k results sorted by descending count
// (ties broken by ascending lexicographic key order).
func (s *Sketch) Query(k int, threshold ...uint64) []Pair {
	best := make(map[string]uint64)
	for i := range s.cells {
		cl := &s.cells[i]
		if cl.empty() {
			continue
		}
		key := string(cl.key[:cl.length])
		if cl.counter > 0 && uint64(cl.counter) > best[key] {
			best[key] = uint64(cl.counter)
		}
	}

	minCount := s.phi * float64(s.nAdded)
	if len(threshold) > 0 && threshold[0] > 0 {
		if t := float64(threshold[0]); t > minCount {
			minCount = t
		}
	}

	results := make([]Pair, 0, len(best))
	for key, count := range best {
		if float64(count) >= minCount {
			results = append(results, Pair{Key: []byte(key), Count: count})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return bytes.Compare(results[i].Key, results[j].Key) < 0
	})

	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// Merge applies the Topkapi merge rule: matching keys sum
// counters, mismatched keys keep the larger and subtract the smaller
// from it. Both sketches must share (w, d, max_key_len, seed, phi).
func (s *Sketch) Merge(other *Sketch) error {
	if s.w != other.w || s.d != other.d {
		return sketcherr.NewIncompatibleError("differing (w, d)")
	}
	if s.maxKeyLen != other.maxKeyLen {
		return sketcherr.NewIncompatibleError("differing max_key_len")
	}
	if s.seed != other.seed {
		return sketcherr.NewIncompatibleError("differing seed")
	}
	if s.phi != other.phi {
		return sketcherr.NewIncompatibleError("differing phi")
	}

	for i := range s.cells {
		a := &s.cells[i]
		b := &other.cells[i]

		switch {
		case b.empty():
			// nothing to fold in
		case a.empty():
			copy(a.key, b.key[:b.length])
			a.length = b.length
			a.counter = b.counter
		case a.length == b.length && bytes.Equal(a.key[:a.length], b.key[:b.length]):
			a.counter = saturatingAddU32(a.counter, uint64(b.counter))
		case a.counter >= b.counter:
			a.counter -= b.counter
		default:
			newCounter := b.counter - a.counter
			copy(a.key, b.key[:b.length])
			a.length = b.length
			a.counter = newCounter
		}
	}
	s.nAdded += other.nAdded
	s.nRecords += other.nRecords
	return nil
}

// CellSnapshot is a read-only view of one grid cell, used by sketchio.
type CellSnapshot struct {
	Key     []byte
	Length  uint8
	Counter uint32
}

// Cells exposes the raw grid for persistence.
func (s *Sketch) Cells() []CellSnapshot {
	out := make([]CellSnapshot, len(s.cells))
	for i, c := range s.cells {
		out[i] = CellSnapshot{Key: c.key, Length: c.length, Counter: c.counter}
	}
	return out
}

// SetCounters restores n_added/n_records without replaying Add; used by
// the persistence loader.
func (s *Sketch) SetCounters(nAdded, nRecords uint64) {
	s.nAdded, s.nRecords = nAdded, nRecords
}

// SetCells overwrites the grid; used by the persistence loader.
func (s *Sketch) SetCells(keys [][]byte, lengths []uint8, counters []uint32) {
	for i := range s.cells {
		copy(s.cells[i].key, keys[i])
		s.cells[i].length = lengths[i]
		s.cells[i].counter = counters[i]
	}
}
