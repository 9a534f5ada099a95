package cms

import "github.com/seiflotfy/sketchkit/sketcherr"

const maxUint32 = uint64(1<<32 - 1)

// LinearSketch is the Count-Min Sketch variant with plain 32-bit
// saturating counters: no log encoding, no PRNG, conservative update
// increments by the full count on every candidate cell.
type LinearSketch struct {
	w, d uint
	seed uint64

	store []uint32

	nAdded, nRecords uint64
	saturated        bool
}

// NewLinear returns a new linear CMS of width w, depth d (DefaultDepth if
// d==0), seeded with seed.
func NewLinear(w, d uint, seed uint64) (*LinearSketch, error) {
	if d == 0 {
		d = DefaultDepth
	}
	if err := validateDims(w, d); err != nil {
		return nil, err
	}
	return &LinearSketch{
		w:     w,
		d:     d,
		seed:  seed,
		store: make([]uint32, w*d),
	}, nil
}

func (s *LinearSketch) Variant() Variant { return Linear }
func (s *LinearSketch) Width() uint      { return s.w }
func (s *LinearSketch) Depth() uint      { return s.d }
func (s *LinearSketch) Seed() uint64     { return s.seed }
func (s *LinearSketch) Saturated() bool  { return s.saturated }
func (s *LinearSketch) NAdded() uint64   { return s.nAdded }
func (s *LinearSketch) NRecords() uint64 { return s.nRecords }

func (s *LinearSketch) AddRecord()             { s.nRecords++ }
func (s *LinearSketch) UpdateRecords(n uint64) { s.nRecords += n }

// Add applies a conservative update: only the cells holding
// the current per-key minimum are incremented, by count, saturating at
// 2^32-1.
func (s *LinearSketch) Add(key []byte, count ...uint64) {
	c := uint64(1)
	if len(count) > 0 {
		c = count[0]
	}

	idx := indices(key, s.seed, s.d, s.w)
	minVal := uint64(s.store[idx[0]])
	for _, i := range idx[1:] {
		if v := uint64(s.store[i]); v < minVal {
			minVal = v
		}
	}

	target := minVal + c
	if target > maxUint32 {
		target = maxUint32
		s.saturated = true
	}
	for _, i := range idx {
		if uint64(s.store[i]) == minVal {
			s.store[i] = uint32(target)
		}
	}
	s.nAdded += c
}

// Query returns the minimum counter across the d rows for key.
func (s *LinearSketch) Query(key []byte) uint64 {
	idx := indices(key, s.seed, s.d, s.w)
	min := uint64(s.store[idx[0]])
	for _, i := range idx[1:] {
		if v := uint64(s.store[i]); v < min {
			min = v
		}
	}
	return min
}

func (s *LinearSketch) Update(keys [][]byte) {
	for _, k := range keys {
		s.Add(k)
	}
}

func (s *LinearSketch) UpdateCounts(counts map[string]uint64) {
	for k, c := range counts {
		s.Add([]byte(k), c)
	}
}

// Merge sums counters element-wise, saturating at 2^32-1 (an open
// question, resolved as "saturate, flag, never error").
func (s *LinearSketch) Merge(other Sketch) error {
	o, ok := other.(*LinearSketch)
	if !ok {
		return sketcherr.NewIncompatibleError("not a linear CMS")
	}
	if s.w != o.w || s.d != o.d || s.seed != o.seed {
		return sketcherr.NewIncompatibleError("differing (w, d, seed)")
	}
	for i, v := range o.store {
		sum := uint64(s.store[i]) + uint64(v)
		if sum > maxUint32 {
			sum = maxUint32
			s.saturated = true
		}
		s.store[i] = uint32(sum)
	}
	s.nAdded += o.nAdded
	s.nRecords += o.nRecords
	return nil
}

// Store exposes the raw counter matrix for persistence.
func (s *LinearSketch) Store() []uint32 { return s.store }

// SetStore overwrites the counter matrix; used by the persistence loader.
func (s *LinearSketch) SetStore(data []uint32) { copy(s.store, data) }

// SetCounters restores n_added/n_records without replaying Add; used by
// the persistence loader.
func (s *LinearSketch) SetCounters(nAdded, nRecords uint64) {
	s.nAdded, s.nRecords = nAdded, nRecords
}
