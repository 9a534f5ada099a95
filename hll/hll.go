// Package hll implements HyperLogLog++, a fixed-memory cardinality
// estimator. It follows count-min-log's register-array-plus-config
// shape (its Sketch[T]) scaled up to the HLL++ bias-corrected estimator:
// a register-byte slice, immutable config (p, seed), running counters,
// and a Merge that requires config equality.
package hll

import (
	"math"
	"sort"

	"github.com/seiflotfy/sketchkit/hash"
	"github.com/seiflotfy/sketchkit/sketcherr"
)

// MinP and MaxP bound the supported precision.
const (
	MinP = minP
	MaxP = maxP
)

// Sketch is a HyperLogLog++ cardinality estimator over m = 2^p registers.
// Not safe for concurrent use; callers needing concurrent ingest should
// give each goroutine its own Sketch and Merge at the end, which is
// exactly what package engine does.
type Sketch struct {
	p    uint
	seed uint64

	registers []uint8

	nAdded   uint64
	nRecords uint64
}

// New returns a new HLL++ sketch with precision p and hash seed seed. p
// must be in [MinP, MaxP].
func New(p uint, seed uint64) (*Sketch, error) {
	if p < MinP || p > MaxP {
		return nil, sketcherr.NewConfigError("p", "must be between 7 and 16 inclusive")
	}
	m := uint64(1) << p
	return &Sketch{
		p:         p,
		seed:      seed,
		registers: make([]uint8, m),
	}, nil
}

// P returns the configured precision.
func (s *Sketch) P() uint { return s.p }

// Seed returns the configured hash seed.
func (s *Sketch) Seed() uint64 { return s.seed }

// NAdded returns the total number of Add calls, including duplicates.
func (s *Sketch) NAdded() uint64 { return s.nAdded }

// NRecords returns the number of records credited via AddRecord/UpdateRecords.
func (s *Sketch) NRecords() uint64 { return s.nRecords }

// AddRecord increments the external record counter by one.
func (s *Sketch) AddRecord() { s.nRecords++ }

// UpdateRecords increments the external record counter by n.
func (s *Sketch) UpdateRecords(n uint64) { s.nRecords += n }

// Add routes key into its register via FastHash64 and raises the
// register's leading-zero-run estimate if key's hash beats the current
// occupant. count is accepted for API symmetry with CMS/HH
// but ignored: HLL has no notion of multiplicity.
func (s *Sketch) Add(key []byte, count ...uint64) {
	h := hash.FastHash64(key, s.seed)
	idx := h >> (64 - s.p)
	w := (h << s.p) | (uint64(1) << (s.p - 1))
	lz := uint8(leadingZeros64(w)) + 1

	if lz > s.registers[idx] {
		s.registers[idx] = lz
	}
	s.nAdded++
}

// leadingZeros64 counts leading zero bits of x.
func leadingZeros64(x uint64) int {
	if x == 0 {
		return 64
	}
	n := 0
	for x&(1<<63) == 0 {
		n++
		x <<= 1
	}
	return n
}

// Update adds every key in keys, crediting n_added once per element,
// duplicates included. The mapping form, which credits once per distinct
// key, is UpdateCounts.
func (s *Sketch) Update(keys [][]byte) {
	for _, k := range keys {
		s.Add(k)
	}
}

// UpdateCounts is the mapping form of Update: it adds each key exactly
// once regardless of its associated count, per the same "1 per distinct
// key" rule.
func (s *Sketch) UpdateCounts(counts map[string]uint64) {
	for k := range counts {
		s.Add([]byte(k))
	}
}

// Query returns the estimated cardinality of the stream seen so far.
func (s *Sketch) Query() float64 {
	m := uint64(1) << s.p
	sum := 0.0
	zeros := 0
	for _, r := range s.registers {
		sum += math.Pow(2, -float64(r))
		if r == 0 {
			zeros++
		}
	}

	alpha := alphaM(m)
	e := alpha * float64(m) * float64(m) / sum
	idx := int(s.p) - minP

	if zeros > 0 && e <= thresholdByP[idx] {
		return float64(m) * math.Log(float64(m)/float64(zeros))
	}
	if e <= thresholdByP[idx] {
		return e - knnBias(idx, e)
	}
	return e
}

// knnBias returns the mean bias of the k=6 rawEstimatesByP[idx] entries
// nearest to e.
func knnBias(idx int, e float64) float64 {
	raws := rawEstimatesByP[idx]
	biases := biasesByP[idx]

	type neighbor struct {
		dist float64
		bias float64
	}
	neighbors := make([]neighbor, len(raws))
	for i, r := range raws {
		neighbors[i] = neighbor{dist: math.Abs(r - e), bias: biases[i]}
	}
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })

	k := 6
	if k > len(neighbors) {
		k = len(neighbors)
	}
	sum := 0.0
	for i := 0; i < k; i++ {
		sum += neighbors[i].bias
	}
	return sum / float64(k)
}

// Merge folds other into s register-wise (max) and sums the counters.
// Both sketches must share (p, seed).
func (s *Sketch) Merge(other *Sketch) error {
	if s.p != other.p {
		return sketcherr.NewIncompatibleError("differing precision p")
	}
	if s.seed != other.seed {
		return sketcherr.NewIncompatibleError("differing seed")
	}
	for i, r := range other.registers {
		if r > s.registers[i] {
			s.registers[i] = r
		}
	}
	s.nAdded += other.nAdded
	s.nRecords += other.nRecords
	return nil
}

// Registers exposes the raw register bytes, e.g. for sketchio.
func (s *Sketch) Registers() []uint8 { return s.registers }

// SetRegisters overwrites the register array; used by the persistence
// loader to reconstruct a sketch without going through Add.
func (s *Sketch) SetRegisters(regs []uint8) { copy(s.registers, regs) }

// RestoreCounters sets n_added directly, bypassing Add. Used only by
// package sketchio when reloading a sketch whose counter is known but
// whose original key stream was never persisted.
func RestoreCounters(s *Sketch, nAdded uint64) { s.nAdded = nAdded }
