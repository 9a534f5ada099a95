// Package cms implements the Count-Min Sketch frequency estimator in its
// three variants: linear (32-bit saturating counters), log8 and log16
// (8/16-bit approximate counters, per seiflotfy/count-min-log's
// Sketch[T Register] generic but reshaped around spec-mandated
// num_reserved/max_count semantics and conservative update). All three
// variants share one d×w row-major layout and one Sketch interface so
// the parallel engine can treat them uniformly (design note: "tagged
// variant ... dispatch is a single enum match on the hot path").
package cms

import (
	"github.com/seiflotfy/sketchkit/hash"
	"github.com/seiflotfy/sketchkit/sketcherr"
)

// Variant selects the counter representation.
type Variant uint8

const (
	Linear Variant = iota
	Log8
	Log16
)

func (v Variant) String() string {
	switch v {
	case Linear:
		return "linear"
	case Log8:
		return "log8"
	case Log16:
		return "log16"
	default:
		return "unknown"
	}
}

// DefaultDepth is the default row count when Depth is left unset.
const DefaultDepth = 8

// Sketch is the common interface implemented by the linear and the two
// log-counter Count-Min Sketch variants.
type Sketch interface {
	Add(key []byte, count ...uint64)
	Query(key []byte) uint64
	Update(keys [][]byte)
	UpdateCounts(counts map[string]uint64)
	Merge(other Sketch) error

	NAdded() uint64
	NRecords() uint64
	AddRecord()
	UpdateRecords(n uint64)

	Variant() Variant
	Width() uint
	Depth() uint
	Seed() uint64
	Saturated() bool
}

// indices returns, for key, the d column indices (one per row, rows
// laid out contiguously: row i occupies [i*w, (i+1)*w)) per the hash
// derivation contract: row i uses FastHash64(key, seed+i).
func indices(key []byte, seed uint64, d, w uint) []uint {
	idx := make([]uint, d)
	for i := uint(0); i < d; i++ {
		h := hash.FastHash64(key, hash.RowSeed(seed, i))
		idx[i] = i*w + uint(h%uint64(w))
	}
	return idx
}

func validateDims(w, d uint) error {
	if w == 0 {
		return sketcherr.NewConfigError("w", "must be > 0")
	}
	if d == 0 {
		return sketcherr.NewConfigError("d", "must be > 0")
	}
	return nil
}
