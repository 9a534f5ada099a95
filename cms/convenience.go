package cms

import (
	"math"

	"github.com/seiflotfy/sketchkit/sketcherr"
)

// NewLinearForEpsilonDelta sizes a plain 32-bit-counter CMS from a target
// relative error epsilon and failure probability delta, the same
// width/depth formulas as the package's log-counter variants and as the
// original linear count-min sketch's NewSketch: width = ceil(e/epsilon),
// depth = ceil(ln(1/delta)).
func NewLinearForEpsilonDelta(epsilon, delta float64, seed uint64) (*LinearSketch, error) {
	w, d, err := epsilonDeltaDims(epsilon, delta)
	if err != nil {
		return nil, err
	}
	return NewLinear(w, d, seed)
}

// NewLog8ForEpsilonDelta sizes an 8-bit log-counter CMS from a target
// relative error epsilon and failure probability delta, the same
// dimension formulas as count-min-log's NewSketchForEpsilonDelta:
// width = ceil(e/epsilon), depth = ceil(ln(1/delta)).
func NewLog8ForEpsilonDelta(epsilon, delta float64, seed uint64, opts ...LogOption) (*Log8Sketch, error) {
	w, d, err := epsilonDeltaDims(epsilon, delta)
	if err != nil {
		return nil, err
	}
	return NewLog8(w, d, seed, opts...)
}

// NewLog16ForEpsilonDelta is the 16-bit log-counter counterpart of
// NewLog8ForEpsilonDelta.
func NewLog16ForEpsilonDelta(epsilon, delta float64, seed uint64, opts ...LogOption) (*Log16Sketch, error) {
	w, d, err := epsilonDeltaDims(epsilon, delta)
	if err != nil {
		return nil, err
	}
	return NewLog16(w, d, seed, opts...)
}

func epsilonDeltaDims(epsilon, delta float64) (w, d uint, err error) {
	if epsilon <= 0 {
		return 0, 0, sketcherr.NewConfigError("epsilon", "must be > 0")
	}
	if delta <= 0 || delta >= 1 {
		return 0, 0, sketcherr.NewConfigError("delta", "must be in (0, 1)")
	}
	w = uint(math.Ceil(math.E / epsilon))
	d = uint(math.Ceil(math.Log(1 / delta)))
	return w, d, nil
}

// NewLog8ForCapacity sizes an 8-bit log-counter CMS for an expected
// distinct-item capacity and target error rate e, following
// count-min-log's NewForCapacity dimension split (total cells m =
// ceil(capacity*ln(e)/ln(0.5)), width w = ceil(ln(2)*m/capacity), depth
// = m/w).
func NewLog8ForCapacity(capacity uint64, e float64, seed uint64, opts ...LogOption) (*Log8Sketch, error) {
	w, d, err := capacityDims(capacity, e)
	if err != nil {
		return nil, err
	}
	return NewLog8(w, d, seed, opts...)
}

// NewLog16ForCapacity is the 16-bit log-counter counterpart of
// NewLog8ForCapacity.
func NewLog16ForCapacity(capacity uint64, e float64, seed uint64, opts ...LogOption) (*Log16Sketch, error) {
	w, d, err := capacityDims(capacity, e)
	if err != nil {
		return nil, err
	}
	return NewLog16(w, d, seed, opts...)
}

func capacityDims(capacity uint64, e float64) (w, d uint, err error) {
	if !(e >= 0.001 && e < 1.0) {
		return 0, 0, sketcherr.NewConfigError("e", "must be >= 0.001 and < 1.0")
	}
	m := math.Max(1, math.Ceil(float64(capacity)*math.Log(e)/log05))
	width := math.Max(1, math.Ceil(log2*m/float64(capacity)))
	w = uint(width)
	d = uint(m / width)
	if d == 0 {
		d = 1
	}
	return w, d, nil
}

var (
	log05 = math.Log(0.5)
	log2  = math.Log(2.0)
)
