package cms

import (
	"math"

	"github.com/seiflotfy/sketchkit/sketcherr"
)

// deriveBase solves for the real-valued base x > 1 such that encoding
// numReserved + cPrimeMax represents maxCount:
//
//	(x^cPrimeMax - 1)/(x - 1) + numReserved = maxCount
//
// via bisection on x in (1, 2], matching the construction contract. The
// function (x^C - 1)/(x - 1) is the geometric series sum 1 + x + ... +
// x^(C-1); it is monotonically increasing in x on (1, 2], and tends to C
// as x -> 1+, so bisection has a unique root whenever maxCount >
// cPrimeMax + numReserved.
func deriveBase(cPrimeMax uint64, numReserved, maxCount uint64) (float64, error) {
	if maxCount <= numReserved {
		return 0, sketcherr.NewConfigError("num_reserved", "must be < max_count")
	}
	target := float64(maxCount - numReserved)
	c := float64(cPrimeMax)

	series := func(x float64) float64 {
		if c == 0 {
			return 0
		}
		return (math.Pow(x, c) - 1) / (x - 1)
	}

	lo, hi := 1.0+1e-9, 2.0
	if series(hi) < target {
		// target unreachable even at x=2; fall back to the widest base.
		return hi, nil
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if series(mid) < target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi, nil
}
