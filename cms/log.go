package cms

import (
	"math"

	"github.com/dgryski/go-pcgr"

	"github.com/seiflotfy/sketchkit/sketcherr"
)

// Register is the storage type backing a log-counter CMS variant.
type Register interface {
	uint8 | uint16
}

// LogOption configures a log-counter CMS at construction, following the
// functional-options idiom used across the pack for constructors with
// several optional numeric knobs.
type LogOption func(*logConfig)

type logConfig struct {
	numReserved uint64
	maxCount    uint64
	hasReserved bool
	hasMaxCount bool

	prngSeed    uint64
	hasPRNGSeed bool
}

// WithNumReserved overrides the linear/log crossover threshold.
func WithNumReserved(n uint64) LogOption {
	return func(c *logConfig) { c.numReserved = n; c.hasReserved = true }
}

// WithMaxCount overrides the largest real count the top log register
// represents.
func WithMaxCount(n uint64) LogOption {
	return func(c *logConfig) { c.maxCount = n; c.hasMaxCount = true }
}

// WithPRNGSeed seeds the log-counter's probabilistic-increment stream
// independently of the hash seed used for row placement. Merge still
// requires the hash seed to match across operands, so package engine
// uses this to hand every worker sketch the same row-placement seed
// while giving each worker's PRNG an independent, reproducible stream
// derived from (base_seed, worker_id).
func WithPRNGSeed(n uint64) LogOption {
	return func(c *logConfig) { c.prngSeed = n; c.hasPRNGSeed = true }
}

// logSketch is the shared implementation behind Log8Sketch and
// Log16Sketch: a d×w matrix of T-sized approximate counters, each
// encoding a real count via (x^c - 1)/(x - 1) above numReserved and
// linearly below it.
type logSketch[T Register] struct {
	w, d uint
	seed uint64

	numReserved uint64
	maxCount    uint64
	storageMax  uint64
	base        float64
	logBase     float64

	store []T
	rng   pcgr.Rand

	nAdded, nRecords uint64
	saturated        bool
}

func newLogSketch[T Register](w, d uint, seed uint64, storageMax, defaultReserved uint64, opts ...LogOption) (*logSketch[T], error) {
	if d == 0 {
		d = DefaultDepth
	}
	if err := validateDims(w, d); err != nil {
		return nil, err
	}

	cfg := logConfig{numReserved: defaultReserved, maxCount: maxUint32}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.numReserved >= storageMax {
		return nil, sketcherr.NewConfigError("num_reserved", "must be less than the storage max")
	}

	cPrimeMax := storageMax - cfg.numReserved
	base, err := deriveBase(cPrimeMax, cfg.numReserved, cfg.maxCount)
	if err != nil {
		return nil, err
	}

	prngSeed := seed
	if cfg.hasPRNGSeed {
		prngSeed = cfg.prngSeed
	}

	return &logSketch[T]{
		w:           w,
		d:           d,
		seed:        seed,
		numReserved: cfg.numReserved,
		maxCount:    cfg.maxCount,
		storageMax:  storageMax,
		base:        base,
		logBase:     math.Log(base),
		store:       make([]T, w*d),
		rng:         pcgr.Rand{State: prngSeed, Inc: 0xcafebabe},
	}, nil
}

func (s *logSketch[T]) Width() uint      { return s.w }
func (s *logSketch[T]) Depth() uint      { return s.d }
func (s *logSketch[T]) Seed() uint64     { return s.seed }
func (s *logSketch[T]) Saturated() bool  { return s.saturated }
func (s *logSketch[T]) NAdded() uint64   { return s.nAdded }
func (s *logSketch[T]) NRecords() uint64 { return s.nRecords }

func (s *logSketch[T]) AddRecord()             { s.nRecords++ }
func (s *logSketch[T]) UpdateRecords(n uint64) { s.nRecords += n }

// randFloat draws a uniform sample in [0, 1) from the sketch's private
// PCG stream, at the same 1e6-bucket precision as the original
// count-min-log randFloat, so results stay reproducible under a fixed
// seed.
func (s *logSketch[T]) randFloat() float64 {
	return float64(s.rng.Next()%10e5) / 10e5
}

// decode maps a stored register value to its real-valued estimate:
// linear at or below numReserved, exponential above it.
func (s *logSketch[T]) decode(c uint64) uint64 {
	if c <= s.numReserved {
		return c
	}
	cPrime := float64(c - s.numReserved)
	v := (math.Pow(s.base, cPrime)-1)/(s.base-1) + float64(s.numReserved)
	return uint64(math.Round(v))
}

// encode finds the integer register value whose decoded estimate is
// nearest to v (round-to-nearest, ties to even), clamped to the storage
// range. Used by Merge to fold two decoded reals back into one register.
func (s *logSketch[T]) encode(v float64) T {
	if v <= float64(s.numReserved) {
		return T(math.RoundToEven(v))
	}
	if v >= float64(s.maxCount) {
		return T(s.storageMax)
	}
	nr := float64(s.numReserved)
	value := func(cPrime float64) float64 { return (math.Pow(s.base, cPrime)-1)/(s.base-1) + nr }
	cPrime := math.Floor(math.Log(1+(v-nr)*(s.base-1)) / s.logBase)
	if dLo, dHi := v-value(cPrime), value(cPrime+1)-v; dHi < dLo || (dHi == dLo && math.Mod(nr+cPrime, 2) != 0) {
		cPrime++
	}
	c := nr + cPrime
	if c > float64(s.storageMax) {
		c = float64(s.storageMax)
	}
	return T(c)
}

// increaseDecision reports whether a register currently holding c should
// advance by one: deterministic below numReserved,
// probability x^-(c-numReserved) above it.
func (s *logSketch[T]) increaseDecision(c uint64) bool {
	if c <= s.numReserved {
		return true
	}
	p := math.Pow(s.base, -float64(c-s.numReserved))
	return s.randFloat() < p
}

// Add performs the conservative update: find the row
// minimum, then spend up to count logical increments advancing every
// cell that shares it, one unit at a time. The set of advanced cells is
// chosen once, before the first increment: a cell that the rising value
// catches up with is not advanced, so when the rows start unequal a
// count > 1 add can end differently from count unit adds.
func (s *logSketch[T]) Add(key []byte, count ...uint64) {
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

	candidates := idx[:0:0]
	for _, i := range idx {
		if uint64(s.store[i]) == minVal {
			candidates = append(candidates, i)
		}
	}

	for step := uint64(0); step < c; step++ {
		if minVal >= s.storageMax {
			s.saturated = true
			break
		}
		if !s.increaseDecision(minVal) {
			continue
		}
		minVal++
		for _, i := range candidates {
			s.store[i] = T(minVal)
		}
	}

	s.nAdded += c
}

// Query returns the minimum decoded estimate across the d rows for key.
func (s *logSketch[T]) Query(key []byte) uint64 {
	idx := indices(key, s.seed, s.d, s.w)
	min := s.decode(uint64(s.store[idx[0]]))
	for _, i := range idx[1:] {
		if v := s.decode(uint64(s.store[i])); v < min {
			min = v
		}
	}
	return min
}

func (s *logSketch[T]) Update(keys [][]byte) {
	for _, k := range keys {
		s.Add(k)
	}
}

func (s *logSketch[T]) UpdateCounts(counts map[string]uint64) {
	for k, c := range counts {
		s.Add([]byte(k), c)
	}
}

// Merge folds other's decoded real counts into s: sum the
// two decoded values, then re-encode; sums at or below numReserved are
// stored linearly and sums at or above maxCount clamp to the storage max.
func (s *logSketch[T]) Merge(other *logSketch[T]) error {
	if s.w != other.w || s.d != other.d || s.seed != other.seed {
		return sketcherr.NewIncompatibleError("differing (w, d, seed)")
	}
	if s.numReserved != other.numReserved || s.maxCount != other.maxCount {
		return sketcherr.NewIncompatibleError("differing (num_reserved, max_count)")
	}

	for i := range s.store {
		v1 := float64(s.decode(uint64(s.store[i])))
		v2 := float64(other.decode(uint64(other.store[i])))
		v := v1 + v2
		if v >= float64(s.maxCount) {
			s.saturated = true
		}
		s.store[i] = s.encode(v)
	}
	s.nAdded += other.nAdded
	s.nRecords += other.nRecords
	return nil
}

// Store exposes the raw counter matrix for persistence.
func (s *logSketch[T]) Store() []T { return s.store }

// SetStore overwrites the counter matrix; used by the persistence loader.
func (s *logSketch[T]) SetStore(data []T) { copy(s.store, data) }

// SetCounters restores n_added/n_records without replaying Add; used by
// the persistence loader.
func (s *logSketch[T]) SetCounters(nAdded, nRecords uint64) {
	s.nAdded, s.nRecords = nAdded, nRecords
}

// NumReserved, MaxCount and Base expose the derived construction
// parameters, needed by sketchio to round-trip a log sketch exactly.
func (s *logSketch[T]) NumReserved() uint64 { return s.numReserved }
func (s *logSketch[T]) MaxCount() uint64    { return s.maxCount }
func (s *logSketch[T]) Base() float64       { return s.base }

// Log8Sketch is the 8-bit log-counter Count-Min Sketch variant.
type Log8Sketch struct{ *logSketch[uint8] }

// NewLog8 returns a new 8-bit log-counter CMS. Defaults: num_reserved=15,
// max_count=2^32-1.
func NewLog8(w, d uint, seed uint64, opts ...LogOption) (*Log8Sketch, error) {
	inner, err := newLogSketch[uint8](w, d, seed, math.MaxUint8, 15, opts...)
	if err != nil {
		return nil, err
	}
	return &Log8Sketch{inner}, nil
}

func (s *Log8Sketch) Variant() Variant { return Log8 }

func (s *Log8Sketch) Merge(other Sketch) error {
	o, ok := other.(*Log8Sketch)
	if !ok {
		return sketcherr.NewIncompatibleError("not a log8 CMS")
	}
	return s.logSketch.Merge(o.logSketch)
}

// Log16Sketch is the 16-bit log-counter Count-Min Sketch variant.
type Log16Sketch struct{ *logSketch[uint16] }

// NewLog16 returns a new 16-bit log-counter CMS. Defaults:
// num_reserved=1023, max_count=2^32-1.
func NewLog16(w, d uint, seed uint64, opts ...LogOption) (*Log16Sketch, error) {
	inner, err := newLogSketch[uint16](w, d, seed, math.MaxUint16, 1023, opts...)
	if err != nil {
		return nil, err
	}
	return &Log16Sketch{inner}, nil
}

func (s *Log16Sketch) Variant() Variant { return Log16 }

func (s *Log16Sketch) Merge(other Sketch) error {
	o, ok := other.(*Log16Sketch)
	if !ok {
		return sketcherr.NewIncompatibleError("not a log16 CMS")
	}
	return s.logSketch.Merge(o.logSketch)
}
