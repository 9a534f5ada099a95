// Package engine implements parallel_add: a fan-out ingest
// engine that builds any subset of HLL/CMS/HH sketches from a sharded
// input in one pass, using N independent workers and a deterministic
// pairwise tournament merge. It is structurally the errgroup-plus-
// bounded-channel worker-pool idiom used by josedab-weaviate-rfcs's
// ParallelExecutor, generalized from "N independent tasks" to "N
// independent sketch-building workers that must be merged afterward".
package engine

import (
	"encoding/binary"

	"github.com/seiflotfy/sketchkit/cms"
	"github.com/seiflotfy/sketchkit/hash"
	"github.com/seiflotfy/sketchkit/hh"
	"github.com/seiflotfy/sketchkit/hll"
	"github.com/seiflotfy/sketchkit/sketcherr"
)

// CMSArgs configures the Count-Min Sketch a session builds, if any.
type CMSArgs struct {
	Variant cms.Variant
	Width   uint
	Depth   uint
	Seed    uint64
	LogOpts []cms.LogOption
}

func (a *CMSArgs) build(prngSeed uint64) (cms.Sketch, error) {
	switch a.Variant {
	case cms.Linear:
		return cms.NewLinear(a.Width, a.Depth, a.Seed)
	case cms.Log8:
		return cms.NewLog8(a.Width, a.Depth, a.Seed, a.logOpts(prngSeed)...)
	case cms.Log16:
		return cms.NewLog16(a.Width, a.Depth, a.Seed, a.logOpts(prngSeed)...)
	default:
		return nil, sketcherr.NewConfigError("variant", "unrecognized cms variant")
	}
}

func (a *CMSArgs) logOpts(prngSeed uint64) []cms.LogOption {
	opts := make([]cms.LogOption, 0, len(a.LogOpts)+1)
	opts = append(opts, a.LogOpts...)
	opts = append(opts, cms.WithPRNGSeed(prngSeed))
	return opts
}

// HHArgs configures the Topkapi heavy-hitters sketch a session builds,
// if any.
type HHArgs struct {
	Width     uint
	MaxKeyLen uint
	Seed      uint64
	Opts      []hh.Option
}

func (a *HHArgs) build() (*hh.Sketch, error) {
	return hh.New(a.Width, a.MaxKeyLen, a.Seed, a.Opts...)
}

// HLLArgs configures the HyperLogLog++ sketch a session builds, if any.
type HLLArgs struct {
	P    uint
	Seed uint64
}

func (a *HLLArgs) build() (*hll.Sketch, error) {
	return hll.New(a.P, a.Seed)
}

// Request selects which sketch types a parallel_add session builds.
// A nil field means that sketch type is not requested.
type Request struct {
	CMS *CMSArgs
	HH  *HHArgs
	HLL *HLLArgs
}

func (r Request) empty() bool {
	return r.CMS == nil && r.HH == nil && r.HLL == nil
}

// Sketches bundles one worker's private view over the requested sketch
// types, always in alphabetical argument order (cms, hh, hll) so
// process_fn sees a stable parameter shape regardless of which subset
// was requested.
type Sketches struct {
	CMS cms.Sketch
	HH  *hh.Sketch
	HLL *hll.Sketch
}

// build constructs one worker's private sketch set. CMS log variants
// get an independent PRNG stream derived from (baseSeed, workerID) via
// cms.WithPRNGSeed, while the hash seed itself (a.Seed) is shared across
// every worker so the resulting sketches remain mergeable
// — two sketches built from the same seed hash identically.
func (r Request) build(workerID int, baseSeed uint64) (*Sketches, error) {
	sk := &Sketches{}
	if r.CMS != nil {
		s, err := r.CMS.build(workerPRNGSeed(baseSeed, workerID))
		if err != nil {
			return nil, err
		}
		sk.CMS = s
	}
	if r.HH != nil {
		s, err := r.HH.build()
		if err != nil {
			return nil, err
		}
		sk.HH = s
	}
	if r.HLL != nil {
		s, err := r.HLL.build()
		if err != nil {
			return nil, err
		}
		sk.HLL = s
	}
	return sk, nil
}

// workerPRNGSeed derives a deterministic, independent PRNG seed per
// worker by hashing the worker id under the session's base seed, so
// every parallel_add session with the same (base_seed, n_workers) draws
// the same per-worker CMS-log randomness regardless of scheduling.
func workerPRNGSeed(baseSeed uint64, workerID int) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(workerID))
	return hash.FastHash64(buf[:], baseSeed)
}

// creditRecords applies process_fn's reported record count to every
// requested sketch's n_records counter.
func (sk *Sketches) creditRecords(n uint64) {
	if sk.CMS != nil {
		sk.CMS.UpdateRecords(n)
	}
	if sk.HH != nil {
		sk.HH.UpdateRecords(n)
	}
	if sk.HLL != nil {
		sk.HLL.UpdateRecords(n)
	}
}

// Batch is a set of keys (or key→count pairs) a YieldsBatches process_fn
// hands the engine to ingest via Update/UpdateCounts, the second of the
// two calling conventions process_fn can take.
type Batch struct {
	Keys   [][]byte
	Counts map[string]uint64
}

func (sk *Sketches) ingest(b Batch) {
	if len(b.Keys) > 0 {
		if sk.CMS != nil {
			sk.CMS.Update(b.Keys)
		}
		if sk.HH != nil {
			sk.HH.Update(b.Keys)
		}
		if sk.HLL != nil {
			sk.HLL.Update(b.Keys)
		}
	}
	if len(b.Counts) > 0 {
		if sk.CMS != nil {
			sk.CMS.UpdateCounts(b.Counts)
		}
		if sk.HH != nil {
			sk.HH.UpdateCounts(b.Counts)
		}
		if sk.HLL != nil {
			sk.HLL.UpdateCounts(b.Counts)
		}
	}
}

// merge folds other into sk, type by type. Called only by the
// tournament merge, which guarantees sk and other were built from the
// same Request and so agree on which fields are non-nil.
func (sk *Sketches) merge(other *Sketches) error {
	if sk.CMS != nil {
		if err := sk.CMS.Merge(other.CMS); err != nil {
			return err
		}
	}
	if sk.HH != nil {
		if err := sk.HH.Merge(other.HH); err != nil {
			return err
		}
	}
	if sk.HLL != nil {
		if err := sk.HLL.Merge(other.HLL); err != nil {
			return err
		}
	}
	return nil
}

// Result is the final, merged sketch set returned by a parallel_add
// session.
type Result struct {
	CMS       cms.Sketch
	HH        *hh.Sketch
	HLL       *hll.Sketch
	SessionID string
}
