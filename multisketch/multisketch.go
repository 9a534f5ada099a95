// Package multisketch bundles an HLL, a CMS, and an HH sketch behind
// one Add/Update/Merge/Save surface. package engine already returns the
// three together from a parallel_add session; this is the natural
// single-sketch-shaped wrapper around that triple for callers who don't
// need per-type control.
package multisketch

import (
	"os"
	"path/filepath"

	"github.com/seiflotfy/sketchkit/cms"
	"github.com/seiflotfy/sketchkit/engine"
	"github.com/seiflotfy/sketchkit/hh"
	"github.com/seiflotfy/sketchkit/hll"
	"github.com/seiflotfy/sketchkit/sketcherr"
	"github.com/seiflotfy/sketchkit/sketchio"
)

// Bundle is a convenience wrapper holding one HLL, one CMS, and one HH
// sketch, updated and merged together.
type Bundle struct {
	HLL *hll.Sketch
	CMS cms.Sketch
	HH  *hh.Sketch
}

// New builds a Bundle from the three per-type argument structs. Any of
// cmsArgs/hhArgs/hllArgs may be nil to omit that sketch from the bundle.
func New(cmsArgs *engine.CMSArgs, hhArgs *engine.HHArgs, hllArgs *engine.HLLArgs) (*Bundle, error) {
	b := &Bundle{}
	if hllArgs != nil {
		s, err := hll.New(hllArgs.P, hllArgs.Seed)
		if err != nil {
			return nil, err
		}
		b.HLL = s
	}
	if cmsArgs != nil {
		s, err := newCMS(cmsArgs)
		if err != nil {
			return nil, err
		}
		b.CMS = s
	}
	if hhArgs != nil {
		s, err := hh.New(hhArgs.Width, hhArgs.MaxKeyLen, hhArgs.Seed, hhArgs.Opts...)
		if err != nil {
			return nil, err
		}
		b.HH = s
	}
	return b, nil
}

func newCMS(a *engine.CMSArgs) (cms.Sketch, error) {
	switch a.Variant {
	case cms.Linear:
		return cms.NewLinear(a.Width, a.Depth, a.Seed)
	case cms.Log8:
		return cms.NewLog8(a.Width, a.Depth, a.Seed, a.LogOpts...)
	case cms.Log16:
		return cms.NewLog16(a.Width, a.Depth, a.Seed, a.LogOpts...)
	default:
		return nil, sketcherr.NewConfigError("variant", "unrecognized cms variant")
	}
}

// FromResult wraps an engine.Result's three sketches directly, avoiding
// a second construction pass after a parallel_add session.
func FromResult(r *engine.Result) *Bundle {
	return &Bundle{HLL: r.HLL, CMS: r.CMS, HH: r.HH}
}

// Add credits key (with optional count) to every sketch in the bundle
// that is present.
func (b *Bundle) Add(key []byte, count ...uint64) {
	if b.HLL != nil {
		b.HLL.Add(key)
	}
	if b.CMS != nil {
		b.CMS.Add(key, count...)
	}
	if b.HH != nil {
		b.HH.Add(key, count...)
	}
}

// Update adds every key in keys to every present sketch.
func (b *Bundle) Update(keys [][]byte) {
	if b.HLL != nil {
		b.HLL.Update(keys)
	}
	if b.CMS != nil {
		b.CMS.Update(keys)
	}
	if b.HH != nil {
		b.HH.Update(keys)
	}
}

// UpdateCounts adds every key→count pair to every present sketch.
func (b *Bundle) UpdateCounts(counts map[string]uint64) {
	if b.HLL != nil {
		b.HLL.UpdateCounts(counts)
	}
	if b.CMS != nil {
		b.CMS.UpdateCounts(counts)
	}
	if b.HH != nil {
		b.HH.UpdateCounts(counts)
	}
}

// AddRecord increments every present sketch's n_records by one.
func (b *Bundle) AddRecord() { b.UpdateRecords(1) }

// UpdateRecords increments every present sketch's n_records by n.
func (b *Bundle) UpdateRecords(n uint64) {
	if b.HLL != nil {
		b.HLL.UpdateRecords(n)
	}
	if b.CMS != nil {
		b.CMS.UpdateRecords(n)
	}
	if b.HH != nil {
		b.HH.UpdateRecords(n)
	}
}

// Save writes every present sketch under dir, one file per type
// (hll.skt, cms.skt, hh.skt).
func (b *Bundle) Save(dir string) error {
	if b.HLL != nil {
		if err := sketchio.SaveHLL(filepath.Join(dir, "hll.skt"), b.HLL); err != nil {
			return err
		}
	}
	if b.CMS != nil {
		if err := saveCMS(filepath.Join(dir, "cms.skt"), b.CMS); err != nil {
			return err
		}
	}
	if b.HH != nil {
		if err := sketchio.SaveHH(filepath.Join(dir, "hh.skt"), b.HH); err != nil {
			return err
		}
	}
	return nil
}

func saveCMS(path string, s cms.Sketch) error {
	switch sk := s.(type) {
	case *cms.LinearSketch:
		return sketchio.SaveLinear(path, sk)
	case *cms.Log8Sketch:
		return sketchio.SaveLog8(path, sk)
	case *cms.Log16Sketch:
		return sketchio.SaveLog16(path, sk)
	default:
		return sketcherr.NewConfigError("cms", "unrecognized cms concrete type")
	}
}

// Load reads back a Bundle saved by Save. Only the files actually
// present under dir are loaded; a caller that wants a specific shape
// should construct via New and Merge in saved state instead.
func Load(dir string) (*Bundle, error) {
	b := &Bundle{}

	if path := filepath.Join(dir, "hll.skt"); fileExists(path) {
		s, err := sketchio.LoadHLL(path)
		if err != nil {
			return nil, err
		}
		b.HLL = s
	}
	if path := filepath.Join(dir, "cms.skt"); fileExists(path) {
		s, err := loadCMS(path)
		if err != nil {
			return nil, err
		}
		b.CMS = s
	}
	if path := filepath.Join(dir, "hh.skt"); fileExists(path) {
		s, err := sketchio.LoadHH(path)
		if err != nil {
			return nil, err
		}
		b.HH = s
	}
	return b, nil
}

func loadCMS(path string) (cms.Sketch, error) {
	kind, err := sketchio.PeekKind(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case sketchio.KindCMSLinear:
		return sketchio.LoadLinear(path)
	case sketchio.KindCMSLog8:
		return sketchio.LoadLog8(path)
	case sketchio.KindCMSLog16:
		return sketchio.LoadLog16(path)
	default:
		return nil, sketcherr.NewFormatError("unexpected kind in cms.skt: " + string(kind))
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Merge folds other into b, type by type. Both bundles must carry the
// same present/absent shape, and each shared type must satisfy its own
// Merge preconditions.
func (b *Bundle) Merge(other *Bundle) error {
	if (b.HLL == nil) != (other.HLL == nil) || (b.CMS == nil) != (other.CMS == nil) || (b.HH == nil) != (other.HH == nil) {
		return sketcherr.NewIncompatibleError("bundles hold different sketch sets")
	}
	if b.HLL != nil {
		if err := b.HLL.Merge(other.HLL); err != nil {
			return err
		}
	}
	if b.CMS != nil {
		if err := b.CMS.Merge(other.CMS); err != nil {
			return err
		}
	}
	if b.HH != nil {
		if err := b.HH.Merge(other.HH); err != nil {
			return err
		}
	}
	return nil
}
