package sketchio

import (
	"github.com/seiflotfy/sketchkit/hh"
	"github.com/seiflotfy/sketchkit/sketcherr"
)

// SaveHH writes a Topkapi heavy-hitters sketch to path.
func SaveHH(path string, s *hh.Sketch) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufferedWriter(f)
	wr := newWriter(bw)
	wr.header(KindHH)
	wr.u32(uint32(s.Width()))
	wr.u32(uint32(s.Depth()))
	wr.u32(uint32(s.MaxKeyLen()))
	wr.f64(s.Phi())
	wr.u64(s.Seed())
	wr.u64(s.NAdded())
	wr.u64(s.NRecords())

	cells := s.Cells()
	for _, c := range cells {
		wr.u8(c.Length)
		wr.u32(c.Counter)
		wr.raw(c.Key)
	}
	if wr.err != nil {
		return wr.err
	}
	return bw.Flush()
}

// LoadHH reads a container written by SaveHH.
func LoadHH(path string) (*hh.Sketch, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := newReader(bufferedReader(f))
	kind, version := rd.checkHeader()
	if rd.err != nil {
		return nil, rd.err
	}
	if kind != KindHH {
		return nil, sketcherr.NewFormatError("unexpected kind: " + string(kind))
	}
	if version != Version {
		return nil, sketcherr.NewFormatError("unsupported version")
	}

	w := uint(rd.u32())
	d := uint(rd.u32())
	maxKeyLen := uint(rd.u32())
	phi := rd.f64()
	seed := rd.u64()
	nAdded := rd.u64()
	nRecords := rd.u64()
	if rd.err != nil {
		return nil, rd.err
	}

	n := int(w * d)
	keys := make([][]byte, n)
	lengths := make([]uint8, n)
	counters := make([]uint32, n)
	for i := 0; i < n; i++ {
		lengths[i] = rd.u8()
		counters[i] = rd.u32()
		keys[i] = rd.raw(int(maxKeyLen))
	}
	if rd.err != nil {
		return nil, rd.err
	}

	s, err := hh.New(w, maxKeyLen, seed, hh.WithDepth(d), hh.WithPhi(phi))
	if err != nil {
		return nil, err
	}
	s.SetCells(keys, lengths, counters)
	s.SetCounters(nAdded, nRecords)
	return s, nil
}
