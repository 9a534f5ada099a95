package sketchio

import (
	"github.com/seiflotfy/sketchkit/cms"
	"github.com/seiflotfy/sketchkit/sketcherr"
)

// SaveLinear writes a linear CMS to path.
func SaveLinear(path string, s *cms.LinearSketch) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufferedWriter(f)
	wr := newWriter(bw)
	wr.header(KindCMSLinear)
	wr.u32(uint32(s.Width()))
	wr.u32(uint32(s.Depth()))
	wr.u64(s.Seed())
	wr.u64(s.NAdded())
	wr.u64(s.NRecords())
	wr.u32s(s.Store())
	if wr.err != nil {
		return wr.err
	}
	return bw.Flush()
}

// LoadLinear reads a container written by SaveLinear.
func LoadLinear(path string) (*cms.LinearSketch, error) {
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
	if kind != KindCMSLinear {
		return nil, sketcherr.NewFormatError("unexpected kind: " + string(kind))
	}
	if version != Version {
		return nil, sketcherr.NewFormatError("unsupported version")
	}

	w := uint(rd.u32())
	d := uint(rd.u32())
	seed := rd.u64()
	nAdded := rd.u64()
	nRecords := rd.u64()
	if rd.err != nil {
		return nil, rd.err
	}
	data := rd.u32s(int(w * d))
	if rd.err != nil {
		return nil, rd.err
	}
	if uint(len(data)) != w*d {
		return nil, sketcherr.NewFormatError("data size mismatch for declared (w, d)")
	}

	s, err := cms.NewLinear(w, d, seed)
	if err != nil {
		return nil, err
	}
	s.SetStore(data)
	s.SetCounters(nAdded, nRecords)
	return s, nil
}

// SaveLog8 writes an 8-bit log-counter CMS to path.
func SaveLog8(path string, s *cms.Log8Sketch) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufferedWriter(f)
	wr := newWriter(bw)
	wr.header(KindCMSLog8)
	wr.u32(uint32(s.Width()))
	wr.u32(uint32(s.Depth()))
	wr.u64(s.Seed())
	wr.u64(s.NumReserved())
	wr.u64(s.MaxCount())
	wr.u64(s.NAdded())
	wr.u64(s.NRecords())
	wr.raw(s.Store())
	if wr.err != nil {
		return wr.err
	}
	return bw.Flush()
}

// LoadLog8 reads a container written by SaveLog8.
func LoadLog8(path string) (*cms.Log8Sketch, error) {
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
	if kind != KindCMSLog8 {
		return nil, sketcherr.NewFormatError("unexpected kind: " + string(kind))
	}
	if version != Version {
		return nil, sketcherr.NewFormatError("unsupported version")
	}

	w := uint(rd.u32())
	d := uint(rd.u32())
	seed := rd.u64()
	numReserved := rd.u64()
	maxCount := rd.u64()
	nAdded := rd.u64()
	nRecords := rd.u64()
	if rd.err != nil {
		return nil, rd.err
	}
	data := rd.raw(int(w * d))
	if rd.err != nil {
		return nil, rd.err
	}
	if uint(len(data)) != w*d {
		return nil, sketcherr.NewFormatError("data size mismatch for declared (w, d)")
	}

	s, err := cms.NewLog8(w, d, seed, cms.WithNumReserved(numReserved), cms.WithMaxCount(maxCount))
	if err != nil {
		return nil, err
	}
	s.SetStore(data)
	s.SetCounters(nAdded, nRecords)
	return s, nil
}

// SaveLog16 writes a 16-bit log-counter CMS to path.
func SaveLog16(path string, s *cms.Log16Sketch) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufferedWriter(f)
	wr := newWriter(bw)
	wr.header(KindCMSLog16)
	wr.u32(uint32(s.Width()))
	wr.u32(uint32(s.Depth()))
	wr.u64(s.Seed())
	wr.u64(s.NumReserved())
	wr.u64(s.MaxCount())
	wr.u64(s.NAdded())
	wr.u64(s.NRecords())
	wr.u16s(s.Store())
	if wr.err != nil {
		return wr.err
	}
	return bw.Flush()
}

// LoadLog16 reads a container written by SaveLog16.
func LoadLog16(path string) (*cms.Log16Sketch, error) {
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
	if kind != KindCMSLog16 {
		return nil, sketcherr.NewFormatError("unexpected kind: " + string(kind))
	}
	if version != Version {
		return nil, sketcherr.NewFormatError("unsupported version")
	}

	w := uint(rd.u32())
	d := uint(rd.u32())
	seed := rd.u64()
	numReserved := rd.u64()
	maxCount := rd.u64()
	nAdded := rd.u64()
	nRecords := rd.u64()
	if rd.err != nil {
		return nil, rd.err
	}
	data := rd.u16s(int(w * d))
	if rd.err != nil {
		return nil, rd.err
	}
	if uint(len(data)) != w*d {
		return nil, sketcherr.NewFormatError("data size mismatch for declared (w, d)")
	}

	s, err := cms.NewLog16(w, d, seed, cms.WithNumReserved(numReserved), cms.WithMaxCount(maxCount))
	if err != nil {
		return nil, err
	}
	s.SetStore(data)
	s.SetCounters(nAdded, nRecords)
	return s, nil
}
