package sketchio

import (
	"github.com/seiflotfy/sketchkit/hll"
	"github.com/seiflotfy/sketchkit/sketcherr"
)

// SaveHLL writes sketch to path in the sketchkit container format.
func SaveHLL(path string, sketch *hll.Sketch) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufferedWriter(f)
	wr := newWriter(bw)
	wr.header(KindHLL)
	wr.u8(uint8(sketch.P()))
	wr.u64(sketch.Seed())
	wr.u64(sketch.NAdded())
	wr.u64(sketch.NRecords())
	wr.bytes(sketch.Registers())
	if wr.err != nil {
		return wr.err
	}
	return bw.Flush()
}

// LoadHLL reads a container written by SaveHLL.
func LoadHLL(path string) (*hll.Sketch, error) {
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
	if kind != KindHLL {
		return nil, sketcherr.NewFormatError("unexpected kind: " + string(kind))
	}
	if version != Version {
		return nil, sketcherr.NewFormatError("unsupported version")
	}

	p := uint(rd.u8())
	seed := rd.u64()
	nAdded := rd.u64()
	nRecords := rd.u64()
	regs := rd.bytes()
	if rd.err != nil {
		return nil, rd.err
	}

	sketch, err := hll.New(p, seed)
	if err != nil {
		return nil, err
	}
	if uint64(len(regs)) != uint64(1)<<p {
		return nil, sketcherr.NewFormatError("register array size mismatch")
	}
	sketch.SetRegisters(regs)
	sketch.UpdateRecords(nRecords)
	hll.RestoreCounters(sketch, nAdded)
	return sketch, nil
}
