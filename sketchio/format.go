// Package sketchio implements the binary persistence format shared by
// every sketch kind: a small header (magic, kind, version),
// a config record, the running counters, and the raw counter/cell
// matrix, all little-endian so a file written by one implementation can
// be read by another.
package sketchio

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/seiflotfy/sketchkit/sketcherr"
)

// magic identifies a sketchkit container; checked on Load before any
// other field is trusted.
var magic = [4]byte{'S', 'K', 'T', 'K'}

// Version is the current on-disk format version.
const Version uint32 = 1

// Kind names the sketch variant stored in a container.
type Kind string

const (
	KindHLL       Kind = "hll"
	KindCMSLinear Kind = "cms-linear"
	KindCMSLog8   Kind = "cms-log8"
	KindCMSLog16  Kind = "cms-log16"
	KindHH        Kind = "hh"
)

type writer struct {
	w   io.Writer
	err error
}

func newWriter(w io.Writer) *writer { return &writer{w: w} }

func (wr *writer) header(kind Kind) {
	if wr.err != nil {
		return
	}
	if _, err := wr.w.Write(magic[:]); err != nil {
		wr.err = err
		return
	}
	wr.u32(Version)
	wr.bytes([]byte(kind))
}

func (wr *writer) u8(v uint8) {
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.Write([]byte{v})
}

func (wr *writer) u32(v uint32) {
	if wr.err != nil {
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, wr.err = wr.w.Write(buf[:])
}

func (wr *writer) u64(v uint64) {
	if wr.err != nil {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, wr.err = wr.w.Write(buf[:])
}

func (wr *writer) f64(v float64) {
	wr.u64(math.Float64bits(v))
}

func (wr *writer) bytes(b []byte) {
	wr.u32(uint32(len(b)))
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.Write(b)
}

func (wr *writer) raw(b []byte) {
	if wr.err != nil {
		return
	}
	_, wr.err = wr.w.Write(b)
}

func (wr *writer) u16s(v []uint16) {
	buf := make([]byte, len(v)*2)
	for i, x := range v {
		binary.LittleEndian.PutUint16(buf[i*2:], x)
	}
	wr.raw(buf)
}

func (wr *writer) u32s(v []uint32) {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], x)
	}
	wr.raw(buf)
}

type reader struct {
	r   io.Reader
	err error
}

func newReader(r io.Reader) *reader { return &reader{r: r} }

func (rd *reader) checkHeader() (Kind, uint32) {
	if rd.err != nil {
		return "", 0
	}
	var got [4]byte
	if _, err := io.ReadFull(rd.r, got[:]); err != nil {
		rd.err = err
		return "", 0
	}
	if got != magic {
		rd.err = sketcherr.NewFormatError("bad magic")
		return "", 0
	}
	version := rd.u32()
	kind := rd.bytes()
	return Kind(kind), version
}

func (rd *reader) u8() uint8 {
	if rd.err != nil {
		return 0
	}
	var buf [1]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		rd.err = err
		return 0
	}
	return buf[0]
}

func (rd *reader) u32() uint32 {
	if rd.err != nil {
		return 0
	}
	var buf [4]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		rd.err = err
		return 0
	}
	return binary.LittleEndian.Uint32(buf[:])
}

func (rd *reader) u64() uint64 {
	if rd.err != nil {
		return 0
	}
	var buf [8]byte
	if _, err := io.ReadFull(rd.r, buf[:]); err != nil {
		rd.err = err
		return 0
	}
	return binary.LittleEndian.Uint64(buf[:])
}

func (rd *reader) f64() float64 {
	return math.Float64frombits(rd.u64())
}

func (rd *reader) bytes() []byte {
	n := rd.u32()
	if rd.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		rd.err = err
		return nil
	}
	return buf
}

func (rd *reader) raw(n int) []byte {
	if rd.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		rd.err = err
		return nil
	}
	return buf
}

func (rd *reader) u16s(n int) []uint16 {
	buf := rd.raw(n * 2)
	if rd.err != nil {
		return nil
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}
	return out
}

func (rd *reader) u32s(n int) []uint32 {
	buf := rd.raw(n * 4)
	if rd.err != nil {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	return out
}

// PeekKind reads just enough of path to report which sketch kind it
// holds, without constructing the sketch itself. Callers that persist
// more than one sketch kind under a shared directory (package
// multisketch) use this to dispatch to the right Load function.
func PeekKind(path string) (Kind, error) {
	f, err := openFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rd := newReader(bufferedReader(f))
	kind, _ := rd.checkHeader()
	if rd.err != nil {
		return "", rd.err
	}
	return kind, nil
}

// createFile opens path for a fresh write, logging the attempt so a
// failed save during a long parallel_add session leaves a trace: no
// error here is ever silently swallowed.
func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("sketchio: failed to create file")
		return nil, err
	}
	return f, nil
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("sketchio: failed to open file")
		return nil, err
	}
	return f, nil
}

func bufferedReader(f *os.File) *bufio.Reader { return bufio.NewReader(f) }
func bufferedWriter(f *os.File) *bufio.Writer { return bufio.NewWriter(f) }
