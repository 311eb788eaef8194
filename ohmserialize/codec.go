package ohmserialize

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// binWriter is a sticky-error little-endian writer: once a write fails every subsequent call is a
// no-op, so callers can chain a sequence of field writes and check the error once at the end.
type binWriter struct {
	w   io.Writer
	err error
}

func (bw *binWriter) u16(v uint16) {
	if bw.err != nil {
		return
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, bw.err = bw.w.Write(b[:])
}

func (bw *binWriter) u32(v uint32) {
	if bw.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, bw.err = bw.w.Write(b[:])
}

func (bw *binWriter) u64(v uint64) {
	if bw.err != nil {
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, bw.err = bw.w.Write(b[:])
}

func (bw *binWriter) i16(v int16) {
	bw.u16(uint16(v))
}

func (bw *binWriter) u8(v uint8) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write([]byte{v})
}

func (bw *binWriter) f64(v float64) {
	bw.u64(math.Float64bits(v))
}

func (bw *binWriter) bytes(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

// blob writes a u32 length prefix followed by b's bytes.
func (bw *binWriter) blob(b []byte) {
	bw.u32(uint32(len(b)))
	bw.bytes(b)
}

// str writes s as a blob.
func (bw *binWriter) str(s string) {
	bw.blob([]byte(s))
}

// binReader is the read-side counterpart of binWriter.
type binReader struct {
	r   io.Reader
	err error
}

func (br *binReader) fill(n int) []byte {
	if br.err != nil {
		return nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		br.err = err
		return nil
	}
	return buf
}

func (br *binReader) u16() uint16 {
	b := br.fill(2)
	if br.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (br *binReader) u32() uint32 {
	b := br.fill(4)
	if br.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (br *binReader) u64() uint64 {
	b := br.fill(8)
	if br.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (br *binReader) i16() int16 {
	return int16(br.u16())
}

func (br *binReader) u8() uint8 {
	b := br.fill(1)
	if br.err != nil {
		return 0
	}
	return b[0]
}

func (br *binReader) f64() float64 {
	return math.Float64frombits(br.u64())
}

// maxBlobLen bounds a length-prefixed blob's trusted size (spec.md §4.9's value-overflow kind):
// 1 GiB is far beyond any real layer name, schema, or single-region block.
const maxBlobLen = 1 << 30

func (br *binReader) blob() []byte {
	n := br.u32()
	if br.err != nil {
		return nil
	}
	if n > maxBlobLen {
		br.err = errors.Errorf("ohmserialize: blob length %d exceeds sanity limit", n)
		return nil
	}
	return br.fill(int(n))
}

func (br *binReader) str() string {
	return string(br.blob())
}
