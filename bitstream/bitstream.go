// Package bitstream packs prefix codes into bytes and reads them back.
//
// Bits are packed least-significant bit first: the first bit written to a
// byte lands in bit 0. When the total bit count is not a multiple of eight
// the final byte is completed with zero high-order bits, and the number of
// those stuffed bits is reported as the padding.
package bitstream

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBadPadding is returned when a padding value cannot describe the payload.
var ErrBadPadding = errors.New("bitstream: invalid padding")

// Bit is a single binary digit, Zero or One.
type Bit uint8

const (
	Zero Bit = 0
	One  Bit = 1
)

// Code is an ordered sequence of bits.
type Code []Bit

// String renders the code as a string of '0' and '1' characters.
func (c Code) String() string {
	var sb strings.Builder
	sb.Grow(len(c))
	for _, b := range c {
		if b == Zero {
			sb.WriteByte('0')
		} else {
			sb.WriteByte('1')
		}
	}
	return sb.String()
}

// Padding returns the number of stuffing bits needed to complete the final
// byte of a stream holding the given number of bits.
func Padding(bits int) uint8 {
	return uint8((8 - bits%8) % 8)
}

// Writer accumulates bits into bytes.
type Writer struct {
	out  []byte
	cur  byte
	n    uint8
	bits int
}

// NewWriter returns a writer whose output buffer starts with room for
// sizeHint bytes.
func NewWriter(sizeHint int) *Writer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Writer{out: make([]byte, 0, sizeHint)}
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(b Bit) {
	if b != Zero {
		w.cur |= 1 << w.n
	}
	w.n++
	w.bits++
	if w.n == 8 {
		w.out = append(w.out, w.cur)
		w.cur, w.n = 0, 0
	}
}

// WriteCode appends every bit of c in order.
func (w *Writer) WriteCode(c Code) {
	for _, b := range c {
		w.WriteBit(b)
	}
}

// Finish flushes a partially filled byte and returns the padding, the
// number of zero high-order bits stuffed into it. Finish is idempotent.
func (w *Writer) Finish() uint8 {
	if w.n > 0 {
		w.out = append(w.out, w.cur)
		w.cur, w.n = 0, 0
	}
	return Padding(w.bits)
}

// Bytes returns the packed output. Call Finish first to include a trailing
// partial byte.
func (w *Writer) Bytes() []byte {
	return w.out
}

// BitLen returns the number of meaningful bits written.
func (w *Writer) BitLen() int {
	return w.bits
}

// Reader yields the meaningful bits of a packed payload in write order.
type Reader struct {
	data    []byte
	padding uint8
	pos     int
	cur     byte
	n       uint8
}

// NewReader returns a reader over payload whose final byte carries padding
// stuffed high-order bits. The stuffed bits must be zero.
func NewReader(payload []byte, padding uint8) (*Reader, error) {
	if padding > 7 {
		return nil, fmt.Errorf("%w: %d exceeds 7", ErrBadPadding, padding)
	}
	if padding > 0 {
		if len(payload) == 0 {
			return nil, fmt.Errorf("%w: %d bits declared for an empty payload", ErrBadPadding, padding)
		}
		if last := payload[len(payload)-1]; last>>(8-padding) != 0 {
			return nil, fmt.Errorf("%w: non-zero stuffing bits in final byte %#02x", ErrBadPadding, last)
		}
	}
	return &Reader{data: payload, padding: padding}, nil
}

// ReadBit returns the next bit, or io.EOF once every meaningful bit has
// been consumed.
func (r *Reader) ReadBit() (Bit, error) {
	if r.n == 0 {
		if r.pos >= len(r.data) {
			return Zero, io.EOF
		}
		r.cur = r.data[r.pos]
		r.n = 8
		if r.pos == len(r.data)-1 {
			r.n -= r.padding
		}
		r.pos++
	}
	b := Bit(r.cur & 1)
	r.cur >>= 1
	r.n--
	return b, nil
}

// Remaining returns the number of meaningful bits not yet read.
func (r *Reader) Remaining() int {
	rest := len(r.data) - r.pos
	if rest == 0 {
		return int(r.n)
	}
	return int(r.n) + rest*8 - int(r.padding)
}
