package huffpack

import (
	"fmt"
)

// Archive layout:
//
//	padding  = uint8, stuffing bits in the final payload byte (0-7)
//	size     = uint8, alphabet size - 1
//	static:   size+1 pairs of (symbol uint8, rank uint8)
//	adaptive: size+1 symbols, strictly ascending
//	payload  = bit-packed codewords, least-significant bit first
//
// Static ranks are a permutation of [0, size]. Adaptive archives carry no
// ranks; recency position p is ranked p+1.
const (
	headerFixedBytes = 2
	maxAlphabetSize  = 256
	maxPadding       = 7
)

// Entry is one alphabet symbol of a header. Rank is unused in adaptive mode.
type Entry struct {
	Symbol byte
	Rank   uint8
}

// Header is the self-describing prefix of an archive.
type Header struct {
	Padding uint8
	Mode    Mode
	Entries []Entry
}

// Size returns the encoded length of h in bytes.
func (h *Header) Size() int {
	if h.Mode == ModeStatic {
		return headerFixedBytes + 2*len(h.Entries)
	}
	return headerFixedBytes + len(h.Entries)
}

// Alphabet returns the header symbols in stored order.
func (h *Header) Alphabet() []byte {
	out := make([]byte, len(h.Entries))
	for i, e := range h.Entries {
		out[i] = e.Symbol
	}
	return out
}

// Validate checks the structural invariants of h.
func (h *Header) Validate() error {
	if !h.Mode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownMode, uint8(h.Mode))
	}
	if h.Padding > maxPadding {
		return fmt.Errorf("%w: padding %d exceeds %d", ErrMalformedHeader, h.Padding, maxPadding)
	}
	n := len(h.Entries)
	if n == 0 || n > maxAlphabetSize {
		return fmt.Errorf("%w: alphabet size %d outside [1, %d]", ErrMalformedHeader, n, maxAlphabetSize)
	}

	switch h.Mode {
	case ModeStatic:
		var seenSym, seenRank [maxAlphabetSize]bool
		for i, e := range h.Entries {
			if seenSym[e.Symbol] {
				return fmt.Errorf("%w: duplicate symbol %#02x at entry %d", ErrMalformedHeader, e.Symbol, i)
			}
			seenSym[e.Symbol] = true
			if int(e.Rank) >= n {
				return fmt.Errorf("%w: rank %d of symbol %#02x outside [0, %d)", ErrMalformedHeader, e.Rank, e.Symbol, n)
			}
			if seenRank[e.Rank] {
				return fmt.Errorf("%w: duplicate rank %d at entry %d", ErrMalformedHeader, e.Rank, i)
			}
			seenRank[e.Rank] = true
		}
	case ModeAdaptive:
		for i := 1; i < n; i++ {
			if h.Entries[i-1].Symbol >= h.Entries[i].Symbol {
				return fmt.Errorf("%w: symbols not strictly ascending at entry %d", ErrMalformedHeader, i)
			}
		}
	}
	return nil
}

// AppendBinary appends the encoded header to b.
func (h *Header) AppendBinary(b []byte) ([]byte, error) {
	if err := h.Validate(); err != nil {
		return b, err
	}
	b = append(b, h.Padding, uint8(len(h.Entries)-1))
	for _, e := range h.Entries {
		if h.Mode == ModeStatic {
			b = append(b, e.Symbol, e.Rank)
		} else {
			b = append(b, e.Symbol)
		}
	}
	return b, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h *Header) MarshalBinary() ([]byte, error) {
	return h.AppendBinary(make([]byte, 0, h.Size()))
}

// ParseHeader decodes the header at the start of archive under the given
// mode. It returns the header and the offset of the payload.
func ParseHeader(archive []byte, mode Mode) (*Header, int, error) {
	if !mode.Valid() {
		return nil, 0, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(mode))
	}
	if len(archive) < headerFixedBytes {
		return nil, 0, fmt.Errorf("%w: %d bytes, need at least %d", ErrMalformedHeader, len(archive), headerFixedBytes)
	}

	n := int(archive[1]) + 1
	width := 1
	if mode == ModeStatic {
		width = 2
	}
	end := headerFixedBytes + n*width
	if len(archive) < end {
		return nil, 0, fmt.Errorf("%w: alphabet of %d symbols needs %d bytes, archive has %d", ErrMalformedHeader, n, end, len(archive))
	}

	h := &Header{
		Padding: archive[0],
		Mode:    mode,
		Entries: make([]Entry, n),
	}
	table := archive[headerFixedBytes:end]
	for i := range h.Entries {
		if mode == ModeStatic {
			h.Entries[i] = Entry{Symbol: table[2*i], Rank: table[2*i+1]}
		} else {
			h.Entries[i] = Entry{Symbol: table[i]}
		}
	}
	if err := h.Validate(); err != nil {
		return nil, 0, err
	}
	return h, end, nil
}
