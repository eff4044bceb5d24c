// Package model derives the ranked symbols a code tree is built from.
//
// Static models rank every distinct byte of the input once. Adaptive models
// rank positions in a recency list instead: the list starts as the sorted
// alphabet and the entry just coded is moved to its end, so both sides of
// the codec evolve the same list from the same header.
package model

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/seiflotfy/huffpack/codetree"
)

// ErrEmptyInput is returned when ranks are requested for empty data.
var ErrEmptyInput = errors.New("model: empty input")

// Ranking selects how a static model orders the alphabet.
type Ranking uint8

const (
	// RankAlphabetical ranks symbols by byte value.
	RankAlphabetical Ranking = iota
	// RankFrequency ranks symbols by occurrence count, rarest first, so the
	// most frequent symbols carry the highest weight.
	RankFrequency
)

func (r Ranking) String() string {
	switch r {
	case RankAlphabetical:
		return "alphabetical"
	case RankFrequency:
		return "frequency"
	}
	return fmt.Sprintf("ranking(%d)", uint8(r))
}

// ParseRanking parses a ranking name as printed by String.
func ParseRanking(name string) (Ranking, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "alphabetical", "":
		return RankAlphabetical, nil
	case "frequency":
		return RankFrequency, nil
	}
	return 0, fmt.Errorf("model: unknown ranking %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (r Ranking) MarshalText() ([]byte, error) {
	if r > RankFrequency {
		return nil, fmt.Errorf("model: unknown ranking %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Ranking) UnmarshalText(text []byte) error {
	v, err := ParseRanking(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Histogram counts the occurrences of every byte value in data.
func Histogram(data []byte) [256]int {
	var h [256]int
	for _, b := range data {
		h[b]++
	}
	return h
}

// Alphabet returns the distinct bytes of data in ascending order.
func Alphabet(data []byte) []byte {
	h := Histogram(data)
	return alphabetOf(&h)
}

func alphabetOf(h *[256]int) []byte {
	var out []byte
	for b, n := range h {
		if n > 0 {
			out = append(out, byte(b))
		}
	}
	return out
}

// StaticRanks ranks the alphabet of data. The ranks form the dense range
// [0, n) for an alphabet of n symbols.
func StaticRanks(data []byte, order Ranking) ([]codetree.Ranked, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	h := Histogram(data)
	alphabet := alphabetOf(&h)

	switch order {
	case RankAlphabetical:
	case RankFrequency:
		// Ties keep byte order because the alphabet is already sorted.
		slices.SortStableFunc(alphabet, func(a, b byte) int {
			return cmp.Compare(h[a], h[b])
		})
	default:
		return nil, fmt.Errorf("model: unknown ranking %d", uint8(order))
	}

	ranked := make([]codetree.Ranked, len(alphabet))
	for rank, sym := range alphabet {
		ranked[rank] = codetree.Ranked{Symbol: int(sym), Rank: rank}
	}
	slices.SortFunc(ranked, func(a, b codetree.Ranked) int {
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return ranked, nil
}

// PositionRanks returns the tree input of an adaptive model over n symbols:
// one leaf per recency position with rank position+1.
func PositionRanks(n int) []codetree.Ranked {
	ranked := make([]codetree.Ranked, n)
	for pos := range ranked {
		ranked[pos] = codetree.Ranked{Symbol: pos, Rank: pos + 1}
	}
	return ranked
}

// Recency is the move-to-end list of an adaptive model. It is not safe for
// concurrent use.
type Recency struct {
	order []byte
}

// NewRecency returns a list seeded with a copy of alphabet.
func NewRecency(alphabet []byte) *Recency {
	return &Recency{order: bytes.Clone(alphabet)}
}

// Len returns the number of symbols in the list.
func (r *Recency) Len() int {
	return len(r.order)
}

// Position returns the index of sym in the list.
func (r *Recency) Position(sym byte) (int, bool) {
	pos := bytes.IndexByte(r.order, sym)
	return pos, pos >= 0
}

// At returns the symbol at pos.
func (r *Recency) At(pos int) byte {
	return r.order[pos]
}

// Touch moves the symbol at pos to the end of the list, shifting the
// symbols behind it forward by one.
func (r *Recency) Touch(pos int) {
	sym := r.order[pos]
	copy(r.order[pos:], r.order[pos+1:])
	r.order[len(r.order)-1] = sym
}

// Order returns a snapshot of the list.
func (r *Recency) Order() []byte {
	return bytes.Clone(r.order)
}
