// Package codetree builds binary prefix-code trees from ranked symbols and
// derives the code table of a tree.
//
// Two construction strategies are provided. Huffman merges the two lightest
// subtrees bottom-up until one tree remains. Fano recursively partitions
// the weight-sorted symbols top-down at the most balanced split. Both are
// deterministic: the same ranked input always produces the same tree, which
// is what lets a decoder rebuild the encoder's tree from an archive header.
package codetree

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/seiflotfy/huffpack/bitstream"
)

var (
	// ErrEmptyAlphabet is returned when a tree is requested for no symbols.
	ErrEmptyAlphabet = errors.New("codetree: empty alphabet")

	// ErrDuplicateSymbol is returned when a symbol appears twice in the
	// ranked input.
	ErrDuplicateSymbol = errors.New("codetree: duplicate symbol")
)

// Symbol identifies a leaf. Static models use byte values, adaptive models
// use recency positions.
type Symbol = int

// Ranked pairs a symbol with its rank, the weight handed to a builder.
type Ranked struct {
	Symbol Symbol
	Rank   int
}

// Node is either a leaf holding a symbol or an internal node with exactly
// two children.
type Node struct {
	symbol      Symbol
	left, right *Node
}

func newLeaf(sym Symbol) *Node {
	return &Node{symbol: sym}
}

func newInternal(left, right *Node) *Node {
	return &Node{symbol: -1, left: left, right: right}
}

// Leaf reports whether n is a leaf.
func (n *Node) Leaf() bool {
	return n.left == nil
}

// Symbol returns the symbol of a leaf, or -1 for an internal node.
func (n *Node) Symbol() Symbol {
	return n.symbol
}

// Left returns the child reached by a 0 bit.
func (n *Node) Left() *Node { return n.left }

// Right returns the child reached by a 1 bit.
func (n *Node) Right() *Node { return n.right }

// Next returns the child selected by b. It must not be called on a leaf.
func (n *Node) Next(b bitstream.Bit) *Node {
	if b == bitstream.Zero {
		return n.left
	}
	return n.right
}

// Tree is an immutable code tree.
type Tree struct {
	root   *Node
	leaves int
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Leaves returns the number of symbols in the tree.
func (t *Tree) Leaves() int {
	return t.leaves
}

// Depth returns the length of the longest root-to-leaf path. A single-leaf
// tree has depth 0.
func (t *Tree) Depth() int {
	var depth func(n *Node) int
	depth = func(n *Node) int {
		if n.Leaf() {
			return 0
		}
		return 1 + max(depth(n.left), depth(n.right))
	}
	return depth(t.root)
}

// String renders the tree one node per line, children indented beneath
// their parent and prefixed with the bit that selects them.
func (t *Tree) String() string {
	var sb strings.Builder
	var dump func(n *Node, prefix string, depth int)
	dump = func(n *Node, prefix string, depth int) {
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString(prefix)
		if n.Leaf() {
			fmt.Fprintf(&sb, "leaf %d\n", n.symbol)
			return
		}
		sb.WriteString("node\n")
		dump(n.left, "0: ", depth+1)
		dump(n.right, "1: ", depth+1)
	}
	dump(t.root, "", 0)
	return sb.String()
}

// Builder constructs a code tree from ranked symbols.
type Builder interface {
	Build(ranked []Ranked) (*Tree, error)
}

// canonical returns a copy of ranked sorted by (rank, symbol) after
// rejecting empty input, duplicate symbols and negative ranks.
func canonical(ranked []Ranked) ([]Ranked, error) {
	if len(ranked) == 0 {
		return nil, ErrEmptyAlphabet
	}
	seeds := slices.Clone(ranked)
	slices.SortFunc(seeds, func(a, b Ranked) int {
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	for i, r := range seeds {
		if r.Rank < 0 {
			return nil, fmt.Errorf("codetree: negative rank %d for symbol %d", r.Rank, r.Symbol)
		}
		if i > 0 && seeds[i-1].Symbol == r.Symbol {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateSymbol, r.Symbol)
		}
	}
	slices.SortStableFunc(seeds, func(a, b Ranked) int {
		return cmp.Compare(a.Rank, b.Rank)
	})
	return seeds, nil
}

// Strategy selects a tree construction algorithm.
type Strategy uint8

const (
	StrategyHuffman Strategy = iota
	StrategyFano
)

// Builder returns the builder implementing s, or nil for an unknown value.
func (s Strategy) Builder() Builder {
	switch s {
	case StrategyHuffman:
		return Huffman{}
	case StrategyFano:
		return Fano{}
	}
	return nil
}

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	return s.Builder() != nil
}

func (s Strategy) String() string {
	switch s {
	case StrategyHuffman:
		return "huffman"
	case StrategyFano:
		return "fano"
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// ParseStrategy parses a strategy name as printed by String.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "huffman", "":
		return StrategyHuffman, nil
	case "fano", "shannon-fano":
		return StrategyFano, nil
	}
	return 0, fmt.Errorf("codetree: unknown strategy %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("codetree: unknown strategy %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	v, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
