package codetree

import (
	"fmt"
	"slices"

	"github.com/seiflotfy/huffpack/bitstream"
)

// Table maps every symbol of a tree to its code.
type Table struct {
	codes   []bitstream.Code // indexed by symbol, nil when absent
	symbols []Symbol
}

// NewTable derives the code table of t by a depth-first walk that pushes
// the branch bit before descending and pops it on return. The lone symbol
// of a single-leaf tree is assigned the code 1.
func NewTable(t *Tree) *Table {
	tbl := &Table{symbols: make([]Symbol, 0, t.leaves)}
	root := t.Root()
	if root.Leaf() {
		tbl.set(root.symbol, bitstream.Code{bitstream.One})
		return tbl
	}
	path := make(bitstream.Code, 0, 16)
	tbl.walk(root, &path)
	slices.Sort(tbl.symbols)
	return tbl
}

func (tbl *Table) walk(n *Node, path *bitstream.Code) {
	if n.Leaf() {
		tbl.set(n.symbol, slices.Clone(*path))
		return
	}
	*path = append(*path, bitstream.Zero)
	tbl.walk(n.left, path)
	*path = (*path)[:len(*path)-1]

	*path = append(*path, bitstream.One)
	tbl.walk(n.right, path)
	*path = (*path)[:len(*path)-1]
}

func (tbl *Table) set(sym Symbol, code bitstream.Code) {
	if sym >= len(tbl.codes) {
		tbl.codes = slices.Grow(tbl.codes, sym+1-len(tbl.codes))[:sym+1]
	}
	tbl.codes[sym] = code
	tbl.symbols = append(tbl.symbols, sym)
}

// Code returns the code of sym.
func (tbl *Table) Code(sym Symbol) (bitstream.Code, bool) {
	if sym < 0 || sym >= len(tbl.codes) || tbl.codes[sym] == nil {
		return nil, false
	}
	return tbl.codes[sym], true
}

// Len returns the number of symbols in the table.
func (tbl *Table) Len() int {
	return len(tbl.symbols)
}

// Symbols returns the table's symbols in ascending order.
func (tbl *Table) Symbols() []Symbol {
	return slices.Clone(tbl.symbols)
}

// Validate checks that no code is empty and no code is a prefix of another.
func (tbl *Table) Validate() error {
	for i, a := range tbl.symbols {
		ca := tbl.codes[a]
		if len(ca) == 0 {
			return fmt.Errorf("codetree: empty code for symbol %d", a)
		}
		for _, b := range tbl.symbols[i+1:] {
			cb := tbl.codes[b]
			n := min(len(ca), len(cb))
			if slices.Equal(ca[:n], cb[:n]) {
				return fmt.Errorf("codetree: code %s of symbol %d and code %s of symbol %d share a prefix", ca, a, cb, b)
			}
		}
	}
	return nil
}
