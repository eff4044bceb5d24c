package codetree

import "github.com/seiflotfy/huffpack/pqueue"

// Huffman builds trees bottom-up by repeatedly merging the two lightest
// subtrees. The first subtree popped becomes the left child.
type Huffman struct{}

// Build implements Builder.
func (Huffman) Build(ranked []Ranked) (*Tree, error) {
	seeds, err := canonical(ranked)
	if err != nil {
		return nil, err
	}
	q := pqueue.New[*Node](len(seeds))
	for _, r := range seeds {
		q.Push(newLeaf(r.Symbol), int64(r.Rank))
	}
	for q.Len() > 1 {
		low, lw := q.Pop()
		high, hw := q.Pop()
		q.Push(newInternal(low, high), lw+hw)
	}
	root, _ := q.Pop()
	return &Tree{root: root, leaves: len(seeds)}, nil
}
