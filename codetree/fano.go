package codetree

// Fano builds trees top-down. The weight-sorted symbols are split where the
// two halves are closest in total weight; among equally balanced splits the
// one nearest the middle wins, looking left before right. Each half is split
// again until it holds a single symbol.
type Fano struct{}

// Build implements Builder.
func (Fano) Build(ranked []Ranked) (*Tree, error) {
	seeds, err := canonical(ranked)
	if err != nil {
		return nil, err
	}
	prefix := make([]int64, len(seeds)+1)
	for i, r := range seeds {
		prefix[i+1] = prefix[i] + int64(r.Rank)
	}
	return &Tree{root: fanoPartition(seeds, prefix, 0, len(seeds)), leaves: len(seeds)}, nil
}

// fanoPartition builds the subtree for seeds[lo:hi].
func fanoPartition(seeds []Ranked, prefix []int64, lo, hi int) *Node {
	if hi-lo == 1 {
		return newLeaf(seeds[lo].Symbol)
	}
	m := fanoSplit(prefix, lo, hi)
	return newInternal(fanoPartition(seeds, prefix, lo, m), fanoPartition(seeds, prefix, m, hi))
}

// fanoSplit returns m in (lo, hi) such that seeds[lo:m] and seeds[m:hi]
// differ least in total weight. Candidates are visited outward from the
// midpoint and only a strictly better imbalance replaces the current best.
func fanoSplit(prefix []int64, lo, hi int) int {
	total := prefix[hi] - prefix[lo]
	imbalance := func(m int) int64 {
		left := prefix[m] - prefix[lo]
		d := 2*left - total
		if d < 0 {
			return -d
		}
		return d
	}

	mid := lo + (hi-lo)/2
	best, bestDiff := mid, imbalance(mid)
	for d := 1; ; d++ {
		l, r := mid-d, mid+d
		lok, rok := l > lo, r < hi
		if !lok && !rok {
			break
		}
		if lok {
			if diff := imbalance(l); diff < bestDiff {
				best, bestDiff = l, diff
			}
		}
		if rok {
			if diff := imbalance(r); diff < bestDiff {
				best, bestDiff = r, diff
			}
		}
	}
	return best
}
