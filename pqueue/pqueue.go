// Package pqueue implements a min-priority queue of weighted values.
//
// Internally the queue is based on the standard heap package. Items with
// equal weights are popped in the order they were pushed, which keeps code
// tree construction a pure function of the order the queue was seeded in.
package pqueue

import "container/heap"

// item is a value ordered by weight, then by insertion sequence.
type item[T any] struct {
	value  T
	weight int64
	seq    uint64
}

// items implements heap.Interface.
type items[T any] []*item[T]

func (s items[T]) Len() int { return len(s) }

func (s items[T]) Less(i, j int) bool {
	if s[i].weight != s[j].weight {
		return s[i].weight < s[j].weight
	}
	return s[i].seq < s[j].seq
}

func (s items[T]) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

func (s *items[T]) Push(x any) {
	*s = append(*s, x.(*item[T]))
}

func (s *items[T]) Pop() any {
	old := *s
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*s = old[:n-1]
	return it
}

// Queue is a binary min-heap over weighted values.
type Queue[T any] struct {
	cont items[T]
	seq  uint64
}

// New creates an empty queue with room for capacity items.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{cont: make(items[T], 0, capacity)}
}

// Push inserts value with the given weight.
func (q *Queue[T]) Push(value T, weight int64) {
	heap.Push(&q.cont, &item[T]{value: value, weight: weight, seq: q.seq})
	q.seq++
}

// Pop removes and returns the value with the lowest weight.
// It panics if the queue is empty.
func (q *Queue[T]) Pop() (T, int64) {
	if len(q.cont) == 0 {
		panic("pqueue: pop from empty queue")
	}
	it := heap.Pop(&q.cont).(*item[T])
	return it.value, it.weight
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	return len(q.cont)
}

// Empty reports whether the queue holds no values.
func (q *Queue[T]) Empty() bool {
	return len(q.cont) == 0
}
