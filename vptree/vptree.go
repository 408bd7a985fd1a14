// Package vptree implements a vantage-point tree for exact nearest-neighbour
// and radius queries in a metric space.
//
// Construction picks a random pivot for every subtree, partitions the
// remaining items around the median pivot distance with a selection
// algorithm (no full sort) and recurses on the inside/outside halves. Nodes
// live in a flat arena addressed by int32 indices, so a tree is one
// allocation for nodes plus one for items and is released by the GC as a
// whole.
//
// Queries keep a running worst-of-k bound tau and skip a subtree whenever
// the pivot distance plus or minus tau cannot reach that subtree's distance
// band. Pruning is exact only when the distance function is a metric
// (satisfies the triangle inequality); use Euclidean rather than squared
// Euclidean distance.
//
// A built Tree is immutable, so Search and SearchRadius are safe for
// concurrent use.
//
// Complexity:
//
//   - Build:  O(n log n) expected distance evaluations.
//   - Search: O(log n) expected for low intrinsic dimension, O(n) worst case.
//   - Space:  O(n).
package vptree

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
)

// DistanceFunc measures the distance between two items.
type DistanceFunc[T any] func(a, b T) float64

// nilNode marks an absent child.
const nilNode int32 = -1

// defaultSeed is used when the caller passes seed==0.
const defaultSeed int64 = 1

type node struct {
	item        int // position in Tree.items
	threshold   float64
	left, right int32
}

// Tree is an immutable VP-tree over items of type T.
type Tree[T any] struct {
	items []T
	nodes []node
	root  int32
	dist  DistanceFunc[T]
}

// Options configures tree construction.
type Options struct {
	Seed int64      // pivot RNG seed; 0 means defaultSeed
	Rand *rand.Rand // explicit RNG, takes precedence over Seed
}

// Option represents a functional option for New.
type Option func(*Options)

// WithSeed fixes the pivot-selection seed so that construction, and hence
// tie ordering in results, is reproducible.
func WithSeed(seed int64) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithRand supplies the RNG used for pivot selection. The tree does not
// retain it after New returns.
func WithRand(r *rand.Rand) Option {
	return func(o *Options) { o.Rand = r }
}

// New builds a tree over a copy of items. An empty input yields an empty
// tree whose queries return empty results.
func New[T any](items []T, dist DistanceFunc[T], opts ...Option) *Tree[T] {
	// 1) Resolve options.
	var cfg Options
	var opt Option
	for _, opt = range opts {
		opt(&cfg)
	}
	rng := cfg.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = defaultSeed
		}
		rng = rand.New(rand.NewSource(seed))
	}

	// 2) Copy items; construction reorders them in place.
	t := &Tree[T]{
		items: append([]T(nil), items...),
		nodes: make([]node, 0, len(items)),
		root:  nilNode,
		dist:  dist,
	}
	if len(t.items) == 0 {
		return t
	}

	// 3) Build recursively over [0, n).
	b := &builder[T]{t: t, rng: rng, d: make([]float64, len(t.items))}
	t.root = b.build(0, len(t.items))

	return t
}

// Len returns the number of indexed items.
func (t *Tree[T]) Len() int { return len(t.items) }

type builder[T any] struct {
	t   *Tree[T]
	rng *rand.Rand
	d   []float64 // scratch: distance of items[i] to the current pivot
}

func (b *builder[T]) build(lower, upper int) int32 {
	if upper == lower {
		return nilNode
	}
	t := b.t
	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{item: lower, left: nilNode, right: nilNode})
	if upper-lower == 1 {
		return idx
	}

	// 1) Move a random pivot to the front.
	i := lower + b.rng.Intn(upper-lower)
	t.items[lower], t.items[i] = t.items[i], t.items[lower]

	// 2) Partition the rest around the median distance to the pivot.
	median := (upper + lower) / 2
	var j int
	for j = lower + 1; j < upper; j++ {
		b.d[j] = t.dist(t.items[lower], t.items[j])
	}
	b.nthElement(lower+1, upper, median)

	// 3) Record the band boundary and recurse.
	threshold := b.d[median]
	left := b.build(lower+1, median)
	right := b.build(median, upper)
	t.nodes[idx].threshold = threshold
	t.nodes[idx].left = left
	t.nodes[idx].right = right

	return idx
}

// nthElement reorders positions [lo, hi) so that d[k] holds the value it
// would have in sorted order, with no larger value before it and no smaller
// value after it. items are permuted alongside d.
func (b *builder[T]) nthElement(lo, hi, k int) {
	d, items := b.d, b.t.items
	swap := func(i, j int) {
		d[i], d[j] = d[j], d[i]
		items[i], items[j] = items[j], items[i]
	}
	for hi-lo > 1 {
		pivot := d[lo+(hi-lo)/2]
		// three-way partition: [lo,lt) < pivot, [lt,gt) == pivot, [gt,hi) > pivot
		lt, i, gt := lo, lo, hi
		for i < gt {
			switch {
			case d[i] < pivot:
				swap(lt, i)
				lt++
				i++
			case d[i] > pivot:
				gt--
				swap(i, gt)
			default:
				i++
			}
		}
		switch {
		case k < lt:
			hi = lt
		case k >= gt:
			lo = gt
		default:
			return
		}
	}
}

// Search returns the k items nearest to target and their distances, in
// ascending distance order. If k exceeds Len, every item is returned.
func (t *Tree[T]) Search(target T, k int) ([]T, []float64) {
	if k <= 0 || t.root == nilNode {
		return nil, nil
	}
	s := &knnSearch[T]{t: t, target: target, k: k, tau: math.Inf(1)}
	s.visit(t.root)

	// Drain the max-heap back to front to obtain ascending order.
	n := s.h.Len()
	items := make([]T, n)
	dists := make([]float64, n)
	var i int
	for i = n - 1; i >= 0; i-- {
		c := heap.Pop(&s.h).(candidate)
		items[i] = t.items[c.pos]
		dists[i] = c.dist
	}

	return items, dists
}

type knnSearch[T any] struct {
	t      *Tree[T]
	target T
	k      int
	tau    float64
	h      maxHeap
}

func (s *knnSearch[T]) visit(ni int32) {
	if ni == nilNode {
		return
	}
	n := &s.t.nodes[ni]
	d := s.t.dist(s.t.items[n.item], s.target)

	if d < s.tau || s.h.Len() < s.k {
		heap.Push(&s.h, candidate{pos: n.item, dist: d})
		if s.h.Len() > s.k {
			heap.Pop(&s.h)
		}
		if s.h.Len() == s.k {
			s.tau = s.h[0].dist
		}
	}
	if n.left == nilNode && n.right == nilNode {
		return
	}

	if d < n.threshold {
		if d-s.tau <= n.threshold {
			s.visit(n.left)
		}
		if d+s.tau >= n.threshold {
			s.visit(n.right)
		}
		return
	}
	if d+s.tau >= n.threshold {
		s.visit(n.right)
	}
	if d-s.tau <= n.threshold {
		s.visit(n.left)
	}
}

// SearchRadius returns every item within distance r of target (inclusive),
// in ascending distance order.
func (t *Tree[T]) SearchRadius(target T, r float64) ([]T, []float64) {
	if t.root == nilNode || r < 0 {
		return nil, nil
	}
	var found []candidate
	stack := []int32{t.root}
	for len(stack) > 0 {
		ni := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if ni == nilNode {
			continue
		}
		n := &t.nodes[ni]
		d := t.dist(t.items[n.item], target)
		if d <= r {
			found = append(found, candidate{pos: n.item, dist: d})
		}
		if d-r <= n.threshold {
			stack = append(stack, n.left)
		}
		if d+r >= n.threshold {
			stack = append(stack, n.right)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].less(found[j]) })
	items := make([]T, len(found))
	dists := make([]float64, len(found))
	var i int
	var c candidate
	for i, c = range found {
		items[i] = t.items[c.pos]
		dists[i] = c.dist
	}

	return items, dists
}

// candidate is a (position, distance) pair ordered by distance, then position.
type candidate struct {
	pos  int
	dist float64
}

func (c candidate) less(o candidate) bool {
	if c.dist != o.dist {
		return c.dist < o.dist
	}

	return c.pos < o.pos
}

// maxHeap keeps the current worst candidate at the root.
type maxHeap []candidate

func (h maxHeap) Len() int            { return len(h) }
func (h maxHeap) Less(i, j int) bool  { return h[j].less(h[i]) }
func (h maxHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]

	return item
}
