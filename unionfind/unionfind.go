// Package unionfind implements a disjoint-set forest over the integers
// [0, n) with union by size and a live component count.
//
// Find walks parent links without compression; union by size bounds tree
// height by log2(n), which keeps Find logarithmic without mutating state on
// reads.
package unionfind

// UnionFind tracks the connected components of n elements.
type UnionFind struct {
	parent []int
	size   []int
	count  int
}

// New returns n singleton components.
func New(n int) *UnionFind {
	if n < 0 {
		n = 0
	}
	uf := &UnionFind{
		parent: make([]int, n),
		size:   make([]int, n),
		count:  n,
	}
	var i int
	for i = range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}

	return uf
}

// Len returns the number of elements.
func (uf *UnionFind) Len() int { return len(uf.parent) }

// Count returns the current number of disjoint components.
func (uf *UnionFind) Count() int { return uf.count }

// Find returns the canonical representative of p's component.
func (uf *UnionFind) Find(p int) int {
	for p != uf.parent[p] {
		p = uf.parent[p]
	}

	return p
}

// Connected reports whether p and q share a component.
func (uf *UnionFind) Connected(p, q int) bool {
	return uf.Find(p) == uf.Find(q)
}

// Connect merges the components of p and q. It reports whether a merge
// happened (false when they were already connected).
func (uf *UnionFind) Connect(p, q int) bool {
	i, j := uf.Find(p), uf.Find(q)
	if i == j {
		return false
	}
	// Attach the smaller tree under the larger root.
	if uf.size[i] < uf.size[j] {
		i, j = j, i
	}
	uf.parent[j] = i
	uf.size[i] += uf.size[j]
	uf.count--

	return true
}

// ComponentSize returns the number of elements in p's component.
func (uf *UnionFind) ComponentSize(p int) int {
	return uf.size[uf.Find(p)]
}
