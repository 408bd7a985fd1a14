package graph

import (
	"sort"
	"sync"
)

// Neighbor is one entry of a vertex's adjacency.
type Neighbor struct {
	Vertex int
	Weight float64
}

// AdjacencyList stores, for every vertex, its neighbours sorted by index.
// Both directions of each undirected edge are stored.
// Thread-safe: Connect acquires a write lock, queries a read lock.
type AdjacencyList struct {
	mu    sync.RWMutex
	adj   [][]Neighbor
	edges int
}

// compile-time interface check
var _ UndirectedWeighted = (*AdjacencyList)(nil)

// NewAdjacencyList returns an edgeless graph with n vertices.
func NewAdjacencyList(n int) *AdjacencyList {
	if n < 0 {
		n = 0
	}

	return &AdjacencyList{adj: make([][]Neighbor, n)}
}

// NumVertices returns the vertex count.
func (g *AdjacencyList) NumVertices() int { return len(g.adj) }

// NumEdges returns the number of undirected edges.
func (g *AdjacencyList) NumEdges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.edges
}

// Connect adds or re-weights the undirected edge {a, b}. Self-loops are
// ignored.
//
// Complexity: O(deg(a) + deg(b)) for the sorted insertion.
func (g *AdjacencyList) Connect(a, b int, weight float64) error {
	if err := validateEdge(len(g.adj), a, b, weight); err != nil {
		return err
	}
	if a == b {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if insertSorted(&g.adj[a], b, weight) {
		g.edges++
	}
	insertSorted(&g.adj[b], a, weight)

	return nil
}

// insertSorted inserts (v, w) keeping the slice ordered by Vertex, or
// overwrites the weight of an existing entry. It reports whether a new
// entry was created.
func insertSorted(list *[]Neighbor, v int, w float64) bool {
	l := *list
	i := sort.Search(len(l), func(i int) bool { return l[i].Vertex >= v })
	if i < len(l) && l[i].Vertex == v {
		l[i].Weight = w
		return false
	}
	l = append(l, Neighbor{})
	copy(l[i+1:], l[i:])
	l[i] = Neighbor{Vertex: v, Weight: w}
	*list = l

	return true
}

// Weight returns the weight of edge {a, b} and whether it exists.
func (g *AdjacencyList) Weight(a, b int) (float64, bool) {
	if a < 0 || a >= len(g.adj) {
		return 0, false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	l := g.adj[a]
	i := sort.Search(len(l), func(i int) bool { return l[i].Vertex >= b })
	if i < len(l) && l[i].Vertex == b {
		return l[i].Weight, true
	}

	return 0, false
}

// Degree returns the number of neighbours of v.
func (g *AdjacencyList) Degree(v int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.adj[v])
}

// Neighbors returns a copy of v's adjacency, sorted by neighbour index.
func (g *AdjacencyList) Neighbors(v int) []Neighbor {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return append([]Neighbor(nil), g.adj[v]...)
}

// Array exports the graph in CSR form.
func (g *AdjacencyList) Array() *Array {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := len(g.adj)
	a := &Array{
		Offsets:   make([]int, n+1),
		Neighbors: make([]int, 0, 2*g.edges),
		Weights:   make([]float64, 0, 2*g.edges),
	}
	var v int
	var nb Neighbor
	for v = 0; v < n; v++ {
		a.Offsets[v] = len(a.Neighbors)
		for _, nb = range g.adj[v] {
			a.Neighbors = append(a.Neighbors, nb.Vertex)
			a.Weights = append(a.Weights, nb.Weight)
		}
	}
	a.Offsets[n] = len(a.Neighbors)

	return a
}
