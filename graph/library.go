package graph

import (
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph/simple"
)

// Library is an UndirectedWeighted backed by gonum's
// simple.WeightedUndirectedGraph. Vertex i is gonum node ID i.
// Thread-safe: Connect acquires a write lock, queries a read lock.
type Library struct {
	mu    sync.RWMutex
	g     *simple.WeightedUndirectedGraph
	n     int
	edges int
}

// compile-time interface check
var _ UndirectedWeighted = (*Library)(nil)

// NewLibrary returns an edgeless gonum-backed graph with n vertices.
// Absent edges weigh +Inf and self weight is 0.
func NewLibrary(n int) *Library {
	if n < 0 {
		n = 0
	}
	g := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	var i int
	for i = 0; i < n; i++ {
		g.AddNode(simple.Node(int64(i)))
	}

	return &Library{g: g, n: n}
}

// NumVertices returns the vertex count.
func (l *Library) NumVertices() int { return l.n }

// NumEdges returns the number of undirected edges.
func (l *Library) NumEdges() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.edges
}

// Connect adds or re-weights the undirected edge {a, b}. Self-loops are
// ignored.
func (l *Library) Connect(a, b int, weight float64) error {
	if err := validateEdge(l.n, a, b, weight); err != nil {
		return err
	}
	if a == b {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.g.HasEdgeBetween(int64(a), int64(b)) {
		l.edges++
	}
	l.g.SetWeightedEdge(l.g.NewWeightedEdge(simple.Node(int64(a)), simple.Node(int64(b)), weight))

	return nil
}

// Weight returns the weight of edge {a, b} and whether it exists.
func (l *Library) Weight(a, b int) (float64, bool) {
	if a == b {
		return 0, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	e := l.g.WeightedEdge(int64(a), int64(b))
	if e == nil {
		return 0, false
	}

	return e.Weight(), true
}

// Gonum exposes the underlying gonum graph for read-only use by gonum
// algorithms. Callers must not mutate it.
func (l *Library) Gonum() *simple.WeightedUndirectedGraph { return l.g }

// Array exports the graph in CSR form with neighbours sorted by index.
func (l *Library) Array() *Array {
	l.mu.RLock()
	defer l.mu.RUnlock()

	a := &Array{
		Offsets:   make([]int, l.n+1),
		Neighbors: make([]int, 0, 2*l.edges),
		Weights:   make([]float64, 0, 2*l.edges),
	}
	var (
		v   int
		ids []int
	)
	for v = 0; v < l.n; v++ {
		a.Offsets[v] = len(a.Neighbors)
		ids = ids[:0]
		it := l.g.From(int64(v))
		for it.Next() {
			ids = append(ids, int(it.Node().ID()))
		}
		sort.Ints(ids)
		var u int
		for _, u = range ids {
			a.Neighbors = append(a.Neighbors, u)
			a.Weights = append(a.Weights, l.g.WeightedEdge(int64(v), int64(u)).Weight())
		}
	}
	a.Offsets[l.n] = len(a.Neighbors)

	return a
}
