// Package graph defines the undirected weighted graph used by the kNN
// builder and the shortest-path engines, with two interchangeable backends:
//
//   - AdjacencyList: per-vertex neighbour slices kept sorted by neighbour
//     index; exports a CSR Array for array-oriented solvers.
//   - Library: backed by gonum's simple.WeightedUndirectedGraph, consumed by
//     gonum's graph/path algorithms.
//
// Invariants shared by both backends:
//
//   - Vertices are the integers [0, NumVertices()).
//   - Self-loops are ignored: Connect(a, a, w) is a no-op.
//   - At most one edge per unordered pair; reconnecting overwrites the weight.
//   - Weights are finite and non-negative.
//   - NumEdges counts unordered pairs.
package graph

import (
	"errors"
	"fmt"
	"math"
)

// Sentinel errors returned by graph backends.
var (
	// ErrVertexOutOfRange indicates a vertex index outside [0, NumVertices()).
	ErrVertexOutOfRange = errors.New("graph: vertex out of range")

	// ErrInvalidWeight indicates a negative, NaN or infinite edge weight.
	ErrInvalidWeight = errors.New("graph: weight must be finite and non-negative")

	// ErrUnknownBackend indicates an unsupported Backend value.
	ErrUnknownBackend = errors.New("graph: unknown backend")

	// ErrNegativeSize indicates a negative vertex count.
	ErrNegativeSize = errors.New("graph: vertex count must be non-negative")
)

// UndirectedWeighted is the capability shared by every backend.
type UndirectedWeighted interface {
	// Connect adds or re-weights the undirected edge {a, b}.
	Connect(a, b int, weight float64) error
	// NumVertices returns the fixed vertex count.
	NumVertices() int
	// NumEdges returns the number of undirected edges.
	NumEdges() int
}

// Backend selects a graph implementation.
type Backend int

const (
	// BackendAdjacencyList selects AdjacencyList.
	BackendAdjacencyList Backend = iota
	// BackendLibrary selects the gonum-backed Library graph.
	BackendLibrary
)

// String implements fmt.Stringer.
func (b Backend) String() string {
	switch b {
	case BackendAdjacencyList:
		return "adjacency_list"
	case BackendLibrary:
		return "library"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend maps a configuration name to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "", "adjacency_list", "adjacency list":
		return BackendAdjacencyList, nil
	case "library", "gonum":
		return BackendLibrary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// New creates an empty graph with n vertices on the requested backend.
func New(backend Backend, n int) (UndirectedWeighted, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeSize, n)
	}
	switch backend {
	case BackendAdjacencyList:
		return NewAdjacencyList(n), nil
	case BackendLibrary:
		return NewLibrary(n), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownBackend, int(backend))
	}
}

// validateEdge checks endpoints and weight for a graph with n vertices.
func validateEdge(n, a, b int, w float64) error {
	if a < 0 || a >= n || b < 0 || b >= n {
		return fmt.Errorf("%w: edge (%d,%d) with %d vertices", ErrVertexOutOfRange, a, b, n)
	}
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		return fmt.Errorf("%w: edge (%d,%d) weight=%g", ErrInvalidWeight, a, b, w)
	}

	return nil
}
