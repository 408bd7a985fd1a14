package graph

// Array is a compressed-sparse-row export of an undirected graph. The
// neighbours of v are Neighbors[Offsets[v]:Offsets[v+1]] with matching
// Weights; each undirected edge appears once per direction. It is built once
// per solve and must be treated as read-only.
type Array struct {
	Offsets   []int
	Neighbors []int
	Weights   []float64
}

// NumVertices returns the vertex count.
func (a *Array) NumVertices() int {
	if len(a.Offsets) == 0 {
		return 0
	}

	return len(a.Offsets) - 1
}

// Degree returns the number of neighbours of v.
func (a *Array) Degree(v int) int { return a.Offsets[v+1] - a.Offsets[v] }
