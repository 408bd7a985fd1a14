package graph_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsisomap/hsisomap/graph"
)

type weighted interface {
	graph.UndirectedWeighted
	Weight(a, b int) (float64, bool)
	Array() *graph.Array
}

func backends(n int) map[string]weighted {
	return map[string]weighted{
		"adjacency_list": graph.NewAdjacencyList(n),
		"library":        graph.NewLibrary(n),
	}
}

func TestConnect_Invariants(t *testing.T) {
	for name, g := range backends(4) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, g.Connect(0, 1, 2))
			require.NoError(t, g.Connect(1, 0, 5)) // overwrite
			require.NoError(t, g.Connect(2, 2, 1)) // self-loop ignored
			require.NoError(t, g.Connect(3, 1, 1))

			assert.Equal(t, 4, g.NumVertices())
			assert.Equal(t, 2, g.NumEdges())

			w, ok := g.Weight(0, 1)
			require.True(t, ok)
			assert.Equal(t, 5.0, w)
			w, ok = g.Weight(1, 0)
			require.True(t, ok)
			assert.Equal(t, 5.0, w)

			_, ok = g.Weight(2, 2)
			assert.False(t, ok)
			_, ok = g.Weight(0, 3)
			assert.False(t, ok)
		})
	}
}

func TestConnect_Errors(t *testing.T) {
	for name, g := range backends(2) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, g.Connect(0, 2, 1), graph.ErrVertexOutOfRange)
			assert.ErrorIs(t, g.Connect(-1, 0, 1), graph.ErrVertexOutOfRange)
			assert.ErrorIs(t, g.Connect(0, 1, -1), graph.ErrInvalidWeight)
			assert.ErrorIs(t, g.Connect(0, 1, math.NaN()), graph.ErrInvalidWeight)
			assert.ErrorIs(t, g.Connect(0, 1, math.Inf(1)), graph.ErrInvalidWeight)
			assert.Equal(t, 0, g.NumEdges())
		})
	}
}

func TestArray_CSRExport(t *testing.T) {
	for name, g := range backends(4) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, g.Connect(2, 0, 1.5))
			require.NoError(t, g.Connect(0, 1, 0.5))
			require.NoError(t, g.Connect(3, 0, 2))

			a := g.Array()
			assert.Equal(t, 4, a.NumVertices())
			assert.Equal(t, []int{0, 3, 4, 5, 6}, a.Offsets)
			assert.Equal(t, []int{1, 2, 3, 0, 0, 0}, a.Neighbors)
			assert.Equal(t, []float64{0.5, 1.5, 2, 0.5, 1.5, 2}, a.Weights)
			assert.Equal(t, 3, a.Degree(0))
		})
	}
}

func TestNew_Factory(t *testing.T) {
	g, err := graph.New(graph.BackendAdjacencyList, 3)
	require.NoError(t, err)
	assert.IsType(t, &graph.AdjacencyList{}, g)

	g, err = graph.New(graph.BackendLibrary, 3)
	require.NoError(t, err)
	assert.IsType(t, &graph.Library{}, g)

	_, err = graph.New(graph.Backend(9), 3)
	assert.ErrorIs(t, err, graph.ErrUnknownBackend)

	_, err = graph.New(graph.BackendLibrary, -1)
	assert.ErrorIs(t, err, graph.ErrNegativeSize)
}

func TestParseBackend(t *testing.T) {
	b, err := graph.ParseBackend("library")
	require.NoError(t, err)
	assert.Equal(t, graph.BackendLibrary, b)
	assert.Equal(t, "library", b.String())

	_, err = graph.ParseBackend("boost")
	assert.ErrorIs(t, err, graph.ErrUnknownBackend)
}

func TestAdjacencyList_NeighborsSorted(t *testing.T) {
	g := graph.NewAdjacencyList(5)
	for _, v := range []int{4, 1, 3, 2} {
		require.NoError(t, g.Connect(0, v, float64(v)))
	}
	nbs := g.Neighbors(0)
	require.Len(t, nbs, 4)
	for i := 1; i < len(nbs); i++ {
		assert.Less(t, nbs[i-1].Vertex, nbs[i].Vertex)
	}
	assert.Equal(t, 4, g.Degree(0))
}
