package backbone_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsisomap/hsisomap/backbone"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/property"
)

func mustRows(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.FromRows(rows)
	require.NoError(t, err)
	return m
}

// fixture: a, x, b, c, y. Backbone rows c, a, b carry values 100, 10, 20.
// x sits symmetrically between a and b; y lies beyond b on their line's
// offset, so its affine weights are 1.5 (b) and −0.5 (a).
func fixture(t *testing.T, opts ...backbone.Option) (*backbone.Backbone, *matrix.Dense) {
	t.Helper()
	data := mustRows(t, [][]float64{
		{0, 0, 0},
		{1, 1, 0},
		{2, 0, 0},
		{10, 10, 10},
		{3, 1, 0},
	})
	b, err := backbone.New(data, []int{3, 0, 2}, opts...)
	require.NoError(t, err)
	return b, mustRows(t, [][]float64{{100}, {10}, {20}})
}

func TestNew_SampledData(t *testing.T) {
	b, _ := fixture(t)
	assert.Equal(t, []int{3, 0, 2}, b.Indices())
	want := mustRows(t, [][]float64{{10, 10, 10}, {0, 0, 0}, {2, 0, 0}})
	assert.True(t, want.Equal(b.SampledData()))
	assert.True(t, b.Contains(0))
	assert.False(t, b.Contains(1))
	assert.Nil(t, b.NNCache())
}

func TestNew_Errors(t *testing.T) {
	data := mustRows(t, [][]float64{{0}, {1}, {2}})

	_, err := backbone.New(data, []int{0, 2, 0})
	assert.ErrorIs(t, err, backbone.ErrDuplicateIndex)

	_, err = backbone.New(data, []int{3})
	assert.ErrorIs(t, err, backbone.ErrInvalidArgument)

	_, err = backbone.New(data, []int{0}, backbone.WithWorkers(0))
	assert.ErrorIs(t, err, backbone.ErrInvalidArgument)

	_, err = backbone.New(nil, []int{0})
	assert.ErrorIs(t, err, matrix.ErrNilMatrix)
}

func TestPrepareNNCache(t *testing.T) {
	b, _ := fixture(t)
	require.NoError(t, b.PrepareNNCache(context.Background(), 2))

	cache := b.NNCache()
	require.NotNil(t, cache)
	r, c := cache.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)

	assert.Equal(t, 1.0, cache.At(0, 0))
	assert.ElementsMatch(t, []float64{0, 2}, cache.RawRow(0)[1:])
	assert.Equal(t, []float64{4, 2, 0}, cache.RawRow(1))
}

func TestPrepareNNCache_EscalatesNarrowRanges(t *testing.T) {
	wide, _ := fixture(t)
	require.NoError(t, wide.PrepareNNCache(context.Background(), 2))

	narrow, _ := fixture(t, backbone.WithProperties(property.List{
		backbone.KeyPrimaryRange:   1,
		backbone.KeySecondaryRange: 2,
	}))
	require.NoError(t, narrow.PrepareNNCache(context.Background(), 2))
	assert.True(t, wide.NNCache().Equal(narrow.NNCache()))
}

func TestPrepareNNCache_Errors(t *testing.T) {
	b, _ := fixture(t)
	assert.ErrorIs(t, b.PrepareNNCache(context.Background(), 0), backbone.ErrInvalidArgument)
	assert.ErrorIs(t, b.PrepareNNCache(context.Background(), 4), backbone.ErrInvalidArgument)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.PrepareNNCache(ctx, 2), context.Canceled)
}

func TestReconstructionWeights_Affine(t *testing.T) {
	b, _ := fixture(t)
	w, err := b.ReconstructionWeights(context.Background(), backbone.Reconstruction{Neighbors: 2})
	require.NoError(t, err)

	assert.InDelta(t, 0.5, w.At(0, 0), 1e-9)
	assert.InDelta(t, 0.5, w.At(0, 1), 1e-9)
	assert.InDelta(t, 1.5, w.At(1, 0), 1e-9)
	assert.InDelta(t, -0.5, w.At(1, 1), 1e-9)
	for i := 0; i < w.Rows(); i++ {
		assert.InDelta(t, 1, w.At(i, 0)+w.At(i, 1), 1e-12)
	}
}

func TestReconstructionWeights_DegenerateFallsBackToUniform(t *testing.T) {
	// the middle row is the midpoint of its two neighbours: rank-one Gram
	data := mustRows(t, [][]float64{{0, 0}, {1, 0}, {2, 0}})
	b, err := backbone.New(data, []int{0, 2})
	require.NoError(t, err)
	w, err := b.ReconstructionWeights(context.Background(), backbone.Reconstruction{Neighbors: 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w.At(0, 0), 1e-9)
	assert.InDelta(t, 0.5, w.At(0, 1), 1e-9)
}

func TestReconstruct(t *testing.T) {
	b, input := fixture(t)
	out, err := b.Reconstruct(context.Background(), input, backbone.Reconstruction{Neighbors: 2})
	require.NoError(t, err)

	want := []float64{10, 15, 20, 100, 25}
	require.Equal(t, 5, out.Rows())
	for i, v := range want {
		assert.InDelta(t, v, out.At(i, 0), 1e-9, "row %d", i)
	}

	// the cache prepared above is reused; width comes from the cache
	again, err := b.Reconstruct(context.Background(), input, backbone.Reconstruction{})
	require.NoError(t, err)
	assert.True(t, out.Equal(again))
}

func TestReconstruct_EveryRowIsCopy(t *testing.T) {
	data := mustRows(t, [][]float64{{1, 2}, {3, 4}, {5, 6}})
	b, err := backbone.New(data, nil)
	require.NoError(t, err)

	input := mustRows(t, [][]float64{{7}, {8}, {9}})
	out, err := b.Reconstruct(context.Background(), input, backbone.Reconstruction{Neighbors: 1})
	require.NoError(t, err)
	assert.True(t, input.Equal(out))
}

func TestReconstruct_Errors(t *testing.T) {
	ctx := context.Background()
	b, input := fixture(t)

	_, err := b.Reconstruct(ctx, input, backbone.Reconstruction{Strategy: backbone.StrategyAdaptive, Neighbors: 2})
	assert.ErrorIs(t, err, backbone.ErrUnsupported)
	assert.ErrorIs(t, err, backbone.ErrInvalidArgument)

	_, err = b.Reconstruct(ctx, input, backbone.Reconstruction{})
	assert.ErrorIs(t, err, backbone.ErrInvalidArgument)

	_, err = b.Reconstruct(ctx, mustRows(t, [][]float64{{1}, {2}}), backbone.Reconstruction{Neighbors: 2})
	assert.ErrorIs(t, err, backbone.ErrDimensionMismatch)

	require.NoError(t, b.PrepareNNCache(ctx, 1))
	_, err = b.Reconstruct(ctx, input, backbone.Reconstruction{Neighbors: 2})
	assert.ErrorIs(t, err, backbone.ErrInvalidArgument)
}

func TestSetNNCache(t *testing.T) {
	b, input := fixture(t)

	require.NoError(t, b.SetNNCache(mustRows(t, [][]float64{{1, 0, 2}, {4, 2, 0}})))
	out, err := b.Reconstruct(context.Background(), input, backbone.ReconstructionFromProperties(property.List{}))
	require.NoError(t, err)
	assert.InDelta(t, 25, out.At(4, 0), 1e-9)

	err = b.SetNNCache(mustRows(t, [][]float64{{1, 0, 2}}))
	assert.ErrorIs(t, err, backbone.ErrDimensionMismatch)

	err = b.SetNNCache(mustRows(t, [][]float64{{1, 0, 2}, {4, 2, 1}}))
	assert.ErrorIs(t, err, backbone.ErrInvalidArgument)

	err = b.SetNNCache(mustRows(t, [][]float64{{4, 0, 2}, {1, 2, 0}}))
	assert.ErrorIs(t, err, backbone.ErrInvalidArgument)
}

func TestParseStrategy(t *testing.T) {
	s, err := backbone.ParseStrategy("adaptive")
	require.NoError(t, err)
	assert.Equal(t, backbone.StrategyAdaptive, s)

	_, err = backbone.ParseStrategy("greedy")
	assert.ErrorIs(t, err, backbone.ErrInvalidArgument)
}
