package manifold_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsisomap/hsisomap/embedding"
	"github.com/hsisomap/hsisomap/manifold"
	"github.com/hsisomap/hsisomap/matrix"
)

func rows(t *testing.T, r [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.FromRows(r)
	require.NoError(t, err)
	return m
}

// rectangle landmarks plus one extra point at centred coordinates (0.5, 0).
func setup(t *testing.T) (lmToAll, lmDist *matrix.Dense, e *embedding.Embedding) {
	t.Helper()
	lm := rows(t, [][]float64{{0, 0}, {2, 0}, {0, 1}, {2, 1}})
	all := rows(t, [][]float64{{0, 0}, {2, 0}, {0, 1}, {2, 1}, {1.5, 0.5}})

	var err error
	lmDist, err = embedding.L2Distance(lm, lm, true)
	require.NoError(t, err)
	lmToAll, err = embedding.L2Distance(lm, all, false)
	require.NoError(t, err)
	e, err = embedding.CMDS(lmDist, 2, true)
	require.NoError(t, err)
	return lmToAll, lmDist, e
}

func TestConstruct_LandmarksAreScaledEigenvectors(t *testing.T) {
	lmToAll, lmDist, e := setup(t)
	out, err := manifold.Construct(lmToAll, lmDist, e, 2)
	require.NoError(t, err)

	r, c := out.Dims()
	require.Equal(t, 5, r)
	require.Equal(t, 2, c)
	for j := 0; j < 4; j++ {
		for d := 0; d < 2; d++ {
			want := 2 * math.Sqrt(e.Values.At(0, d)) * e.Vectors.At(j, d)
			assert.InDelta(t, want, out.At(j, d), 1e-9, "landmark %d dim %d", j, d)
		}
	}
}

func TestConstruct_ExtendsToNonLandmarks(t *testing.T) {
	lmToAll, lmDist, e := setup(t)
	out, err := manifold.Construct(lmToAll, lmDist, e, 2)
	require.NoError(t, err)

	// landmark 1 sits at centred x = 1, the extra point at x = 0.5
	assert.InDelta(t, 0.5, out.At(4, 0)/out.At(1, 0), 1e-9)
	assert.InDelta(t, 0, out.At(4, 1), 1e-9)
	assert.InDelta(t, 2, math.Abs(out.At(1, 0)), 1e-9)
}

func TestConstruct_Errors(t *testing.T) {
	lmToAll, lmDist, e := setup(t)

	_, err := manifold.Construct(lmToAll, lmDist, e, 3)
	assert.ErrorIs(t, err, manifold.ErrInvalidArgument)

	_, err = manifold.Construct(lmToAll, lmToAll, e, 2)
	assert.ErrorIs(t, err, manifold.ErrDimensionMismatch)

	broken := lmToAll.Clone()
	broken.Set(0, 4, matrix.Sentinel)
	_, err = manifold.Construct(broken, lmDist, e, 2)
	assert.ErrorIs(t, err, manifold.ErrUnreachable)

	neg := &embedding.Embedding{Vectors: e.Vectors, Values: rows(t, [][]float64{{1, -1}})}
	_, err = manifold.Construct(lmToAll, lmDist, neg, 2)
	assert.ErrorIs(t, err, manifold.ErrNonPositiveEigenvalue)

	_, err = manifold.Construct(nil, lmDist, e, 2)
	assert.ErrorIs(t, err, manifold.ErrInvalidArgument)
}
