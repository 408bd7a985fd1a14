package landmark_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsisomap/hsisomap/embedding"
	"github.com/hsisomap/hsisomap/landmark"
	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/property"
)

func gaussian(t *testing.T, seed int64, n int, scales ...float64) *matrix.Dense {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, len(scales))
		for j, s := range scales {
			rows[i][j] = r.NormFloat64() * s
		}
	}
	m, err := matrix.FromRows(rows)
	require.NoError(t, err)
	return m
}

func assertUniqueInRange(t *testing.T, idx []int, n int) {
	t.Helper()
	seen := make(map[int]bool, len(idx))
	for _, i := range idx {
		assert.True(t, i >= 0 && i < n, "index %d out of range", i)
		assert.False(t, seen[i], "duplicate index %d", i)
		seen[i] = true
	}
}

func TestList(t *testing.T) {
	data := gaussian(t, 1, 10, 1, 2)
	s, err := landmark.New(landmark.ImplementationList, data, landmark.WithList([]int{7, 2, 5}))
	require.NoError(t, err)
	assert.Equal(t, []int{7, 2, 5}, s.Indices())

	ld, err := s.Data()
	require.NoError(t, err)
	want, err := data.SelectRows([]int{7, 2, 5})
	require.NoError(t, err)
	assert.True(t, want.Equal(ld))

	_, err = landmark.New(landmark.ImplementationList, data)
	assert.ErrorIs(t, err, landmark.ErrInvalidArgument)

	_, err = landmark.New(landmark.ImplementationList, data, landmark.WithList([]int{10}))
	assert.ErrorIs(t, err, landmark.ErrInvalidArgument)
}

func TestSubsets_CountAndUniqueness(t *testing.T) {
	data := gaussian(t, 2, 200, 5, 3, 1)
	props := property.List{landmark.KeyCount: 30}
	s, err := landmark.New(landmark.ImplementationSubsets, data,
		landmark.WithProperties(props), landmark.WithSeed(3))
	require.NoError(t, err)

	idx := s.Indices()
	require.Len(t, idx, 30)
	assertUniqueInRange(t, idx, 200)

	sub, ok := s.(*landmark.Subsets)
	require.True(t, ok)
	groups := sub.SubsetIndices()
	// 3 bands: 30/4 = 7 subsets of 4 landmarks, 2 padded.
	assert.Len(t, groups, 7)
	assert.Equal(t, 2, sub.Padded())

	// every non-padded landmark belongs to its subset, in subset order
	member := make(map[int]int)
	for g, rows := range groups {
		for _, r := range rows {
			member[r] = g
		}
	}
	for i := 0; i < 28; i++ {
		assert.Equal(t, i/4, member[idx[i]], "landmark %d", i)
	}

	again, err := landmark.New(landmark.ImplementationSubsets, data,
		landmark.WithProperties(props), landmark.WithSeed(3))
	require.NoError(t, err)
	assert.Equal(t, idx, again.Indices())
}

func TestSubsets_SingleSubsetNeedsNoPadding(t *testing.T) {
	data := gaussian(t, 4, 60, 10, 1, 1)
	s, err := landmark.New(landmark.ImplementationSubsets, data, landmark.WithCount(4))
	require.NoError(t, err)
	idx := s.Indices()
	require.Len(t, idx, 4)
	assertUniqueInRange(t, idx, 60)
	assert.Equal(t, 0, s.(*landmark.Subsets).Padded())
}

func TestSubsets_NoiseExclusion(t *testing.T) {
	data := gaussian(t, 5, 120, 4, 2, 1, 1, 1, 1, 0.5)
	s, err := landmark.New(landmark.ImplementationSubsets, data,
		landmark.WithCount(20), landmark.WithNoiseExclusion(0.2, 2))
	require.NoError(t, err)
	idx := s.Indices()
	require.Len(t, idx, 20)
	assertUniqueInRange(t, idx, 120)
}

func TestSubsets_InsufficientVariation(t *testing.T) {
	rows := make([][]float64, 10)
	for i := range rows {
		rows[i] = []float64{1, 2, 3}
	}
	data, err := matrix.FromRows(rows)
	require.NoError(t, err)
	_, err = landmark.New(landmark.ImplementationSubsets, data, landmark.WithCount(4))
	assert.ErrorIs(t, err, landmark.ErrInsufficientVariation)
}

func TestSubsets_ReturnsExactlyCount(t *testing.T) {
	for _, bands := range []int{2, 3, 5, 8, 12} {
		scales := make([]float64, bands)
		for j := range scales {
			scales[j] = float64(bands - j)
		}
		data := gaussian(t, int64(10+bands), 300, scales...)
		for _, count := range []int{1, 3, 4, 9, 10, 15, 25} {
			t.Run(fmt.Sprintf("bands=%d/count=%d", bands, count), func(t *testing.T) {
				s, err := landmark.New(landmark.ImplementationSubsets, data, landmark.WithCount(count))
				require.NoError(t, err)
				idx := s.Indices()
				require.Len(t, idx, count)
				assertUniqueInRange(t, idx, 300)
			})
		}
	}
}

func TestSubsets_SingleRowSubset(t *testing.T) {
	data, err := matrix.FromRows([][]float64{{1, 2, 3}})
	require.NoError(t, err)
	_, err = landmark.New(landmark.ImplementationSubsets, data, landmark.WithCount(1))
	assert.ErrorIs(t, err, landmark.ErrInsufficientVariation)
	assert.ErrorIs(t, err, embedding.ErrTooFewSamples)
}

func TestNew_Errors(t *testing.T) {
	data := gaussian(t, 6, 20, 1, 1, 1)

	_, err := landmark.New(landmark.ImplementationGlobalRandomSkeleton, data)
	assert.ErrorIs(t, err, landmark.ErrUnsupported)

	_, err = landmark.New(landmark.ImplementationSubsets, data, landmark.WithCount(0))
	assert.ErrorIs(t, err, landmark.ErrInvalidArgument)

	_, err = landmark.New(landmark.ImplementationSubsets, data, landmark.WithCount(21))
	assert.ErrorIs(t, err, landmark.ErrInvalidArgument)

	_, err = landmark.New(landmark.ImplementationSubsets, data,
		landmark.WithCount(4), landmark.WithProperties(property.List{landmark.KeyNoiseModel: 1}))
	assert.ErrorIs(t, err, landmark.ErrUnsupported)

	_, err = landmark.New(landmark.Implementation(5), data)
	assert.ErrorIs(t, err, landmark.ErrUnknownImplementation)
}
