package subsetter_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsisomap/hsisomap/matrix"
	"github.com/hsisomap/hsisomap/property"
	"github.com/hsisomap/hsisomap/subsetter"
)

var spectra20x3 = [][]float64{
	{439, 431, 431}, {690, 359, 458}, {810, 698, 588}, {856, 912, 775}, {858, 572, 475},
	{779, 837, 716}, {786, 799, 750}, {591, 605, 559}, {1222, 992, 670}, {1245, 1041, 552},
	{928, 871, 824}, {579, 382, 374}, {404, 395, 494}, {1031, 849, 691}, {1173, 686, 705},
	{965, 785, 704}, {808, 543, 647}, {1073, 920, 819}, {1029, 769, 580}, {639, 496, 646},
}

func spectra(t *testing.T) *matrix.Dense {
	t.Helper()
	m, err := matrix.FromRows(spectra20x3)
	require.NoError(t, err)
	return m
}

// assertPartition checks that groups cover 0..n-1 exactly once.
func assertPartition(t *testing.T, groups [][]int, n int) {
	t.Helper()
	var all []int
	for _, g := range groups {
		all = append(all, g...)
	}
	sort.Ints(all)
	require.Len(t, all, n)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
}

func TestEmbedding_FirstMeanGroundTruth(t *testing.T) {
	props := property.List{
		subsetter.KeyDefaultEmbedding: 0,
		subsetter.KeyEmbeddingSlicing: float64(subsetter.SlicingFirstMean),
		subsetter.KeySubsets:          6,
	}
	s, err := subsetter.New(subsetter.KindEmbedding, spectra(t), subsetter.WithProperties(props))
	require.NoError(t, err)

	want := [][]int{
		{8, 9},
		{13, 14, 17, 18},
		{10, 15},
		{3, 5, 6},
		{2, 4, 7, 16, 19},
		{0, 1, 11, 12},
	}
	assert.Equal(t, want, s.Subsets())
}

func TestEmbedding_Counts(t *testing.T) {
	tests := []struct {
		name string
		mode subsetter.SlicingMode
		goal int
	}{
		{"mean/1", subsetter.SlicingFirstMean, 1},
		{"mean/2", subsetter.SlicingFirstMean, 2},
		{"mean/5", subsetter.SlicingFirstMean, 5},
		{"median/4", subsetter.SlicingFirstMedian, 4},
		{"median/7", subsetter.SlicingFirstMedian, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := subsetter.New(subsetter.KindEmbedding, spectra(t),
				subsetter.WithSubsets(tt.goal), subsetter.WithSlicingMode(tt.mode))
			require.NoError(t, err)
			groups := s.Subsets()
			assert.Len(t, groups, tt.goal)
			assertPartition(t, groups, 20)
		})
	}
}

func TestEmbedding_MedianBalancesFirstSplit(t *testing.T) {
	s, err := subsetter.New(subsetter.KindEmbedding, spectra(t),
		subsetter.WithSubsets(2), subsetter.WithSlicingMode(subsetter.SlicingFirstMedian))
	require.NoError(t, err)
	groups := s.Subsets()
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 10)
	assert.Len(t, groups[1], 10)
}

func TestEmbedding_IdenticalRowsStayTogether(t *testing.T) {
	m, err := matrix.FromRows([][]float64{{1, 1}, {1, 1}, {1, 1}})
	require.NoError(t, err)
	s, err := subsetter.New(subsetter.KindEmbedding, m, subsetter.WithSubsets(3))
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}}, s.Subsets())
}

func TestRandomSkeleton_Partition(t *testing.T) {
	data := spectra(t)
	s, err := subsetter.New(subsetter.KindRandomSkeleton, data,
		subsetter.WithSubsets(4), subsetter.WithSeed(42))
	require.NoError(t, err)
	groups := s.Subsets()
	assertPartition(t, groups, 20)
	require.Len(t, groups, 4)
	for _, g := range groups {
		assert.Len(t, g, 5)
	}

	again, err := subsetter.New(subsetter.KindRandomSkeleton, data,
		subsetter.WithSubsets(4), subsetter.WithSeed(42))
	require.NoError(t, err)
	assert.Equal(t, groups, again.Subsets())
}

func TestRandomSkeleton_RemainderGroup(t *testing.T) {
	s, err := subsetter.New(subsetter.KindRandomSkeleton, spectra(t),
		subsetter.WithSubsets(3), subsetter.WithSeed(7))
	require.NoError(t, err)
	groups := s.Subsets()
	assertPartition(t, groups, 20)
	// ⌊20/3⌋ = 6 per group plus a remainder of 2.
	require.Len(t, groups, 4)
	assert.Len(t, groups[3], 2)
}

func TestNew_Errors(t *testing.T) {
	_, err := subsetter.New(subsetter.KindEmbedding, spectra(t), subsetter.WithSubsets(0))
	assert.ErrorIs(t, err, subsetter.ErrInvalidArgument)

	_, err = subsetter.New(subsetter.KindEmbedding, spectra(t),
		subsetter.WithProperties(property.List{subsetter.KeyDefaultEmbedding: 1}))
	assert.ErrorIs(t, err, subsetter.ErrUnsupported)

	_, err = subsetter.New(subsetter.Kind(9), spectra(t))
	assert.ErrorIs(t, err, subsetter.ErrUnknownKind)

	_, err = subsetter.New(subsetter.KindEmbedding, nil)
	assert.ErrorIs(t, err, matrix.ErrNilMatrix)
}
