// SPDX-License-Identifier: MIT

package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/hsisomap/hsisomap/matrix"
)

func TestNewDense_Validation(t *testing.T) {
	_, err := matrix.NewDense(-1, 2, nil)
	require.ErrorIs(t, err, matrix.ErrBadShape)

	_, err = matrix.NewDense(2, 2, []float64{1, 2, 3})
	require.ErrorIs(t, err, matrix.ErrBadShape)

	m, err := matrix.NewDense(0, 3, nil)
	require.NoError(t, err)
	assert.True(t, m.Empty())
	assert.Nil(t, m.Mat())
}

func TestFromRows_Ragged(t *testing.T) {
	_, err := matrix.FromRows([][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestDense_RowColExtraction(t *testing.T) {
	m, err := matrix.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)

	row, err := m.Row(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, row)

	col, err := m.Col(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 6}, col)

	_, err = m.Row(2)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
	_, err = m.Col(-1)
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)

	// copies must not alias
	row[0] = 100
	assert.Equal(t, 4.0, m.At(1, 0))
}

func TestDense_SelectRowsCols(t *testing.T) {
	m, _ := matrix.FromRows([][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})

	rows, err := m.SelectRows([]int{2, 0})
	require.NoError(t, err)
	want, _ := matrix.FromRows([][]float64{{7, 8, 9}, {1, 2, 3}})
	assert.True(t, want.Equal(rows))

	cols, err := m.SelectCols([]int{1})
	require.NoError(t, err)
	want, _ = matrix.FromRows([][]float64{{2}, {5}, {8}})
	assert.True(t, want.Equal(cols))

	_, err = m.SelectRows([]int{3})
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
	_, err = m.SelectCols([]int{0, 5})
	assert.ErrorIs(t, err, matrix.ErrOutOfRange)
}

func TestDense_ResizeKeepsBlock(t *testing.T) {
	m, _ := matrix.FromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, m.Resize(3, 3))

	want, _ := matrix.FromRows([][]float64{{1, 2, 0}, {3, 4, 0}, {0, 0, 0}})
	assert.True(t, want.Equal(m))

	require.NoError(t, m.Resize(1, 2))
	want, _ = matrix.FromRows([][]float64{{1, 2}})
	assert.True(t, want.Equal(m))
}

func TestDense_RedimensionDiscards(t *testing.T) {
	m, _ := matrix.FromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, m.Redimension(2, 3))

	r, c := m.Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 3, c)
	assert.Equal(t, make([]float64, 6), m.RawData())

	assert.ErrorIs(t, m.Redimension(-1, 0), matrix.ErrBadShape)
}

func TestDense_EqualTolerance(t *testing.T) {
	a, _ := matrix.FromRows([][]float64{{1, 2}})
	b, _ := matrix.FromRows([][]float64{{1 + 1e-6, 2}})

	assert.False(t, a.Equal(b))
	a.SetEqualityLimit(1e-3)
	assert.True(t, a.Equal(b))

	c, _ := matrix.FromRows([][]float64{{1, 2}, {3, 4}})
	assert.False(t, a.Equal(c))
}

func TestDense_EqualSentinel(t *testing.T) {
	a, _ := matrix.FromRows([][]float64{{matrix.Sentinel}})
	b, _ := matrix.FromRows([][]float64{{matrix.Sentinel}})
	c, _ := matrix.FromRows([][]float64{{1e300}})
	a.SetEqualityLimit(1e308)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, a.HasSentinel())
	assert.False(t, c.HasSentinel())
}

func TestDense_CloneIsDeep(t *testing.T) {
	m, _ := matrix.FromRows([][]float64{{1, 2}})
	c := m.Clone()
	c.Set(0, 0, 9)
	assert.Equal(t, 1.0, m.At(0, 0))
}

func TestDense_GonumInterop(t *testing.T) {
	m, _ := matrix.FromRows([][]float64{{1, 2}, {3, 4}})

	var p mat.Dense
	p.Mul(m, m.T())
	assert.Equal(t, 5.0, p.At(0, 0))
	assert.Equal(t, 11.0, p.At(0, 1))
	assert.Equal(t, 25.0, p.At(1, 1))

	// Mat shares storage.
	m.Mat().Set(0, 0, 7)
	assert.Equal(t, 7.0, m.At(0, 0))

	back := matrix.FromMat(&p)
	assert.Equal(t, 11.0, back.At(1, 0))
}

func TestDense_AtPanicsOutOfRange(t *testing.T) {
	m, _ := matrix.NewDense(1, 1, nil)
	assert.Panics(t, func() { m.At(1, 0) })
}
