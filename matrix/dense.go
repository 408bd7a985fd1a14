// SPDX-License-Identifier: MIT

// Package matrix - Dense storage (row-major) and shape management.
//
// Purpose:
//   - Provide a cache-friendly row-major buffer with the explicit index formula i*cols + j.
//   - Interoperate with gonum: *Dense satisfies mat.Matrix, and Mat() returns a
//     zero-copy *mat.Dense view over the same storage.
//   - Distinguish Resize (keeps the overlapping block) from Redimension (discards).
//   - Compare matrices under an absolute tolerance (EqualityLimit).
//
// At and Set follow gonum conventions and panic on out-of-range indices;
// all shape-changing and extraction APIs validate and return sentinel errors.
//
// Complexity quicksheet:
//   - NewDense: O(r*c) zero-init; At/Set: O(1); Clone: O(r*c); Resize: O(r*c).

package matrix

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Sentinel is the "maximum representable value" marking absent data, most
// notably unreachable pairs in a geodesic distance matrix. It renders as "-"
// in the text format.
const Sentinel = math.MaxFloat64

// DefaultEqualityLimit is the absolute tolerance used by Equal unless
// overridden with SetEqualityLimit.
const DefaultEqualityLimit = 1e-12

const (
	ctxNewDense    = "NewDense"
	ctxFromRows    = "FromRows"
	ctxResize      = "Resize"
	ctxRedimension = "Redimension"
	ctxSelectRows  = "SelectRows"
	ctxSelectCols  = "SelectCols"
)

// Dense is a row-major matrix of float64 values.
// r is rows, c is columns, and data holds r*c elements in row-major order.
// Zero-sized shapes (0×c, r×0) are valid.
type Dense struct {
	r, c int
	data []float64
	eps  float64
}

// compile-time interface check
var _ mat.Matrix = (*Dense)(nil)

// NewDense creates a rows×cols matrix. When data is nil the matrix is
// zero-initialized; otherwise data is adopted (not copied) and must hold
// exactly rows*cols values.
//
// Errors: ErrBadShape for negative dimensions or a data length mismatch.
func NewDense(rows, cols int, data []float64) (*Dense, error) {
	// 1) Validate shape.
	if rows < 0 || cols < 0 {
		return nil, matrixErrorf(ctxNewDense, fmt.Errorf("%w: %dx%d", ErrBadShape, rows, cols))
	}
	// 2) Allocate or adopt the backing slice.
	if data == nil {
		return newDense(rows, cols), nil
	}
	if len(data) != rows*cols {
		return nil, matrixErrorf(ctxNewDense, fmt.Errorf("%w: len(data)=%d want %d", ErrBadShape, len(data), rows*cols))
	}

	return &Dense{r: rows, c: cols, data: data, eps: DefaultEqualityLimit}, nil
}

// newDense allocates a zeroed matrix; callers guarantee non-negative dims.
func newDense(rows, cols int) *Dense {
	return &Dense{r: rows, c: cols, data: make([]float64, rows*cols), eps: DefaultEqualityLimit}
}

// Zeros returns a zero-initialized rows×cols matrix. Negative dimensions
// are clamped to zero.
func Zeros(rows, cols int) *Dense {
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}

	return newDense(rows, cols)
}

// FromRows builds a matrix by copying a rectangular [][]float64.
//
// Errors: ErrDimensionMismatch if rows are ragged.
func FromRows(rows [][]float64) (*Dense, error) {
	if len(rows) == 0 {
		return newDense(0, 0), nil
	}
	cols := len(rows[0])
	m := newDense(len(rows), cols)
	var i int
	for i = range rows {
		if len(rows[i]) != cols {
			return nil, matrixErrorf(ctxFromRows, fmt.Errorf("%w: row %d has %d values, want %d", ErrDimensionMismatch, i, len(rows[i]), cols))
		}
		copy(m.data[i*cols:(i+1)*cols], rows[i])
	}

	return m, nil
}

// FromMat copies any gonum matrix into a new Dense.
func FromMat(a mat.Matrix) *Dense {
	r, c := a.Dims()
	m := newDense(r, c)
	if rm, ok := a.(mat.RawMatrixer); ok {
		raw := rm.RawMatrix()
		var i int
		for i = 0; i < r; i++ {
			copy(m.data[i*c:(i+1)*c], raw.Data[i*raw.Stride:i*raw.Stride+c])
		}

		return m
	}
	var i, j int
	for i = 0; i < r; i++ {
		for j = 0; j < c; j++ {
			m.data[i*c+j] = a.At(i, j)
		}
	}

	return m
}

// Dims returns the number of rows and columns (mat.Matrix).
func (m *Dense) Dims() (int, int) { return m.r, m.c }

// Rows returns the number of rows.
func (m *Dense) Rows() int { return m.r }

// Cols returns the number of columns.
func (m *Dense) Cols() int { return m.c }

// At returns the element at (i, j). It panics on out-of-range indices, as
// required by the mat.Matrix contract.
func (m *Dense) At(i, j int) float64 {
	m.mustIndex(i, j)
	return m.data[i*m.c+j]
}

// Set assigns v at (i, j). It panics on out-of-range indices.
func (m *Dense) Set(i, j int, v float64) {
	m.mustIndex(i, j)
	m.data[i*m.c+j] = v
}

func (m *Dense) mustIndex(i, j int) {
	if i < 0 || i >= m.r || j < 0 || j >= m.c {
		panic(fmt.Sprintf("matrix: index (%d,%d) out of range for %dx%d", i, j, m.r, m.c))
	}
}

// T returns the implicit transpose (mat.Matrix).
func (m *Dense) T() mat.Matrix { return mat.Transpose{Matrix: m} }

// RawRow returns row i as a slice sharing the backing storage.
func (m *Dense) RawRow(i int) []float64 {
	return m.data[i*m.c : (i+1)*m.c : (i+1)*m.c]
}

// RawData returns the row-major backing slice.
func (m *Dense) RawData() []float64 { return m.data }

// Mat returns a *mat.Dense that shares storage with m, or nil when m has
// a zero dimension (gonum does not represent empty matrices).
func (m *Dense) Mat() *mat.Dense {
	if m.r == 0 || m.c == 0 {
		return nil
	}

	return mat.NewDense(m.r, m.c, m.data)
}

// Empty reports whether the matrix has no elements.
func (m *Dense) Empty() bool { return m.r == 0 || m.c == 0 }

// Clone returns a deep copy, including the equality limit.
func (m *Dense) Clone() *Dense {
	data := make([]float64, len(m.data))
	copy(data, m.data)

	return &Dense{r: m.r, c: m.c, data: data, eps: m.eps}
}

// EqualityLimit returns the absolute tolerance used by Equal.
func (m *Dense) EqualityLimit() float64 { return m.eps }

// SetEqualityLimit sets the absolute tolerance used by Equal.
func (m *Dense) SetEqualityLimit(eps float64) { m.eps = math.Abs(eps) }

// Equal reports whether o has the same shape as m and every pair of
// corresponding elements differs by less than m's equality limit.
// Sentinel entries compare equal only to Sentinel.
func (m *Dense) Equal(o *Dense) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.r != o.r || m.c != o.c {
		return false
	}
	var k int
	for k = range m.data {
		a, b := m.data[k], o.data[k]
		if a == b {
			continue
		}
		if a == Sentinel || b == Sentinel {
			return false
		}
		if math.Abs(a-b) >= m.eps {
			return false
		}
	}

	return true
}

// Resize changes the shape to rows×cols while keeping the overlapping
// top-left block. New cells are zero.
func (m *Dense) Resize(rows, cols int) error {
	if rows < 0 || cols < 0 {
		return matrixErrorf(ctxResize, fmt.Errorf("%w: %dx%d", ErrBadShape, rows, cols))
	}
	if rows == m.r && cols == m.c {
		return nil
	}
	data := make([]float64, rows*cols)
	keepR, keepC := min(rows, m.r), min(cols, m.c)
	var i int
	for i = 0; i < keepR; i++ {
		copy(data[i*cols:i*cols+keepC], m.data[i*m.c:i*m.c+keepC])
	}
	m.r, m.c, m.data = rows, cols, data

	return nil
}

// Redimension changes the shape to rows×cols and discards all content.
func (m *Dense) Redimension(rows, cols int) error {
	if rows < 0 || cols < 0 {
		return matrixErrorf(ctxRedimension, fmt.Errorf("%w: %dx%d", ErrBadShape, rows, cols))
	}
	m.r, m.c = rows, cols
	m.data = make([]float64, rows*cols)

	return nil
}

// String implements fmt.Stringer for debugging.
func (m *Dense) String() string {
	var sb strings.Builder
	var i, j int
	for i = 0; i < m.r; i++ {
		sb.WriteString("[")
		for j = 0; j < m.c; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%g", m.data[i*m.c+j])
		}
		sb.WriteString("]\n")
	}

	return sb.String()
}
