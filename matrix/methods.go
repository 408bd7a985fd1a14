// SPDX-License-Identifier: MIT

package matrix

import "fmt"

// Row returns a copy of row i.
//
// Errors: ErrOutOfRange.
func (m *Dense) Row(i int) ([]float64, error) {
	if i < 0 || i >= m.r {
		return nil, fmt.Errorf("Dense.Row(%d): %w", i, ErrOutOfRange)
	}
	out := make([]float64, m.c)
	copy(out, m.data[i*m.c:(i+1)*m.c])

	return out, nil
}

// Col returns a copy of column j.
//
// Errors: ErrOutOfRange.
func (m *Dense) Col(j int) ([]float64, error) {
	if j < 0 || j >= m.c {
		return nil, fmt.Errorf("Dense.Col(%d): %w", j, ErrOutOfRange)
	}
	out := make([]float64, m.r)
	var i int
	for i = 0; i < m.r; i++ {
		out[i] = m.data[i*m.c+j]
	}

	return out, nil
}

// SelectRows materializes the rows listed in idx, in that order.
// Repeated indices are allowed.
//
// Errors: ErrOutOfRange if any index is invalid.
func (m *Dense) SelectRows(idx []int) (*Dense, error) {
	out := newDense(len(idx), m.c)
	out.eps = m.eps
	var k, i int
	for k, i = range idx {
		if i < 0 || i >= m.r {
			return nil, matrixErrorf(ctxSelectRows, fmt.Errorf("%w: row %d of %d", ErrOutOfRange, i, m.r))
		}
		copy(out.data[k*m.c:(k+1)*m.c], m.data[i*m.c:(i+1)*m.c])
	}

	return out, nil
}

// SelectCols materializes the columns listed in idx, in that order.
//
// Errors: ErrOutOfRange if any index is invalid.
func (m *Dense) SelectCols(idx []int) (*Dense, error) {
	var k, j int
	for _, j = range idx {
		if j < 0 || j >= m.c {
			return nil, matrixErrorf(ctxSelectCols, fmt.Errorf("%w: col %d of %d", ErrOutOfRange, j, m.c))
		}
	}
	out := newDense(m.r, len(idx))
	out.eps = m.eps
	var i int
	for i = 0; i < m.r; i++ {
		for k, j = range idx {
			out.data[i*out.c+k] = m.data[i*m.c+j]
		}
	}

	return out, nil
}

// HasSentinel reports whether any element equals Sentinel.
func (m *Dense) HasSentinel() bool {
	var v float64
	for _, v = range m.data {
		if v == Sentinel {
			return true
		}
	}

	return false
}
