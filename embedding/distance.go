// SPDX-License-Identifier: MIT

package embedding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hsisomap/hsisomap/matrix"
)

// L2Distance returns the (rows(a) × rows(b)) Euclidean distance matrix
// computed through ‖a‖² + ‖b‖² − 2a·b. Negative round-off under the root is
// clamped to zero. With forceZeroDiagonal the result must be square and its
// diagonal is set to exactly zero, which suppresses self-distance noise when
// a and b hold the same rows.
//
// The result is exactly symmetric when a and b are the same matrix.
func L2Distance(a, b *matrix.Dense, forceZeroDiagonal bool) (*matrix.Dense, error) {
	if a == nil || b == nil {
		return nil, matrix.ErrNilMatrix
	}
	m, da := a.Dims()
	p, db := b.Dims()
	if da != db {
		return nil, fmt.Errorf("L2Distance: %w: %d vs %d columns", ErrDimensionMismatch, da, db)
	}
	if forceZeroDiagonal && m != p {
		return nil, fmt.Errorf("L2Distance: %w: %dx%d with forced zero diagonal", ErrNotSquare, m, p)
	}

	na := rowSquaredNorms(a)
	nb := na
	if a != b {
		nb = rowSquaredNorms(b)
	}

	out := matrix.Zeros(m, p)
	var i, j int
	for i = 0; i < m; i++ {
		ai := a.RawRow(i)
		dst := out.RawRow(i)
		for j = 0; j < p; j++ {
			if a == b && j < i {
				dst[j] = out.At(j, i)
				continue
			}
			sq := na[i] + nb[j] - 2*floats.Dot(ai, b.RawRow(j))
			dst[j] = math.Sqrt(math.Max(sq, 0))
		}
	}
	if forceZeroDiagonal {
		for i = 0; i < m; i++ {
			out.Set(i, i, 0)
		}
	}

	return out, nil
}

func rowSquaredNorms(m *matrix.Dense) []float64 {
	out := make([]float64, m.Rows())
	var i int
	for i = range out {
		r := m.RawRow(i)
		out[i] = floats.Dot(r, r)
	}

	return out
}

// PseudoInverse returns the Moore–Penrose inverse of a through a thin SVD,
// discarding singular values at or below cutoff (absolute).
func PseudoInverse(a mat.Matrix, cutoff float64) (*matrix.Dense, error) {
	r, c := a.Dims()
	if r == 0 || c == 0 {
		return matrix.Zeros(c, r), nil
	}
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("PseudoInverse: %w", ErrFactorization)
	}
	s := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// V·diag(1/s)·Uᵀ, skipping discarded components.
	k := len(s)
	vs := mat.NewDense(c, k, nil)
	col := make([]float64, c)
	var j int
	for j = 0; j < k; j++ {
		if s[j] <= cutoff {
			continue
		}
		mat.Col(col, j, &v)
		floats.Scale(1/s[j], col)
		vs.SetCol(j, col)
	}
	var out mat.Dense
	out.Mul(vs, u.T())

	return matrix.FromMat(&out), nil
}
