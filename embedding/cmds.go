// SPDX-License-Identifier: MIT

package embedding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hsisomap/hsisomap/matrix"
)

// symmetryTolerance bounds |D(i,j) − D(j,i)| relative to max(1, |D(i,j)|).
const symmetryTolerance = 1e-9

// CMDS performs classical multidimensional scaling on a square symmetric
// distance matrix.
//
// The double-centred Gram matrix G = −½ H D² H with H = I − (1/n)J is
// eigendecomposed; eigenpairs are ranked by descending eigenvalue and
// truncated to reducedDims (0 means n). Only the eigen-only mode is
// available: eigenOnly=false returns ErrUnsupported and coordinates for
// arbitrary points come from the manifold constructor instead.
//
// Errors: ErrNotSquare, ErrNotSymmetric, ErrUnreachable (Sentinel entries),
// ErrInvalidArgument, ErrUnsupported, ErrFactorization.
func CMDS(distances *matrix.Dense, reducedDims int, eigenOnly bool) (*Embedding, error) {
	// 1) Validate.
	if distances == nil {
		return nil, matrix.ErrNilMatrix
	}
	if !eigenOnly {
		return nil, fmt.Errorf("CMDS: %w: full coordinate solve, use eigen-only mode", ErrUnsupported)
	}
	n, c := distances.Dims()
	if n != c || n == 0 {
		return nil, fmt.Errorf("CMDS: %w: %dx%d", ErrNotSquare, n, c)
	}
	k, err := resolveDims(reducedDims, n)
	if err != nil {
		return nil, fmt.Errorf("CMDS: %w", err)
	}
	if err = validateDistances(distances); err != nil {
		return nil, fmt.Errorf("CMDS: %w", err)
	}

	// 2) Double-centre D² through row, column and grand means.
	g := doubleCenter(distances)

	// 3) Eigen.
	values, vectors, err := symEigen(g, byValueDescending)
	if err != nil {
		return nil, fmt.Errorf("CMDS: %w", err)
	}

	return &Embedding{
		Vectors: matrix.FromMat(vectors.Slice(0, n, 0, k)),
		Values:  rowVector(values[:k]),
	}, nil
}

// validateDistances checks symmetry and rejects Sentinel entries.
func validateDistances(d *matrix.Dense) error {
	n := d.Rows()
	var i, j int
	for i = 0; i < n; i++ {
		for j = i; j < n; j++ {
			a, b := d.At(i, j), d.At(j, i)
			if a == matrix.Sentinel || b == matrix.Sentinel {
				return fmt.Errorf("%w: (%d,%d)", ErrUnreachable, i, j)
			}
			if math.Abs(a-b) > symmetryTolerance*math.Max(1, math.Abs(a)) {
				return fmt.Errorf("%w: (%d,%d)=%g vs %g", ErrNotSymmetric, i, j, a, b)
			}
		}
	}

	return nil
}

// doubleCenter computes −½ H D² H using the upper triangle of D.
func doubleCenter(d *matrix.Dense) *mat.SymDense {
	n := d.Rows()
	sq := make([]float64, n*n)
	rowMean := make([]float64, n)
	var (
		i, j  int
		grand float64
	)
	for i = 0; i < n; i++ {
		for j = i; j < n; j++ {
			v := d.At(i, j)
			v *= v
			sq[i*n+j] = v
			sq[j*n+i] = v
		}
	}
	for i = 0; i < n; i++ {
		var s float64
		for j = 0; j < n; j++ {
			s += sq[i*n+j]
		}
		rowMean[i] = s / float64(n)
		grand += s
	}
	grand /= float64(n * n)

	// D² is symmetric, so column means equal row means.
	g := mat.NewSymDense(n, nil)
	for i = 0; i < n; i++ {
		for j = i; j < n; j++ {
			g.SetSym(i, j, -0.5*(sq[i*n+j]-rowMean[i]-rowMean[j]+grand))
		}
	}

	return g
}
