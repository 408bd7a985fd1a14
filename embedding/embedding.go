// SPDX-License-Identifier: MIT

// Package embedding provides the eigendecomposition-based embeddings used by
// the pipeline: PCA, classical MDS (eigen-only), minimum noise fraction,
// together with the pairwise L2 distance matrix, nearest-neighbour noise
// estimation and an SVD pseudo-inverse.
//
// Every function returns freshly allocated results; inputs are never
// aliased or mutated. Linear algebra is delegated to gonum (mat.EigenSym,
// mat.SVD, stat.CovarianceMatrix).
//
// Eigenvector sign convention: each returned basis vector is flipped so that
// its first component is non-negative. This makes results reproducible
// across LAPACK builds and is relied on by the subsetter.
package embedding

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/hsisomap/hsisomap/matrix"
)

// Sentinel errors returned by embedding functions.
var (
	// ErrInvalidArgument indicates an out-of-range parameter such as
	// reducedDims larger than the available dimensionality.
	ErrInvalidArgument = errors.New("embedding: invalid argument")

	// ErrDimensionMismatch indicates incompatible operand shapes.
	ErrDimensionMismatch = errors.New("embedding: dimension mismatch")

	// ErrNotSquare indicates that a square matrix was required.
	ErrNotSquare = errors.New("embedding: matrix is not square")

	// ErrNotSymmetric indicates that a symmetric matrix was required.
	ErrNotSymmetric = errors.New("embedding: matrix is not symmetric")

	// ErrUnreachable indicates Sentinel entries in a distance matrix.
	ErrUnreachable = errors.New("embedding: distance matrix contains unreachable entries")

	// ErrTooFewSamples indicates that fewer than two rows were supplied where
	// a covariance or nearest neighbour is needed.
	ErrTooFewSamples = errors.New("embedding: at least two samples are required")

	// ErrFactorization indicates that an eigen or singular value
	// decomposition did not converge.
	ErrFactorization = errors.New("embedding: factorization failed")

	// ErrUnsupported marks declared but unimplemented paths.
	ErrUnsupported = errors.New("embedding: not supported")
)

// Embedding is the result of an embedding call.
//
//   - Space:   samples × reducedDims coordinates (nil for eigen-only CMDS).
//   - Vectors: basis vectors as columns.
//   - Values:  1 × k eigenvalues matching the Vectors columns.
type Embedding struct {
	Space   *matrix.Dense
	Vectors *matrix.Dense
	Values  *matrix.Dense
}

// eigenOrder selects how eigenpairs are ranked.
type eigenOrder int

const (
	byAbsDescending eigenOrder = iota
	byValueDescending
)

// symEigen factorizes a symmetric matrix and returns its eigenvalues and
// column eigenvectors ranked by order, with the sign convention applied.
func symEigen(s *mat.SymDense, order eigenOrder) ([]float64, *mat.Dense, error) {
	var es mat.EigenSym
	if ok := es.Factorize(s, true); !ok {
		return nil, nil, ErrFactorization
	}
	raw := es.Values(nil)
	var rawVec mat.Dense
	es.VectorsTo(&rawVec)

	n := len(raw)
	idx := make([]int, n)
	var i int
	for i = range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		va, vb := raw[idx[a]], raw[idx[b]]
		if order == byAbsDescending {
			return math.Abs(va) > math.Abs(vb)
		}
		return va > vb
	})

	values := make([]float64, n)
	vectors := mat.NewDense(n, n, nil)
	col := make([]float64, n)
	var k, src int
	for k, src = range idx {
		values[k] = raw[src]
		mat.Col(col, src, &rawVec)
		orientColumn(col)
		vectors.SetCol(k, col)
	}

	return values, vectors, nil
}

// orientColumn flips v in place so its first component is non-negative.
func orientColumn(v []float64) {
	if len(v) == 0 || v[0] >= 0 {
		return
	}
	var i int
	for i = range v {
		v[i] = -v[i]
	}
}

// orientColumns applies orientColumn to every column of m.
func orientColumns(m *mat.Dense) {
	r, c := m.Dims()
	col := make([]float64, r)
	var j int
	for j = 0; j < c; j++ {
		mat.Col(col, j, m)
		if col[0] < 0 {
			orientColumn(col)
			m.SetCol(j, col)
		}
	}
}

// resolveDims validates reducedDims against the available dimensionality;
// zero selects all dimensions.
func resolveDims(reducedDims, available int) (int, error) {
	switch {
	case reducedDims < 0:
		return 0, fmt.Errorf("%w: reducedDims=%d", ErrInvalidArgument, reducedDims)
	case reducedDims == 0:
		return available, nil
	case reducedDims > available:
		return 0, fmt.Errorf("%w: reducedDims=%d exceeds %d", ErrInvalidArgument, reducedDims, available)
	default:
		return reducedDims, nil
	}
}

// centered returns data minus its column means, and the means.
func centered(data *matrix.Dense) (*mat.Dense, []float64) {
	r, c := data.Dims()
	means := make([]float64, c)
	var i, j int
	for i = 0; i < r; i++ {
		row := data.RawRow(i)
		for j = 0; j < c; j++ {
			means[j] += row[j]
		}
	}
	for j = range means {
		means[j] /= float64(r)
	}
	out := mat.NewDense(r, c, nil)
	for i = 0; i < r; i++ {
		row := data.RawRow(i)
		dst := out.RawRowView(i)
		for j = 0; j < c; j++ {
			dst[j] = row[j] - means[j]
		}
	}

	return out, means
}

// rowVector wraps values as a 1×n matrix.
func rowVector(values []float64) *matrix.Dense {
	m, _ := matrix.NewDense(1, len(values), append([]float64(nil), values...))
	return m
}
