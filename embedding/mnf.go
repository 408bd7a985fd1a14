// SPDX-License-Identifier: MIT

package embedding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hsisomap/hsisomap/matrix"
)

// WhiteningCutoff is the relative singular-value floor below which noise
// directions are treated as noiseless (zero whitening gain).
const WhiteningCutoff = 1e-10

// MNF computes the minimum noise fraction transform of data given a noise
// covariance estimate (bands × bands).
//
// Steps:
//  1. Whiten: SVD of the noise covariance, W = U·diag(1/√s).
//  2. Signal covariance in whitened space: Wᵀ·Σ·W with Σ the unbiased data covariance.
//  3. Re-diagonalize it (eigenvalues descending, i.e. highest SNR first).
//  4. Compose T = W·V and project the centred data: space = Xc·T[:, :reducedDims].
//
// Vectors holds T (bands × bands) and Values the whitened-space eigenvalues.
// Trailing space columns carry the noisiest components.
func MNF(data, noiseCovariance *matrix.Dense, reducedDims int) (*Embedding, error) {
	if data == nil || noiseCovariance == nil {
		return nil, matrix.ErrNilMatrix
	}
	n, d := data.Dims()
	if n < 2 || d == 0 {
		return nil, fmt.Errorf("MNF: %w: got %dx%d", ErrTooFewSamples, n, d)
	}
	if r, c := noiseCovariance.Dims(); r != d || c != d {
		return nil, fmt.Errorf("MNF: %w: noise covariance %dx%d for %d bands", ErrDimensionMismatch, r, c, d)
	}
	k, err := resolveDims(reducedDims, d)
	if err != nil {
		return nil, fmt.Errorf("MNF: %w", err)
	}

	// 1) Whitening transform.
	var svd mat.SVD
	if ok := svd.Factorize(noiseCovariance, mat.SVDFull); !ok {
		return nil, fmt.Errorf("MNF: noise covariance: %w", ErrFactorization)
	}
	s := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)
	floor := WhiteningCutoff * floats.Max(s)
	w := mat.NewDense(d, d, nil)
	col := make([]float64, d)
	var j int
	for j = 0; j < d; j++ {
		if s[j] <= floor {
			continue
		}
		mat.Col(col, j, &u)
		floats.Scale(1/math.Sqrt(s[j]), col)
		w.SetCol(j, col)
	}

	// 2) Signal covariance in whitened space.
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	var tmp, sig mat.Dense
	tmp.Mul(w.T(), &cov)
	sig.Mul(&tmp, w)
	sym := symmetrize(&sig)

	// 3) Re-diagonalize.
	values, v, err := symEigen(sym, byValueDescending)
	if err != nil {
		return nil, fmt.Errorf("MNF: %w", err)
	}

	// 4) Compose and project.
	var t mat.Dense
	t.Mul(w, v)
	orientColumns(&t)
	xc, _ := centered(data)
	var space mat.Dense
	space.Mul(xc, t.Slice(0, d, 0, k))

	return &Embedding{
		Space:   matrix.FromMat(&space),
		Vectors: matrix.FromMat(&t),
		Values:  rowVector(values),
	}, nil
}

// NearestNeighborNoiseEstimation estimates the noise covariance of data as
// the sum of outer products of each sample's difference to its nearest other
// sample (ties resolved to the lowest index). The sum is not normalized.
func NearestNeighborNoiseEstimation(data *matrix.Dense) (*matrix.Dense, error) {
	if data == nil {
		return nil, matrix.ErrNilMatrix
	}
	n, d := data.Dims()
	if n < 2 {
		return nil, fmt.Errorf("NearestNeighborNoiseEstimation: %w", ErrTooFewSamples)
	}
	dist, err := L2Distance(data, data, true)
	if err != nil {
		return nil, err
	}

	acc := make([]float64, d*d)
	diff := make([]float64, d)
	var i, j, p, q int
	for i = 0; i < n; i++ {
		row := dist.RawRow(i)
		best := -1
		for j = 0; j < n; j++ {
			if j == i {
				continue
			}
			if best < 0 || row[j] < row[best] {
				best = j
			}
		}
		floats.SubTo(diff, data.RawRow(i), data.RawRow(best))
		for p = 0; p < d; p++ {
			for q = 0; q < d; q++ {
				acc[p*d+q] += diff[p] * diff[q]
			}
		}
	}

	return matrix.NewDense(d, d, acc)
}

// symmetrize averages a square matrix with its transpose.
func symmetrize(a *mat.Dense) *mat.SymDense {
	n, _ := a.Dims()
	s := mat.NewSymDense(n, nil)
	var i, j int
	for i = 0; i < n; i++ {
		for j = i; j < n; j++ {
			s.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}

	return s
}
