// SPDX-License-Identifier: MIT

package embedding

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hsisomap/hsisomap/matrix"
)

// PCA projects data (samples × bands) onto its principal axes.
//
// Steps:
//  1. Validate: at least two samples; 0 ≤ reducedDims ≤ bands (0 means all).
//  2. Unbiased covariance (N−1 denominator) via stat.CovarianceMatrix.
//  3. Symmetric eigendecomposition, ranked by descending |eigenvalue|.
//  4. space = centered data · vectors[:, :reducedDims].
//
// Values holds all eigenvalues (1 × bands) and Vectors all eigenvectors
// (bands × bands) regardless of reducedDims.
func PCA(data *matrix.Dense, reducedDims int) (*Embedding, error) {
	// 1) Validate.
	if data == nil {
		return nil, matrix.ErrNilMatrix
	}
	n, d := data.Dims()
	if n < 2 || d == 0 {
		return nil, fmt.Errorf("PCA: %w: got %dx%d", ErrTooFewSamples, n, d)
	}
	k, err := resolveDims(reducedDims, d)
	if err != nil {
		return nil, fmt.Errorf("PCA: %w", err)
	}

	// 2) Covariance.
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)

	// 3) Eigen.
	values, vectors, err := symEigen(&cov, byAbsDescending)
	if err != nil {
		return nil, fmt.Errorf("PCA: %w", err)
	}

	// 4) Project.
	xc, _ := centered(data)
	var space mat.Dense
	space.Mul(xc, vectors.Slice(0, d, 0, k))

	return &Embedding{
		Space:   matrix.FromMat(&space),
		Vectors: matrix.FromMat(vectors),
		Values:  rowVector(values),
	}, nil
}
