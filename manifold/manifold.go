// Package manifold extends a landmark CMDS embedding to every point by
// distance-based triangulation (landmark MDS).
//
// For L landmarks and N points, with D the L×N landmark-to-all geodesic
// distances, Λ the landmark-to-landmark submatrix and (v_d, λ_d) the CMDS
// eigenpairs of Λ:
//
//	μ(l)        = (1/L) Σ_l' Λ(l, l')²
//	Δ(l, n)     = μ(l) − D(l, n)²
//	coords(n,d) = Σ_l Δ(l, n) · v_d(l) / √λ_d
//
// For a landmark point this reproduces 2·√λ_d·v_d, i.e. twice the classical
// MDS coordinate; the scale is uniform and is kept as is.
package manifold

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/hsisomap/hsisomap/embedding"
	"github.com/hsisomap/hsisomap/matrix"
)

// Sentinel errors returned by Construct.
var (
	// ErrInvalidArgument indicates a nil operand or bad reducedDims.
	ErrInvalidArgument = errors.New("manifold: invalid argument")

	// ErrDimensionMismatch indicates inconsistent operand shapes.
	ErrDimensionMismatch = errors.New("manifold: dimension mismatch")

	// ErrUnreachable indicates Sentinel distances (a disconnected graph).
	ErrUnreachable = errors.New("manifold: unreachable distance")

	// ErrNonPositiveEigenvalue indicates a requested dimension whose CMDS
	// eigenvalue is not positive.
	ErrNonPositiveEigenvalue = errors.New("manifold: non-positive eigenvalue")
)

// Construct returns the N × reducedDims manifold coordinates.
//
// landmarkToAll is L×N, landmarkDistances L×L, and cmds must hold at least
// reducedDims eigenvector columns (L rows) and eigenvalues.
func Construct(landmarkToAll, landmarkDistances *matrix.Dense, cmds *embedding.Embedding, reducedDims int) (*matrix.Dense, error) {
	// 1) Validate.
	if landmarkToAll == nil || landmarkDistances == nil || cmds == nil || cmds.Vectors == nil || cmds.Values == nil {
		return nil, fmt.Errorf("%w: nil operand", ErrInvalidArgument)
	}
	l, n := landmarkToAll.Dims()
	if l == 0 || n == 0 {
		return nil, fmt.Errorf("%w: empty distance matrix", ErrInvalidArgument)
	}
	if r, c := landmarkDistances.Dims(); r != l || c != l {
		return nil, fmt.Errorf("%w: landmark distances %dx%d for %d landmarks", ErrDimensionMismatch, r, c, l)
	}
	vr, vc := cmds.Vectors.Dims()
	if vr != l {
		return nil, fmt.Errorf("%w: %d eigenvector rows for %d landmarks", ErrDimensionMismatch, vr, l)
	}
	if reducedDims < 1 || reducedDims > vc || reducedDims > cmds.Values.Cols() {
		return nil, fmt.Errorf("%w: reducedDims=%d with %d eigenpairs", ErrInvalidArgument, reducedDims, vc)
	}
	if landmarkToAll.HasSentinel() || landmarkDistances.HasSentinel() {
		return nil, ErrUnreachable
	}

	// 2) Mean squared landmark distance.
	mean := make([]float64, l)
	var i, j int
	for i = 0; i < l; i++ {
		row := landmarkDistances.RawRow(i)
		for j = range row {
			mean[i] += row[j] * row[j]
		}
		mean[i] /= float64(l)
	}

	// 3) Scaled eigenvectors, L × reducedDims.
	pl := mat.NewDense(l, reducedDims, nil)
	for j = 0; j < reducedDims; j++ {
		lambda := cmds.Values.At(0, j)
		if !(lambda > 0) {
			return nil, fmt.Errorf("%w: λ[%d]=%g", ErrNonPositiveEigenvalue, j, lambda)
		}
		s := 1 / math.Sqrt(lambda)
		for i = 0; i < l; i++ {
			pl.Set(i, j, cmds.Vectors.At(i, j)*s)
		}
	}

	// 4) Δ, L × N.
	delta := mat.NewDense(l, n, nil)
	for i = 0; i < l; i++ {
		src := landmarkToAll.RawRow(i)
		dst := delta.RawRowView(i)
		for j = range src {
			dst[j] = mean[i] - src[j]*src[j]
		}
	}

	// 5) Δᵀ · PL.
	var out mat.Dense
	out.Mul(delta.T(), pl)

	return matrix.FromMat(&out), nil
}
