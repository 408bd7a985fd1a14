// SPDX-License-Identifier: MIT

// Package matrix provides the dense float64 matrix used throughout hsisomap.
//
// Dense is row-major, owns its storage, and deep-copies on Clone. It satisfies
// gonum's mat.Matrix so it can be handed directly to gonum routines, and Mat()
// exposes a zero-copy *mat.Dense for the hot paths that want gonum's BLAS.
//
// Shape never changes implicitly: Resize keeps the overlapping block,
// Redimension discards everything. Equal compares element-wise under an
// absolute tolerance (EqualityLimit, default 1e-12).
//
// Sentinel (math.MaxFloat64) marks unreachable or absent values. It survives
// the text codec as a literal "-" and compares equal only to itself.
//
// Example:
//
//	m, _ := matrix.FromRows([][]float64{{1, 2}, {3, matrix.Sentinel}})
//	_ = matrix.WriteText(os.Stdout, m)
//	// 1 2
//	// 3 -
package matrix
