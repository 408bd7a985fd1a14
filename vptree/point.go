package vptree

import (
	"gonum.org/v1/gonum/floats"

	"github.com/hsisomap/hsisomap/matrix"
)

// Point is a row vector tagged with its row index in the source matrix.
type Point struct {
	Index  int
	Coords []float64
}

// Euclidean is the L2 distance between two points.
func Euclidean(a, b Point) float64 {
	return floats.Distance(a.Coords, b.Coords, 2)
}

// RowPoints views every row of m as a Point. Coordinates alias m's storage.
func RowPoints(m *matrix.Dense) []Point {
	pts := make([]Point, m.Rows())
	var i int
	for i = range pts {
		pts[i] = Point{Index: i, Coords: m.RawRow(i)}
	}

	return pts
}

// SelectPoints views the listed rows of m as Points tagged with their
// original row indices.
func SelectPoints(m *matrix.Dense, rows []int) []Point {
	pts := make([]Point, len(rows))
	var i, r int
	for i, r = range rows {
		pts[i] = Point{Index: r, Coords: m.RawRow(r)}
	}

	return pts
}

// NewPointTree is a convenience constructor for a Euclidean tree over rows.
func NewPointTree(pts []Point, opts ...Option) *Tree[Point] {
	return New(pts, Euclidean, opts...)
}
