// Package route builds travel-cost matrices and orders visit stops with a
// bounded-time heuristic. All computation is pure; geocoding happens before
// any of it runs.
package route

import (
	"math"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

const earthRadiusMiles = 3958.8

// Haversine returns the great-circle distance between two points in miles.
func Haversine(a, b model.GeoPoint) float64 {
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*math.Pi/180)*math.Cos(b.Latitude*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusMiles * c
}

// Matrix is a symmetric travel-cost matrix with a zero diagonal, in miles.
type Matrix [][]float64

// BuildMatrix computes the pairwise haversine matrix for the given points.
func BuildMatrix(points []model.GeoPoint) Matrix {
	n := len(points)
	m := make(Matrix, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := Haversine(points[i], points[j])
			m[i][j] = d
			m[j][i] = d
		}
	}
	return m
}

// PathDistance sums consecutive legs of an open path through the matrix.
func (m Matrix) PathDistance(order []int) float64 {
	var total float64
	for i := 0; i < len(order)-1; i++ {
		total += m[order[i]][order[i+1]]
	}
	return total
}
