package geometry

import "image"

// Moments holds the spatial moments of a closed polygon up to first order.
type Moments struct {
	M00 float64 // Area
	M10 float64
	M01 float64
}

// Centroid returns the mass center m10/m00, m01/m00. ok is false for a
// zero-area polygon, whose centroid is undefined.
func (m Moments) Centroid() (Point2D, bool) {
	if m.M00 == 0 {
		return Point2D{}, false
	}
	return Point2D{X: m.M10 / m.M00, Y: m.M01 / m.M00}, true
}

// PolygonMoments computes the moments of the closed polygon through points
// using Green's theorem. The result is orientation independent: clockwise
// and counter-clockwise traversals give the same positive area.
func PolygonMoments(points []image.Point) Moments {
	n := len(points)
	if n < 3 {
		return Moments{}
	}

	var a00, a10, a01 float64
	prev := points[n-1]
	for _, p := range points {
		xp, yp := float64(prev.X), float64(prev.Y)
		xc, yc := float64(p.X), float64(p.Y)
		cross := xp*yc - xc*yp
		a00 += cross
		a10 += cross * (xp + xc)
		a01 += cross * (yp + yc)
		prev = p
	}

	m := Moments{M00: a00 / 2, M10: a10 / 6, M01: a01 / 6}
	if m.M00 < 0 {
		m.M00, m.M10, m.M01 = -m.M00, -m.M10, -m.M01
	}
	return m
}
