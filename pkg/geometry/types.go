// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromImagePoint converts an integer pixel coordinate to Point2D.
func FromImagePoint(p image.Point) Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Diagonal returns the length of the rectangle diagonal.
func (r RectInt) Diagonal() float64 {
	return math.Hypot(float64(r.Width), float64(r.Height))
}

// BoundingBox computes the axis-aligned bounding box of a set of pixel points.
// Width and Height count pixels, so a single point has a 1x1 box.
func BoundingBox(points []image.Point) RectInt {
	if len(points) == 0 {
		return RectInt{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return RectInt{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}

// WeightedCentroid returns the weighted mean of points. ok is false when the
// weights sum to zero.
func WeightedCentroid(points []Point2D, weights []float64) (c Point2D, ok bool) {
	var sumW, sumX, sumY float64
	for i, p := range points {
		w := weights[i]
		sumW += w
		sumX += p.X * w
		sumY += p.Y * w
	}
	if sumW == 0 {
		return Point2D{}, false
	}
	return Point2D{X: sumX / sumW, Y: sumY / sumW}, true
}
