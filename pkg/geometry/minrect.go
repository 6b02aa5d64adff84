package geometry

import (
	"image"
	"math"
	"sort"
)

// RotatedRect is a rectangle of arbitrary orientation. Width lies along the
// direction given by Angle, in degrees from the +X axis.
type RotatedRect struct {
	Center Point2D `json:"center"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Angle  float64 `json:"angle"`
}

// Aspect returns min(w,h)/max(w,h), or 0 for a rectangle with no extent.
func (r RotatedRect) Aspect() float64 {
	long := math.Max(r.Width, r.Height)
	if long == 0 {
		return 0
	}
	return math.Min(r.Width, r.Height) / long
}

// ConvexHull returns the convex hull of points, counter-clockwise in a Y-up
// frame, without collinear vertices or duplicates.
func ConvexHull(points []image.Point) []image.Point {
	pts := append([]image.Point(nil), points...)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	uniq := pts[:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			uniq = append(uniq, p)
		}
	}
	pts = uniq
	if len(pts) < 3 {
		return pts
	}

	hull := make([]image.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func turn(o, a, b image.Point) int64 {
	return int64(a.X-o.X)*int64(b.Y-o.Y) - int64(a.Y-o.Y)*int64(b.X-o.X)
}

// MinAreaRect returns the smallest-area rectangle enclosing points, with
// sides measured in float64. One side of the optimum always lies on a hull
// edge, so every edge is tried.
func MinAreaRect(points []image.Point) RotatedRect {
	hull := ConvexHull(points)
	switch len(hull) {
	case 0:
		return RotatedRect{}
	case 1:
		return RotatedRect{Center: FromImagePoint(hull[0])}
	case 2:
		a, b := FromImagePoint(hull[0]), FromImagePoint(hull[1])
		return RotatedRect{
			Center: Point2D{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2},
			Width:  a.Distance(b),
			Angle:  math.Atan2(b.Y-a.Y, b.X-a.X) * 180 / math.Pi,
		}
	}

	best := RotatedRect{}
	bestArea := math.Inf(1)
	for i := range hull {
		a := FromImagePoint(hull[i])
		b := FromImagePoint(hull[(i+1)%len(hull)])
		length := a.Distance(b)
		ux, uy := (b.X-a.X)/length, (b.Y-a.Y)/length
		vx, vy := -uy, ux

		minS, maxS := math.Inf(1), math.Inf(-1)
		minT, maxT := math.Inf(1), math.Inf(-1)
		for _, hp := range hull {
			dx, dy := float64(hp.X)-a.X, float64(hp.Y)-a.Y
			s := dx*ux + dy*uy
			t := dx*vx + dy*vy
			minS, maxS = math.Min(minS, s), math.Max(maxS, s)
			minT, maxT = math.Min(minT, t), math.Max(maxT, t)
		}

		w, h := maxS-minS, maxT-minT
		if area := w * h; area < bestArea {
			bestArea = area
			ms, mt := (minS+maxS)/2, (minT+maxT)/2
			best = RotatedRect{
				Center: Point2D{X: a.X + ux*ms + vx*mt, Y: a.Y + uy*ms + vy*mt},
				Width:  w,
				Height: h,
				Angle:  math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}
	return best
}
