package region

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

// NewBlankMask returns a zeroed 8-bit single channel mask.
func NewBlankMask(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
}

// FillMask rasterises r into a new rows x cols mask: outlines filled, holes
// cleared with their boundary pixels kept as foreground. The caller owns the
// returned Mat.
func FillMask(r Region, rows, cols int) gocv.Mat {
	mask := NewBlankMask(rows, cols)
	DrawFilled(&mask, r, white)
	return mask
}

// DrawFilled paints r onto dst in c, clearing its holes to black.
func DrawFilled(dst *gocv.Mat, r Region, c color.RGBA) {
	drawPolygons(dst, r.Outlines(), c, -1)
	if len(r.Holes) == 0 {
		return
	}
	drawPolygons(dst, r.Holes, black, -1)
	// Hole boundaries trace foreground pixels.
	drawPolygons(dst, r.Holes, c, 1)
}

// RetainedMask draws every Parent of the set, holes carved out. It is a
// debugging aid and is never read back by the analysis.
func (s *Set) RetainedMask() gocv.Mat {
	mask := NewBlankMask(s.Rows, s.Cols)
	for _, r := range s.Regions {
		if r.Validity == Parent {
			DrawFilled(&mask, r, white)
		}
	}
	return mask
}

func drawPolygons(dst *gocv.Mat, polys [][]image.Point, c color.RGBA, thickness int) {
	var usable [][]image.Point
	for _, p := range polys {
		if len(p) > 0 {
			usable = append(usable, p)
		}
	}
	if len(usable) == 0 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints(usable)
	defer pv.Close()
	gocv.DrawContours(dst, pv, -1, c, thickness)
}
