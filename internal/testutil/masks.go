// Package testutil provides shared test fixtures: synthetic binary masks
// drawn pixel by pixel so expected areas are known exactly.
package testutil

import (
	"gocv.io/x/gocv"
)

// Foreground is the pixel value used for mask foreground.
const Foreground uint8 = 255

// NewMask returns a zeroed rows x cols 8-bit single channel mask.
func NewMask(rows, cols int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8U)
}

// FillRect sets the w x h pixels starting at (x, y) to v, clipped to the mask.
// It returns the number of pixels written.
func FillRect(mask gocv.Mat, x, y, w, h int, v uint8) int {
	n := 0
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			if inside(mask, row, col) {
				mask.SetUCharAt(row, col, v)
				n++
			}
		}
	}
	return n
}

// StampDisc paints a filled foreground disc and returns its pixel count.
func StampDisc(mask gocv.Mat, cx, cy, radius int) int {
	n := 0
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			if inside(mask, cy+dy, cx+dx) {
				mask.SetUCharAt(cy+dy, cx+dx, Foreground)
				n++
			}
		}
	}
	return n
}

// Ring paints a square ring: a side x side block with a hole x hole block
// cleared from its middle.
func Ring(mask gocv.Mat, x, y, side, hole int) {
	FillRect(mask, x, y, side, side, Foreground)
	off := (side - hole) / 2
	FillRect(mask, x+off, y+off, hole, hole, 0)
}

func inside(mask gocv.Mat, row, col int) bool {
	return row >= 0 && col >= 0 && row < mask.Rows() && col < mask.Cols()
}
