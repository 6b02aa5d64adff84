// Package maskprep turns a merged fluorescence frame into the binary
// masks the region extractor consumes.
package maskprep

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
)

// ImageToMat converts a Go image to an 8-bit BGR Mat.
func ImageToMat(img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), fmt.Errorf("nil image")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("image has no pixels")
	}

	// imaging.Clone normalises any source layout to NRGBA at the origin.
	src := imaging.Clone(img)
	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			mat.SetUCharAt(y, x*3+0, row[x*4+2])
			mat.SetUCharAt(y, x*3+1, row[x*4+1])
			mat.SetUCharAt(y, x*3+2, row[x*4+0])
		}
	}
	return mat, nil
}
