// Package overlay draws a frame's analysis onto a BGR image for visual
// inspection.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"cellquant/internal/classify"
	"cellquant/internal/frame"
	"cellquant/internal/region"
	"cellquant/internal/synapse"
	"cellquant/pkg/colorutil"

	"gocv.io/x/gocv"
)

// Options selects the layers drawn by Render.
type Options struct {
	Synapses  bool // Fill low-intensity synapse parents by area bin
	Holes     bool // Outline the holes of nuclear regions
	Centroids bool
	ROI       bool // Circle each neuron with the proximity radius
}

// DefaultOptions draws every layer.
func DefaultOptions() Options {
	return Options{Synapses: true, Holes: true, Centroids: true, ROI: true}
}

// Render returns a new rows x cols BGR image. Layers are drawn back to
// front: synapse fills, ROI circles, holes, category outlines, centroids.
func Render(a *frame.Analysis, rows, cols int, opts Options) (gocv.Mat, error) {
	if a == nil {
		return gocv.NewMat(), fmt.Errorf("nil analysis")
	}
	if rows <= 0 || cols <= 0 {
		return gocv.NewMat(), fmt.Errorf("invalid overlay size %dx%d", cols, rows)
	}
	dst := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC3)

	if opts.Synapses && a.SynapseLow != nil {
		drawSynapses(&dst, a)
	}

	var neurons, astrocytes, discarded []region.Region
	if a.Classes != nil {
		neurons, astrocytes, discarded = a.Classes.Neurons, a.Classes.Astrocytes, a.Classes.Discarded
	}

	if opts.ROI && a.Proximity.Radius > 0 {
		r := int(math.Round(a.Proximity.Radius))
		for _, n := range neurons {
			if n.HasCentroid {
				gocv.Circle(&dst, centre(n), r, colorutil.ROI, 1)
			}
		}
	}

	if opts.Holes {
		for _, group := range [][]region.Region{neurons, astrocytes, discarded} {
			for _, r := range group {
				outline(&dst, r.Holes, colorutil.Hole, 1)
			}
		}
	}

	outlineAll(&dst, discarded, colorutil.Discarded)
	outlineAll(&dst, astrocytes, colorutil.Astrocyte)
	outlineAll(&dst, neurons, colorutil.Neuron)

	if opts.Centroids {
		for _, group := range [][]region.Region{neurons, astrocytes} {
			for _, r := range group {
				if r.HasCentroid {
					gocv.Circle(&dst, centre(r), 3, colorutil.White, -1)
				}
			}
		}
	}

	return dst, nil
}

// CategoryColor maps a classification outcome to its outline colour.
func CategoryColor(c classify.Category) color.RGBA {
	switch c {
	case classify.Neuron:
		return colorutil.Neuron
	case classify.Astrocyte:
		return colorutil.Astrocyte
	default:
		return colorutil.Discarded
	}
}

// Write renders a and saves it to path; the format follows the extension.
func Write(path string, a *frame.Analysis, rows, cols int, opts Options) error {
	img, err := Render(a, rows, cols, opts)
	if err != nil {
		return err
	}
	defer img.Close()
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("failed to write overlay %s", path)
	}
	return nil
}

func drawSynapses(dst *gocv.Mat, a *frame.Analysis) {
	binner, err := synapse.NewBinner(a.HistLow.Width, len(a.HistLow.Bins))
	if err != nil {
		return
	}
	colors := colorutil.Ramp(colorutil.ROI, colorutil.Hole, len(a.HistLow.Bins))
	for _, r := range a.SynapseLow.Parents() {
		region.DrawFilled(dst, r, colors[binner.Index(r.NetArea)])
	}
}

func outlineAll(dst *gocv.Mat, regions []region.Region, c color.RGBA) {
	for _, r := range regions {
		outline(dst, r.Outlines(), c, 2)
	}
}

func outline(dst *gocv.Mat, polys [][]image.Point, c color.RGBA, thickness int) {
	if len(polys) == 0 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints(polys)
	defer pv.Close()
	gocv.DrawContours(dst, pv, -1, c, thickness)
}

func centre(r region.Region) image.Point {
	return image.Pt(int(math.Round(r.Centroid.X)), int(math.Round(r.Centroid.Y)))
}
