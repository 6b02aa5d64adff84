// Package classify separates nuclear-channel regions into neurons and
// astrocytes from their shape and their overlap with a second channel.
package classify

import (
	"fmt"

	"cellquant/internal/region"
	"cellquant/pkg/geometry"

	"gocv.io/x/gocv"
)

// Category is the outcome for one region.
type Category int

const (
	// Discarded regions are too short or have too few points to judge.
	Discarded Category = iota
	Astrocyte
	Neuron
)

func (c Category) String() string {
	switch c {
	case Astrocyte:
		return "Astrocyte"
	case Neuron:
		return "Neuron"
	default:
		return "Discarded"
	}
}

// Decision records the evidence behind one region's category.
type Decision struct {
	Index    int      // Region.Index of the classified region
	Category Category // Outcome
	Coverage float64  // Fraction of the filled region covered by the cross mask
	Aspect   float64  // min(w,h)/max(w,h) of the float minimum-area rectangle
}

// Result holds the disjoint classification lists. Every input region lands
// in exactly one of Neurons, Astrocytes or Discarded.
type Result struct {
	Neurons    []region.Region
	Astrocytes []region.Region
	Discarded  []region.Region
	Decisions  []Decision
}

// Classifier assigns Parent regions of the nuclear channel to a Category.
type Classifier struct {
	params Params
}

// New returns a Classifier, or an error if params are out of range.
func New(params Params) (*Classifier, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier params: %w", err)
	}
	return &Classifier{params: params}, nil
}

// Params returns the thresholds in use.
func (c *Classifier) Params() Params {
	return c.params
}

// Classify sorts parents into neurons and astrocytes.
//
// For each region, in order: boundaries shorter than MinArcLength or with
// fewer than MinVertices points are discarded. A cross-channel coverage
// below CoverageThreshold makes an astrocyte; this check wins over shape.
// Otherwise a minimum-area-rectangle aspect ratio at or below
// AspectThreshold (very elongated) makes an astrocyte, and anything else is
// a neuron.
func (c *Classifier) Classify(parents []region.Region, cross gocv.Mat) (*Result, error) {
	if cross.Empty() {
		return nil, fmt.Errorf("cross-channel mask: %w", region.ErrEmptyMask)
	}
	if cross.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("cross-channel mask: %w", region.ErrMaskType)
	}

	result := &Result{}
	for _, r := range parents {
		d := c.decide(r, cross)
		result.Decisions = append(result.Decisions, d)
		switch d.Category {
		case Neuron:
			result.Neurons = append(result.Neurons, r)
		case Astrocyte:
			result.Astrocytes = append(result.Astrocytes, r)
		default:
			result.Discarded = append(result.Discarded, r)
		}
	}
	return result, nil
}

func (c *Classifier) decide(r region.Region, cross gocv.Mat) Decision {
	d := Decision{Index: r.Index, Category: Discarded}

	if r.ArcLength < c.params.MinArcLength || r.Vertices() < c.params.MinVertices {
		return d
	}

	d.Coverage = Coverage(r, cross)
	d.Aspect = AspectRatio(r)

	switch {
	case d.Coverage < c.params.CoverageThreshold:
		d.Category = Astrocyte
	case d.Aspect <= c.params.AspectThreshold:
		d.Category = Astrocyte
	default:
		d.Category = Neuron
	}
	return d
}

// Coverage returns the fraction of r's filled pixels that are also set in
// cross. A region that rasterises to no pixels has zero coverage.
func Coverage(r region.Region, cross gocv.Mat) float64 {
	filled := region.FillMask(r, cross.Rows(), cross.Cols())
	defer filled.Close()

	total := gocv.CountNonZero(filled)
	if total == 0 {
		return 0
	}

	overlap := gocv.NewMat()
	defer overlap.Close()
	gocv.BitwiseAnd(filled, cross, &overlap)

	return float64(gocv.CountNonZero(overlap)) / float64(total)
}

// AspectRatio returns min(w,h)/max(w,h) of the minimum-area rotated
// rectangle around r, in [0,1]. Sides are kept as floats so shapes near
// AspectThreshold are not pushed across it by pixel rounding. Degenerate
// boundaries give 0.
func AspectRatio(r region.Region) float64 {
	if len(r.Points) < 3 {
		return 0
	}
	return geometry.MinAreaRect(r.Points).Aspect()
}
