package region

import (
	"image"

	"cellquant/pkg/geometry"

	"gocv.io/x/gocv"
)

// DefaultApproxEpsilon is the ApproxPolyDP tolerance, in pixels, used for the
// simplified outline of consolidated regions.
const DefaultApproxEpsilon = 2.0

// Consolidator merges spatially adjacent regions that noisy thresholding
// split apart.
//
// The sweep follows detection order. Each region reaching MinArea seeds a
// run; the regions immediately after it whose centroid lies within
// MergeRadius of the seed's centroid belong to the run. Run members reaching
// MinArea are absorbed, smaller ones are passed over without ending the run.
// The first region outside the radius ends the run, whatever its area, and
// the sweep resumes there.
//
// This is order dependent and only ever merges one contiguous run per seed;
// it is not a clustering algorithm. Area thresholds downstream were tuned
// against exactly this behaviour.
type Consolidator struct {
	MinArea       float64
	MergeRadius   float64
	ApproxEpsilon float64
}

// Consolidate runs a Consolidator with DefaultApproxEpsilon.
func Consolidate(regions []Region, minArea, mergeRadius float64) []Region {
	c := Consolidator{MinArea: minArea, MergeRadius: mergeRadius, ApproxEpsilon: DefaultApproxEpsilon}
	return c.Consolidate(regions)
}

// Consolidate returns one region per seed. Regions below MinArea never seed
// and are not part of the output.
func (c Consolidator) Consolidate(regions []Region) []Region {
	var out []Region

	i := 0
	for i < len(regions) {
		seed := regions[i]
		if seed.NetArea < c.MinArea {
			i++
			continue
		}

		members := []Region{seed}
		j := i + 1
		if seed.HasCentroid {
			for ; j < len(regions); j++ {
				next := regions[j]
				if !next.HasCentroid || seed.Centroid.Distance(next.Centroid) > c.MergeRadius {
					break
				}
				if next.NetArea >= c.MinArea {
					members = append(members, next)
				}
			}
		}

		out = append(out, c.merge(members))
		i = j
	}

	return out
}

// merge combines run members into one region and recomputes its centroid
// and simplified outline.
func (c Consolidator) merge(members []Region) Region {
	seed := members[0]
	merged := seed
	merged.Members = []int{seed.Index}

	if len(members) > 1 {
		merged.Points = nil
		merged.Parts = nil
		merged.Holes = nil
		merged.Children = nil
		merged.Members = nil
		merged.Area = 0
		merged.NetArea = 0
		merged.ArcLength = 0

		centroids := make([]geometry.Point2D, 0, len(members))
		weights := make([]float64, 0, len(members))
		for _, m := range members {
			merged.Points = append(merged.Points, m.Points...)
			merged.Parts = append(merged.Parts, m.Outlines()...)
			merged.Holes = append(merged.Holes, m.Holes...)
			merged.Children = append(merged.Children, m.Children...)
			merged.Members = append(merged.Members, m.Index)
			merged.Area += m.Area
			merged.NetArea += m.NetArea
			merged.ArcLength += m.ArcLength
			if m.HasCentroid {
				centroids = append(centroids, m.Centroid)
				weights = append(weights, m.NetArea)
			}
		}
		merged.Centroid, merged.HasCentroid = geometry.WeightedCentroid(centroids, weights)
		merged.Ellipse = fitEllipse(merged.Points)
	}

	merged.Approx = approximate(merged.Points, c.ApproxEpsilon)
	return merged
}

func approximate(points []image.Point, epsilon float64) []image.Point {
	if len(points) < 3 || epsilon <= 0 {
		return append([]image.Point(nil), points...)
	}
	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()
	approx := gocv.ApproxPolyDP(pv, epsilon, true)
	defer approx.Close()
	return approx.ToPoints()
}

func fitEllipse(points []image.Point) Ellipse {
	if len(points) < minEllipsePoints {
		return Ellipse{}
	}
	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()
	rr := gocv.FitEllipse(pv)
	return Ellipse{
		Center: geometry.FromImagePoint(rr.Center),
		Width:  float64(rr.Width),
		Height: float64(rr.Height),
		Angle:  rr.Angle,
	}
}
