package region

import (
	"fmt"

	"cellquant/pkg/geometry"

	"gocv.io/x/gocv"
)

// minEllipsePoints is the fewest boundary points FitEllipse accepts.
const minEllipsePoints = 5

// Extract traces the boundaries of a binary mask and tags each as Parent,
// Child or Invalid.
//
// With WithHoles, every outer boundary's net area is its enclosed area minus
// the area of its directly nested holes. Outer boundaries reaching minArea
// become Parents and their holes Children; everything else stays Invalid.
// ExternalOnly skips holes, so net area equals the enclosed area.
//
// A mask with no foreground yields an empty Set, not an error.
func Extract(mask gocv.Mat, topology Topology, minArea float64) (*Set, error) {
	if mask.Empty() {
		return nil, ErrEmptyMask
	}
	if mask.Type() != gocv.MatTypeCV8UC1 {
		return nil, fmt.Errorf("%w: got %d channels", ErrMaskType, mask.Channels())
	}

	set := &Set{
		Topology: topology,
		MinArea:  minArea,
		Rows:     mask.Rows(),
		Cols:     mask.Cols(),
	}

	mode := gocv.RetrievalCComp
	if topology == ExternalOnly {
		mode = gocv.RetrievalExternal
	}

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()
	contours := gocv.FindContoursWithParams(mask, &hierarchy, mode, gocv.ChainApproxNone)
	defer contours.Close()

	n := contours.Size()
	if n == 0 {
		return set, nil
	}

	set.Regions = make([]Region, n)
	for i := 0; i < n; i++ {
		set.Regions[i] = measure(i, contours.At(i), readLink(hierarchy, i))
	}

	for i := range set.Regions {
		outer := &set.Regions[i]
		if outer.Link.Parent >= 0 {
			continue // hole, handled through its owner
		}

		var holeArea float64
		var holes []int
		if topology == WithHoles {
			for c := outer.Link.FirstChild; c >= 0 && c < n; c = set.Regions[c].Link.Next {
				holes = append(holes, c)
				if a := set.Regions[c].Area; a > 0 {
					holeArea += a
				}
			}
		}

		outer.NetArea = outer.Area - holeArea
		if outer.NetArea < 0 {
			outer.NetArea = 0
		}

		// Degenerate boundaries have zero area and are rejected even when
		// minArea is zero.
		if outer.Area <= 0 || outer.NetArea < minArea {
			continue
		}

		outer.Validity = Parent
		outer.Children = holes
		for _, c := range holes {
			hole := &set.Regions[c]
			hole.Validity = Child
			hole.Owner = i
			outer.Holes = append(outer.Holes, hole.Points)
		}
	}

	return set, nil
}

// measure computes the geometry of one traced boundary.
func measure(index int, contour gocv.PointVector, link Link) Region {
	points := contour.ToPoints()
	area := gocv.ContourArea(contour)

	r := Region{
		Index:     index,
		Points:    points,
		Area:      area,
		NetArea:   area,
		ArcLength: gocv.ArcLength(contour, true),
		Validity:  Invalid,
		Owner:     -1,
		Link:      link,
	}

	r.Centroid, r.HasCentroid = geometry.PolygonMoments(points).Centroid()

	if area > 0 {
		r.Ellipse = fitEllipse(points)
	}

	return r
}

// readLink decodes the [next, prev, first child, parent] hierarchy entry.
func readLink(hierarchy gocv.Mat, i int) Link {
	if hierarchy.Empty() || i >= hierarchy.Cols() {
		return Link{Next: -1, Prev: -1, FirstChild: -1, Parent: -1}
	}
	v := hierarchy.GetVeciAt(0, i)
	return Link{
		Next:       int(v[0]),
		Prev:       int(v[1]),
		FirstChild: int(v[2]),
		Parent:     int(v[3]),
	}
}
