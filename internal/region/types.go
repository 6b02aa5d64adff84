// Package region extracts closed boundary regions from binary masks and
// organises them into an outer/hole hierarchy.
package region

import (
	"errors"
	"image"

	"cellquant/pkg/geometry"
)

// Validity tags a region for downstream stages.
type Validity int

const (
	// Invalid regions failed the area filter (or are holes of such regions)
	// and are excluded from every statistic.
	Invalid Validity = iota
	// Child regions are holes whose area is subtracted from their owner.
	Child
	// Parent regions are valid cell candidates.
	Parent
)

func (v Validity) String() string {
	switch v {
	case Child:
		return "Child"
	case Parent:
		return "Parent"
	default:
		return "Invalid"
	}
}

// Topology selects which boundaries the extractor recovers.
type Topology int

const (
	// WithHoles recovers outer boundaries and their directly nested holes.
	WithHoles Topology = iota
	// ExternalOnly ignores holes entirely.
	ExternalOnly
)

func (t Topology) String() string {
	if t == ExternalOnly {
		return "external_only"
	}
	return "with_holes"
}

// ParseTopology maps a config string to a Topology.
func ParseTopology(s string) (Topology, bool) {
	switch s {
	case "with_holes", "":
		return WithHoles, true
	case "external_only":
		return ExternalOnly, true
	}
	return WithHoles, false
}

var (
	// ErrEmptyMask is returned for masks with no pixels.
	ErrEmptyMask = errors.New("empty mask")
	// ErrMaskType is returned for masks that are not 8-bit single channel.
	ErrMaskType = errors.New("mask must be 8-bit single channel")
)

// Link is the raw boundary-tracing hierarchy entry of a region.
// -1 means "none".
type Link struct {
	Next       int
	Prev       int
	FirstChild int
	Parent     int
}

// Ellipse is the best-fit ellipse of a region boundary.
type Ellipse struct {
	Center geometry.Point2D `json:"center"`
	Width  float64          `json:"width"`  // Full axis length
	Height float64          `json:"height"` // Full axis length
	Angle  float64          `json:"angle"`  // Degrees
}

// Region is a closed polygonal boundary with its derived measurements.
type Region struct {
	Index  int           `json:"index"`  // Detection order within the source mask
	Points []image.Point `json:"points"` // Boundary, in tracing order

	// Holes holds the boundaries of this region's Child regions, copied so the
	// region can be rasterised without its Set.
	Holes [][]image.Point `json:"holes,omitempty"`

	// Parts holds the outlines of the regions merged into this one by
	// Consolidate. Empty for unmerged regions.
	Parts [][]image.Point `json:"parts,omitempty"`

	// Approx is the simplified polygon computed after consolidation.
	Approx []image.Point `json:"approx,omitempty"`

	Area        float64          `json:"area"`     // Enclosed by Points alone
	NetArea     float64          `json:"net_area"` // Area minus hole area
	ArcLength   float64          `json:"arc_length"`
	Centroid    geometry.Point2D `json:"centroid"`
	HasCentroid bool             `json:"has_centroid"`
	Ellipse     Ellipse          `json:"ellipse"`
	Validity    Validity         `json:"validity"`

	Owner    int   `json:"owner"`              // Owning Parent index for a Child, else -1
	Children []int `json:"children,omitempty"` // Child indices of a Parent
	Members  []int `json:"members,omitempty"`  // Source indices after consolidation
	Link     Link  `json:"-"`
}

// Vertices returns the number of boundary points.
func (r Region) Vertices() int {
	return len(r.Points)
}

// Bounds returns the axis-aligned bounding rectangle of the boundary.
func (r Region) Bounds() geometry.RectInt {
	if len(r.Parts) > 0 {
		var all []image.Point
		for _, p := range r.Parts {
			all = append(all, p...)
		}
		return geometry.BoundingBox(all)
	}
	return geometry.BoundingBox(r.Points)
}

// Outlines returns the polygons whose interiors make up the region.
func (r Region) Outlines() [][]image.Point {
	if len(r.Parts) > 0 {
		return r.Parts
	}
	return [][]image.Point{r.Points}
}

// Set holds every region extracted from one mask.
type Set struct {
	Regions  []Region
	Topology Topology
	MinArea  float64
	Rows     int
	Cols     int
}

// Len returns the number of regions of any validity.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Regions)
}

// Parents returns the Parent regions in detection order.
func (s *Set) Parents() []Region {
	if s == nil {
		return nil
	}
	var out []Region
	for _, r := range s.Regions {
		if r.Validity == Parent {
			out = append(out, r)
		}
	}
	return out
}

// Holes returns the Child regions owned by the region at index i.
func (s *Set) Holes(i int) []Region {
	if s == nil || i < 0 || i >= len(s.Regions) {
		return nil
	}
	children := s.Regions[i].Children
	out := make([]Region, 0, len(children))
	for _, c := range children {
		out = append(out, s.Regions[c])
	}
	return out
}

// Count returns how many regions carry validity v.
func (s *Set) Count(v Validity) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, r := range s.Regions {
		if r.Validity == v {
			n++
		}
	}
	return n
}
