package region

import (
	"image"
	"testing"

	"cellquant/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squareRegion builds a Parent region centred on (cx, cy) with the given net area.
func squareRegion(index, cx, cy int, netArea float64) Region {
	pts := []image.Point{
		{cx - 2, cy - 2}, {cx + 2, cy - 2}, {cx + 2, cy + 2}, {cx - 2, cy + 2},
	}
	return Region{
		Index:       index,
		Points:      pts,
		Area:        netArea,
		NetArea:     netArea,
		ArcLength:   16,
		Centroid:    geometry.Point2D{X: float64(cx), Y: float64(cy)},
		HasCentroid: true,
		Validity:    Parent,
		Owner:       -1,
	}
}

func TestConsolidateContiguousRun(t *testing.T) {
	regions := []Region{
		squareRegion(0, 0, 0, 100),
		squareRegion(1, 5, 0, 100),
		squareRegion(2, 6, 0, 10), // within radius but too small
		squareRegion(3, 8, 0, 100),
		squareRegion(4, 100, 0, 100),
	}

	out := Consolidate(regions, 50, 10)
	require.Len(t, out, 2)

	assert.Equal(t, []int{0, 1, 3}, out[0].Members)
	assert.InDelta(t, 300.0, out[0].NetArea, 1e-9)
	assert.Len(t, out[0].Points, 12)
	assert.Len(t, out[0].Parts, 3)
	assert.InDelta(t, 48.0, out[0].ArcLength, 1e-9)
	assert.NotEmpty(t, out[0].Approx)

	assert.Equal(t, []int{4}, out[1].Members)
	assert.InDelta(t, 100.0, out[1].NetArea, 1e-9)
}

func TestConsolidateIsOrderDependent(t *testing.T) {
	// The far region breaks the run, so the third one is never merged
	// into the first even though they are neighbours.
	regions := []Region{
		squareRegion(0, 0, 0, 100),
		squareRegion(1, 100, 0, 100),
		squareRegion(2, 5, 0, 100),
	}

	out := Consolidate(regions, 50, 10)
	require.Len(t, out, 3)
	for i, r := range out {
		assert.Equal(t, []int{i}, r.Members)
	}
}

func TestConsolidateSmallRegionOutsideRadiusEndsRun(t *testing.T) {
	// The small far region is checked for distance before area, so it
	// ends the run and the close region after it seeds a run of its own.
	regions := []Region{
		squareRegion(0, 0, 0, 100),
		squareRegion(1, 100, 0, 10),
		squareRegion(2, 5, 0, 100),
	}

	out := Consolidate(regions, 50, 10)
	require.Len(t, out, 2)
	assert.Equal(t, []int{0}, out[0].Members)
	assert.Equal(t, []int{2}, out[1].Members)
}

func TestConsolidateSmallRegionsNeverSeed(t *testing.T) {
	regions := []Region{
		squareRegion(0, 0, 0, 10),
		squareRegion(1, 3, 0, 100),
		squareRegion(2, 60, 0, 20),
	}

	out := Consolidate(regions, 50, 10)
	require.Len(t, out, 1)
	assert.Equal(t, []int{1}, out[0].Members)
}

func TestConsolidateWeightedCentroid(t *testing.T) {
	regions := []Region{
		squareRegion(0, 0, 0, 100),
		squareRegion(1, 8, 0, 300),
	}

	out := Consolidate(regions, 50, 10)
	require.Len(t, out, 1)
	require.True(t, out[0].HasCentroid)
	assert.InDelta(t, 6.0, out[0].Centroid.X, 1e-9)
	assert.InDelta(t, 0.0, out[0].Centroid.Y, 1e-9)
}

func TestConsolidateRadiusIsInclusive(t *testing.T) {
	regions := []Region{
		squareRegion(0, 0, 0, 100),
		squareRegion(1, 10, 0, 100),
	}

	out := Consolidate(regions, 50, 10)
	require.Len(t, out, 1)
	assert.Equal(t, []int{0, 1}, out[0].Members)
}

func TestConsolidateEmpty(t *testing.T) {
	assert.Empty(t, Consolidate(nil, 50, 10))
}

func TestConsolidatedBoundsCoverParts(t *testing.T) {
	out := Consolidate([]Region{
		squareRegion(0, 10, 10, 100),
		squareRegion(1, 16, 10, 100),
	}, 50, 10)
	require.Len(t, out, 1)

	b := out[0].Bounds()
	assert.Equal(t, 8, b.X)
	assert.Equal(t, 8, b.Y)
	assert.Equal(t, 11, b.Width)
	assert.Equal(t, 5, b.Height)
}
