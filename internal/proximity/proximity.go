// Package proximity measures how many astrocytes surround each neuron.
package proximity

import (
	"cellquant/internal/region"
	"cellquant/pkg/geometry"

	"gonum.org/v1/gonum/stat"
)

// Stat summarises per-neuron astrocyte neighbour counts for one frame.
type Stat struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"` // Population standard deviation

	// Radius is the neighbour radius actually used: roiFactor * mean neuron
	// bounding-box diagonal / 2.
	Radius       float64   `json:"radius"`
	MeanDiameter float64   `json:"mean_diameter"`
	Counts       []float64 `json:"counts,omitempty"` // One per neuron with a centroid
}

// Compute counts, for each neuron, the astrocytes whose centroid lies within
// the adaptive radius of the neuron's centroid (inclusive) and returns the
// mean and population standard deviation of those counts.
//
// Regions without a centroid (zero area) are skipped. No neurons gives a
// zero Stat; no astrocytes gives all-zero counts.
func Compute(astrocytes, neurons []region.Region, roiFactor float64) Stat {
	var (
		neuronCenters []geometry.Point2D
		diameters     []float64
	)
	for _, n := range neurons {
		if !n.HasCentroid {
			continue
		}
		neuronCenters = append(neuronCenters, n.Centroid)
		diameters = append(diameters, n.Bounds().Diagonal())
	}
	if len(neuronCenters) == 0 {
		return Stat{}
	}

	astroCenters := make([]geometry.Point2D, 0, len(astrocytes))
	for _, a := range astrocytes {
		if a.HasCentroid {
			astroCenters = append(astroCenters, a.Centroid)
		}
	}

	meanDiameter := stat.Mean(diameters, nil)
	radius := roiFactor * meanDiameter / 2

	counts := make([]float64, len(neuronCenters))
	for i, nc := range neuronCenters {
		for _, ac := range astroCenters {
			if nc.Distance(ac) <= radius {
				counts[i]++
			}
		}
	}

	mean, std := stat.PopMeanStdDev(counts, nil)
	return Stat{
		Mean:         mean,
		StdDev:       std,
		Radius:       radius,
		MeanDiameter: meanDiameter,
		Counts:       counts,
	}
}
