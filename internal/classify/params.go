package classify

import "fmt"

// Params holds the neuron/astrocyte decision thresholds.
// The defaults are empirically tuned and have no derivation beyond that.
type Params struct {
	MinArcLength      float64 // Shorter boundaries are discarded
	MinVertices       int     // Fewer boundary points are discarded
	CoverageThreshold float64 // Cross-channel coverage below this is an astrocyte
	AspectThreshold   float64 // Min-area-rect aspect at or below this is an astrocyte
}

// DefaultParams returns the tuned decision thresholds.
func DefaultParams() Params {
	return Params{
		MinArcLength:      250,
		MinVertices:       5,
		CoverageThreshold: 0.25,
		AspectThreshold:   0.1,
	}
}

// WithThresholds returns a copy of p with custom coverage and aspect thresholds.
func (p Params) WithThresholds(coverage, aspect float64) Params {
	p.CoverageThreshold = coverage
	p.AspectThreshold = aspect
	return p
}

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	switch {
	case p.MinArcLength < 0:
		return fmt.Errorf("min arc length must be >= 0, got %g", p.MinArcLength)
	case p.MinVertices < 0:
		return fmt.Errorf("min vertices must be >= 0, got %d", p.MinVertices)
	case p.CoverageThreshold < 0 || p.CoverageThreshold > 1:
		return fmt.Errorf("coverage threshold must be in [0,1], got %g", p.CoverageThreshold)
	case p.AspectThreshold < 0 || p.AspectThreshold > 1:
		return fmt.Errorf("aspect threshold must be in [0,1], got %g", p.AspectThreshold)
	}
	return nil
}
