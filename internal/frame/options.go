package frame

import (
	"cellquant/internal/classify"
	"cellquant/internal/config"
	"cellquant/internal/region"
)

// Options are the per-run analysis settings shared by every frame.
type Options struct {
	Topology region.Topology

	NuclearMinArea float64

	Consolidate        bool
	ConsolidateMinArea float64
	MergeRadius        float64
	ApproxEpsilon      float64

	Classifier classify.Params
	ROIFactor  float64

	SynapseMinArea float64
	BinWidth       float64
	BinCount       int
}

// OptionsFromConfig maps a validated configuration to Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Topology:           cfg.TopologyMode(),
		NuclearMinArea:     cfg.Nuclear.MinArea,
		Consolidate:        cfg.Consolidate.Enabled,
		ConsolidateMinArea: cfg.Consolidate.MinArea,
		MergeRadius:        cfg.Consolidate.MergeRadius,
		ApproxEpsilon:      cfg.Consolidate.ApproxEpsilon,
		Classifier: classify.Params{
			MinArcLength:      cfg.Classifier.MinArcLength,
			MinVertices:       cfg.Classifier.MinVertices,
			CoverageThreshold: cfg.Classifier.CoverageThreshold,
			AspectThreshold:   cfg.Classifier.AspectThreshold,
		},
		ROIFactor:      cfg.Proximity.ROIFactor,
		SynapseMinArea: cfg.Synapse.MinArea,
		BinWidth:       cfg.Synapse.BinWidth,
		BinCount:       cfg.Synapse.BinCount,
	}
}

// DefaultOptions returns Options for config.Default.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}
