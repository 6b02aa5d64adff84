// Package frame runs the per-frame analysis and the parallel batch over
// a stack.
package frame

import (
	"fmt"
	"math"

	"cellquant/internal/classify"
	"cellquant/internal/config"
	"cellquant/internal/logger"
	"cellquant/internal/proximity"
	"cellquant/internal/region"
	"cellquant/internal/synapse"

	"gocv.io/x/gocv"
)

const pipelineComponent = "Pipeline"

// Masks are the binary inputs of one frame. Every Mat must be a
// non-empty CV8UC1 of the nuclear mask's size. The creator closes them.
type Masks struct {
	ID    string
	Depth int

	Nuclear     gocv.Mat
	Cross       gocv.Mat
	SynapseLow  gocv.Mat
	SynapseHigh gocv.Mat
}

// Analysis keeps every intermediate of one frame alongside its Record,
// for overlays and inspection tools.
type Analysis struct {
	Record      Record
	Nuclear     *region.Set
	Candidates  []region.Region // Nuclear parents, consolidated when enabled
	Classes     *classify.Result
	Proximity   proximity.Stat
	SynapseLow  *region.Set
	SynapseHigh *region.Set
	HistLow     synapse.Histogram
	HistHigh    synapse.Histogram
}

// Pipeline is safe for concurrent use; it holds only read-only state.
type Pipeline struct {
	opts         Options
	classifier   *classify.Classifier
	binner       *synapse.Binner
	consolidator region.Consolidator
	log          logger.Logger
}

// NewPipeline validates opts and builds the per-frame stages. All
// problems are reported as *config.ConfigError before any frame runs.
func NewPipeline(opts Options, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.Nop()
	}
	if opts.Topology != region.WithHoles && opts.Topology != region.ExternalOnly {
		return nil, &config.ConfigError{Field: "topology", Reason: fmt.Sprintf("unknown mode %d", opts.Topology)}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"nuclear.min_area", opts.NuclearMinArea},
		{"consolidate.min_area", opts.ConsolidateMinArea},
		{"consolidate.merge_radius", opts.MergeRadius},
		{"consolidate.approx_epsilon", opts.ApproxEpsilon},
		{"proximity.roi_factor", opts.ROIFactor},
		{"synapse.min_area", opts.SynapseMinArea},
	} {
		if f.v < 0 || math.IsNaN(f.v) {
			return nil, &config.ConfigError{Field: f.name, Reason: fmt.Sprintf("must be >= 0, got %g", f.v)}
		}
	}

	cls, err := classify.New(opts.Classifier)
	if err != nil {
		return nil, &config.ConfigError{Field: "classifier", Reason: err.Error()}
	}
	binner, err := synapse.NewBinner(opts.BinWidth, opts.BinCount)
	if err != nil {
		return nil, err
	}

	eps := opts.ApproxEpsilon
	if eps == 0 {
		eps = region.DefaultApproxEpsilon
	}
	return &Pipeline{
		opts:       opts,
		classifier: cls,
		binner:     binner,
		consolidator: region.Consolidator{
			MinArea:       opts.ConsolidateMinArea,
			MergeRadius:   opts.MergeRadius,
			ApproxEpsilon: eps,
		},
		log: log,
	}, nil
}

// Options returns the settings the pipeline was built with.
func (p *Pipeline) Options() Options { return p.opts }

// ProcessFrame analyzes one frame and returns its Record.
func (p *Pipeline) ProcessFrame(m Masks) (Record, error) {
	a, err := p.Analyze(m)
	if err != nil {
		return Record{}, err
	}
	return a.Record, nil
}

// Analyze runs extraction, optional consolidation, classification,
// proximity and synapse binning on one frame.
func (p *Pipeline) Analyze(m Masks) (*Analysis, error) {
	if err := checkMasks(m); err != nil {
		return nil, err
	}

	nuclear, err := region.Extract(m.Nuclear, p.opts.Topology, p.opts.NuclearMinArea)
	if err != nil {
		return nil, &InputError{FrameID: m.ID, Reason: "nuclear extraction", Err: err}
	}

	candidates := nuclear.Parents()
	if p.opts.Consolidate {
		before := len(candidates)
		candidates = p.consolidator.Consolidate(candidates)
		p.log.Debug(pipelineComponent, "consolidated nuclear regions", map[string]interface{}{
			"frame": m.ID, "before": before, "after": len(candidates),
		})
	}

	classes, err := p.classifier.Classify(candidates, m.Cross)
	if err != nil {
		return nil, &InputError{FrameID: m.ID, Reason: "classification", Err: err}
	}

	prox := proximity.Compute(classes.Astrocytes, classes.Neurons, p.opts.ROIFactor)

	low, err := region.Extract(m.SynapseLow, p.opts.Topology, p.opts.SynapseMinArea)
	if err != nil {
		return nil, &InputError{FrameID: m.ID, Reason: "low synapse extraction", Err: err}
	}
	high, err := region.Extract(m.SynapseHigh, p.opts.Topology, p.opts.SynapseMinArea)
	if err != nil {
		return nil, &InputError{FrameID: m.ID, Reason: "high synapse extraction", Err: err}
	}
	histLow := p.binner.Bin(low)
	histHigh := p.binner.Bin(high)

	rec := Record{
		FrameID:          m.ID,
		Depth:            m.Depth,
		AstrocyteCount:   len(classes.Astrocytes),
		NeuronCount:      len(classes.Neurons),
		DiscardedCount:   len(classes.Discarded),
		ProximityMean:    prox.Mean,
		ProximityStdDev:  prox.StdDev,
		SynapseBinsLow:   histLow.Bins,
		SynapseBinsHigh:  histHigh.Bins,
		SynapseTotalLow:  histLow.Total,
		SynapseTotalHigh: histHigh.Total,
	}

	p.log.Debug(pipelineComponent, "frame analyzed", map[string]interface{}{
		"frame":      m.ID,
		"regions":    nuclear.Len(),
		"neurons":    rec.NeuronCount,
		"astrocytes": rec.AstrocyteCount,
		"discarded":  rec.DiscardedCount,
		"syn_low":    rec.SynapseTotalLow,
		"syn_high":   rec.SynapseTotalHigh,
	})

	return &Analysis{
		Record:      rec,
		Nuclear:     nuclear,
		Candidates:  candidates,
		Classes:     classes,
		Proximity:   prox,
		SynapseLow:  low,
		SynapseHigh: high,
		HistLow:     histLow,
		HistHigh:    histHigh,
	}, nil
}

func checkMasks(m Masks) error {
	named := []struct {
		name string
		mat  gocv.Mat
	}{
		{"nuclear", m.Nuclear},
		{"cross", m.Cross},
		{"synapse low", m.SynapseLow},
		{"synapse high", m.SynapseHigh},
	}
	for _, n := range named {
		if n.mat.Empty() {
			return &InputError{FrameID: m.ID, Reason: n.name + " mask is empty", Err: region.ErrEmptyMask}
		}
		if n.mat.Type() != gocv.MatTypeCV8UC1 {
			return &InputError{FrameID: m.ID, Reason: n.name + " mask is not 8-bit single channel", Err: region.ErrMaskType}
		}
	}
	rows, cols := m.Nuclear.Rows(), m.Nuclear.Cols()
	for _, n := range named[1:] {
		if n.mat.Rows() != rows || n.mat.Cols() != cols {
			return &InputError{FrameID: m.ID, Reason: fmt.Sprintf("%s mask is %dx%d, nuclear is %dx%d",
				n.name, n.mat.Cols(), n.mat.Rows(), cols, rows)}
		}
	}
	return nil
}
