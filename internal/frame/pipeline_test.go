package frame

import (
	"testing"

	"cellquant/internal/config"
	"cellquant/internal/logger"
	"cellquant/internal/region"
	"cellquant/internal/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

const side = 320

func testOptions() Options {
	opts := DefaultOptions()
	opts.NuclearMinArea = 10
	opts.SynapseMinArea = 1
	return opts
}

func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	p, err := NewPipeline(opts, logger.Nop())
	require.NoError(t, err)
	return p
}

func blankMasks(id string, depth int) Masks {
	return Masks{
		ID:          id,
		Depth:       depth,
		Nuclear:     testutil.NewMask(side, side),
		Cross:       testutil.NewMask(side, side),
		SynapseLow:  testutil.NewMask(side, side),
		SynapseHigh: testutil.NewMask(side, side),
	}
}

// sceneMasks holds one neuron (covered disc), one astrocyte (uncovered
// disc), three low synapses of areas 25, 9 and 841 and one high synapse
// of area 841.
func sceneMasks(id string, depth int) Masks {
	m := blankMasks(id, depth)
	testutil.StampDisc(m.Nuclear, 70, 70, 60)
	testutil.StampDisc(m.Nuclear, 230, 70, 60)
	testutil.FillRect(m.Cross, 0, 0, 150, 150, testutil.Foreground)

	testutil.FillRect(m.SynapseLow, 10, 200, 6, 6, testutil.Foreground)
	testutil.FillRect(m.SynapseLow, 40, 200, 4, 4, testutil.Foreground)
	testutil.FillRect(m.SynapseLow, 100, 200, 30, 30, testutil.Foreground)
	testutil.FillRect(m.SynapseHigh, 100, 200, 30, 30, testutil.Foreground)
	return m
}

func bins(n int, set map[int]int) []int {
	out := make([]int, n)
	for i, v := range set {
		out[i] = v
	}
	return out
}

func TestProcessFrameScene(t *testing.T) {
	m := sceneMasks("s_z03", 3)
	defer closeMasks(&m)

	rec, err := newPipeline(t, testOptions()).ProcessFrame(m)
	require.NoError(t, err)

	want := Record{
		FrameID:          "s_z03",
		Depth:            3,
		AstrocyteCount:   1,
		NeuronCount:      1,
		ProximityMean:    1,
		ProximityStdDev:  0,
		SynapseBinsLow:   bins(21, map[int]int{0: 1, 1: 1, 20: 1}),
		SynapseBinsHigh:  bins(21, map[int]int{20: 1}),
		SynapseTotalLow:  3,
		SynapseTotalHigh: 1,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessFrameNothingDetected(t *testing.T) {
	m := blankMasks("empty", 1)
	defer closeMasks(&m)

	rec, err := newPipeline(t, testOptions()).ProcessFrame(m)
	require.NoError(t, err)

	want := Record{
		FrameID:         "empty",
		Depth:           1,
		SynapseBinsLow:  make([]int, 21),
		SynapseBinsHigh: make([]int, 21),
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeConsolidatesNearbyNuclei(t *testing.T) {
	m := blankMasks("c", 1)
	defer closeMasks(&m)
	testutil.StampDisc(m.Nuclear, 100, 100, 10)
	testutil.StampDisc(m.Nuclear, 100, 125, 10)

	opts := testOptions()
	opts.Consolidate = true
	opts.ConsolidateMinArea = 50
	opts.MergeRadius = 30

	a, err := newPipeline(t, opts).Analyze(m)
	require.NoError(t, err)

	assert.Equal(t, 2, a.Nuclear.Count(region.Parent))
	require.Len(t, a.Candidates, 1)
	assert.Len(t, a.Candidates[0].Members, 2)
	// Two small discs stay below the arc-length floor even merged.
	assert.Equal(t, 1, a.Record.DiscardedCount)
}

func TestAnalyzeInputErrors(t *testing.T) {
	p := newPipeline(t, testOptions())

	t.Run("empty mask", func(t *testing.T) {
		m := blankMasks("e", 1)
		defer closeMasks(&m)
		m.Cross.Close()
		m.Cross = gocv.NewMat()

		_, err := p.Analyze(m)
		var ie *InputError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, "e", ie.FrameID)
		assert.ErrorIs(t, err, region.ErrEmptyMask)
	})

	t.Run("size mismatch", func(t *testing.T) {
		m := blankMasks("s", 1)
		defer closeMasks(&m)
		m.SynapseHigh.Close()
		m.SynapseHigh = testutil.NewMask(side/2, side)

		_, err := p.Analyze(m)
		var ie *InputError
		require.ErrorAs(t, err, &ie)
		assert.Contains(t, ie.Reason, "synapse high")
	})

	t.Run("colour mask", func(t *testing.T) {
		m := blankMasks("c", 1)
		defer closeMasks(&m)
		m.Nuclear.Close()
		m.Nuclear = gocv.NewMatWithSize(side, side, gocv.MatTypeCV8UC3)

		_, err := p.Analyze(m)
		assert.ErrorIs(t, err, region.ErrMaskType)
	})
}

func TestNewPipelineConfigErrors(t *testing.T) {
	cases := map[string]struct {
		mutate func(*Options)
		field  string
	}{
		"bin count":  {func(o *Options) { o.BinCount = 0 }, "synapse.bin_count"},
		"bin width":  {func(o *Options) { o.BinWidth = -2 }, "synapse.bin_width"},
		"min area":   {func(o *Options) { o.NuclearMinArea = -1 }, "nuclear.min_area"},
		"radius":     {func(o *Options) { o.MergeRadius = -3 }, "consolidate.merge_radius"},
		"topology":   {func(o *Options) { o.Topology = region.Topology(9) }, "topology"},
		"classifier": {func(o *Options) { o.Classifier.CoverageThreshold = 2 }, "classifier"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			tc.mutate(&opts)
			_, err := NewPipeline(opts, nil)
			var ce *config.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Topology = "external_only"
	cfg.Synapse.BinCount = 8
	cfg.Classifier.MinVertices = 7

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, region.ExternalOnly, opts.Topology)
	assert.Equal(t, 8, opts.BinCount)
	assert.Equal(t, 7, opts.Classifier.MinVertices)
	assert.Equal(t, cfg.Proximity.ROIFactor, opts.ROIFactor)
}

func TestRecordCloneIsIndependent(t *testing.T) {
	r := Record{SynapseBinsLow: []int{1, 2}, SynapseBinsHigh: []int{3}}
	c := r.Clone()
	c.SynapseBinsLow[0] = 9
	c.SynapseBinsHigh[0] = 9
	assert.Equal(t, []int{1, 2}, r.SynapseBinsLow)
	assert.Equal(t, []int{3}, r.SynapseBinsHigh)
}
