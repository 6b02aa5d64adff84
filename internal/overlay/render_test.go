package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"cellquant/internal/classify"
	"cellquant/internal/frame"
	"cellquant/internal/logger"
	"cellquant/internal/testutil"
	"cellquant/pkg/colorutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

const size = 320

func analyze(t *testing.T) *frame.Analysis {
	t.Helper()
	m := frame.Masks{
		ID:          "ov",
		Nuclear:     testutil.NewMask(size, size),
		Cross:       testutil.NewMask(size, size),
		SynapseLow:  testutil.NewMask(size, size),
		SynapseHigh: testutil.NewMask(size, size),
	}
	defer func() {
		m.Nuclear.Close()
		m.Cross.Close()
		m.SynapseLow.Close()
		m.SynapseHigh.Close()
	}()
	testutil.StampDisc(m.Nuclear, 70, 70, 60)
	testutil.StampDisc(m.Nuclear, 230, 70, 60)
	testutil.FillRect(m.Cross, 0, 0, 150, 150, testutil.Foreground)
	testutil.FillRect(m.SynapseLow, 100, 200, 30, 30, testutil.Foreground)

	opts := frame.DefaultOptions()
	opts.NuclearMinArea = 10
	p, err := frame.NewPipeline(opts, logger.Nop())
	require.NoError(t, err)
	a, err := p.Analyze(m)
	require.NoError(t, err)
	require.Len(t, a.Classes.Neurons, 1)
	require.Len(t, a.Classes.Astrocytes, 1)
	return a
}

// bgr reads one pixel back as (B, G, R).
func bgr(m gocv.Mat, x, y int) [3]uint8 {
	return [3]uint8{m.GetUCharAt(y, x*3), m.GetUCharAt(y, x*3+1), m.GetUCharAt(y, x*3+2)}
}

func TestRenderLayers(t *testing.T) {
	a := analyze(t)
	img, err := Render(a, size, size, DefaultOptions())
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, gocv.MatTypeCV8UC3, img.Type())
	assert.Equal(t, size, img.Rows())

	assert.Equal(t, [3]uint8{255, 255, 255}, bgr(img, 70, 70), "neuron centroid")

	p := a.Classes.Astrocytes[0].Points[0]
	c := colorutil.Astrocyte
	assert.Equal(t, [3]uint8{c.B, c.G, c.R}, bgr(img, p.X, p.Y), "astrocyte outline")

	assert.NotEqual(t, [3]uint8{}, bgr(img, 115, 215), "synapse fill")
}

func TestRenderOutlinesOnly(t *testing.T) {
	a := analyze(t)
	img, err := Render(a, size, size, Options{})
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, [3]uint8{}, bgr(img, 70, 70))
	assert.Equal(t, [3]uint8{}, bgr(img, 115, 215))

	p := a.Classes.Neurons[0].Points[0]
	c := colorutil.Neuron
	assert.Equal(t, [3]uint8{c.B, c.G, c.R}, bgr(img, p.X, p.Y))
}

func TestRenderRejectsBadInput(t *testing.T) {
	_, err := Render(nil, size, size, Options{})
	assert.Error(t, err)
	_, err = Render(&frame.Analysis{}, 0, size, Options{})
	assert.Error(t, err)
}

func TestWritePNG(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ov.png")
	require.NoError(t, Write(p, analyze(t), size, size, DefaultOptions()))
	info, err := os.Stat(p)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestCategoryColor(t *testing.T) {
	assert.Equal(t, colorutil.Neuron, CategoryColor(classify.Neuron))
	assert.Equal(t, colorutil.Astrocyte, CategoryColor(classify.Astrocyte))
	assert.Equal(t, colorutil.Discarded, CategoryColor(classify.Discarded))
}
