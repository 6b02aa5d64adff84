package report

import (
	"fmt"
	"io"

	"cellquant/internal/frame"
	"cellquant/pkg/colorutil"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SumBins adds up the synapse bins of every record. Records whose bin
// count differs from the first are rejected.
func SumBins(records []frame.Record) (low, high []int, err error) {
	for _, r := range records {
		if low == nil {
			low = make([]int, len(r.SynapseBinsLow))
			high = make([]int, len(r.SynapseBinsHigh))
		}
		if len(r.SynapseBinsLow) != len(low) || len(r.SynapseBinsHigh) != len(high) {
			return nil, nil, fmt.Errorf("frame %s has a different bin layout", r.FrameID)
		}
		for i, n := range r.SynapseBinsLow {
			low[i] += n
		}
		for i, n := range r.SynapseBinsHigh {
			high[i] += n
		}
	}
	return low, high, nil
}

// HistogramPlot builds a grouped bar chart of low and high intensity
// synapse counts per area bin.
func HistogramPlot(title string, labels []string, low, high []int) (*plot.Plot, error) {
	if len(low) != len(labels) || len(high) != len(labels) {
		return nil, fmt.Errorf("bins (%d low, %d high) do not match %d labels", len(low), len(high), len(labels))
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "synapse area (px)"
	p.Y.Label.Text = "count"

	width := vg.Points(8)
	lowBars, err := plotter.NewBarChart(toValues(low), width)
	if err != nil {
		return nil, fmt.Errorf("low bars: %w", err)
	}
	lowBars.Color = colorutil.ROI
	lowBars.LineStyle.Width = vg.Length(0)
	lowBars.Offset = -width / 2

	highBars, err := plotter.NewBarChart(toValues(high), width)
	if err != nil {
		return nil, fmt.Errorf("high bars: %w", err)
	}
	highBars.Color = colorutil.Astrocyte
	highBars.LineStyle.Width = vg.Length(0)
	highBars.Offset = width / 2

	p.Add(lowBars, highBars)
	p.Legend.Add("low intensity", lowBars)
	p.Legend.Add("high intensity", highBars)
	p.Legend.Top = true
	p.NominalX(labels...)
	return p, nil
}

// WriteHistogram renders the plot as PNG to w.
func WriteHistogram(w io.Writer, title string, labels []string, low, high []int) error {
	p, err := HistogramPlot(title, labels, low, high)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(12*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

// SaveHistogram renders the plot to a file; the format follows the
// extension.
func SaveHistogram(path, title string, labels []string, low, high []int) error {
	p, err := HistogramPlot(title, labels, low, high)
	if err != nil {
		return err
	}
	if err := p.Save(12*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

func toValues(counts []int) plotter.Values {
	v := make(plotter.Values, len(counts))
	for i, n := range counts {
		v[i] = float64(n)
	}
	return v
}
