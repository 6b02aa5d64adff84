// Package report writes frame records to CSV, SQLite and a bin plot.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"cellquant/internal/frame"
	"cellquant/internal/synapse"
)

// CSVWriter emits one row per frame. The header is written before the
// first row. It implements frame.Sink.
type CSVWriter struct {
	w       *csv.Writer
	labels  []string
	started bool
}

// NewCSVWriter writes to w with one column per synapse bin of the given
// layout, for each intensity variant.
func NewCSVWriter(w io.Writer, binWidth float64, binCount int) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), labels: BinLabels(binWidth, binCount)}
}

// BinLabels returns the bin labels of a layout, e.g. "0-25" ... "500+".
func BinLabels(binWidth float64, binCount int) []string {
	if binCount <= 0 {
		return nil
	}
	h := synapse.Histogram{Width: binWidth, Bins: make([]int, binCount)}
	return h.Labels()
}

// Header returns the column names.
func (c *CSVWriter) Header() []string {
	cols := []string{
		"frame_id", "depth", "astrocytes", "neurons", "discarded",
		"proximity_mean", "proximity_stddev", "syn_low_total", "syn_high_total",
	}
	for _, l := range c.labels {
		cols = append(cols, "syn_low_"+l)
	}
	for _, l := range c.labels {
		cols = append(cols, "syn_high_"+l)
	}
	return cols
}

func (c *CSVWriter) Emit(r frame.Record) error {
	if !c.started {
		if err := c.w.Write(c.Header()); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		c.started = true
	}
	if len(r.SynapseBinsLow) != len(c.labels) || len(r.SynapseBinsHigh) != len(c.labels) {
		return fmt.Errorf("frame %s: record has %d/%d bins, header has %d",
			r.FrameID, len(r.SynapseBinsLow), len(r.SynapseBinsHigh), len(c.labels))
	}

	row := []string{
		r.FrameID,
		strconv.Itoa(r.Depth),
		strconv.Itoa(r.AstrocyteCount),
		strconv.Itoa(r.NeuronCount),
		strconv.Itoa(r.DiscardedCount),
		strconv.FormatFloat(r.ProximityMean, 'f', 4, 64),
		strconv.FormatFloat(r.ProximityStdDev, 'f', 4, 64),
		strconv.Itoa(r.SynapseTotalLow),
		strconv.Itoa(r.SynapseTotalHigh),
	}
	for _, n := range r.SynapseBinsLow {
		row = append(row, strconv.Itoa(n))
	}
	for _, n := range r.SynapseBinsHigh {
		row = append(row, strconv.Itoa(n))
	}
	if err := c.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

// Flush writes any buffered data.
func (c *CSVWriter) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
