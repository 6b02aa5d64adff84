// Package synapse groups synapse regions into fixed-width area bins.
package synapse

import (
	"fmt"
	"math"

	"cellquant/internal/config"
	"cellquant/internal/region"
)

// Histogram is the area distribution of one synapse variant.
// The last bin collects every area at or above its lower edge.
type Histogram struct {
	Width float64 `json:"width"`
	Bins  []int   `json:"bins"`
	Total int     `json:"total"`
}

// Label returns the column label of bin i, e.g. "0-25" or "500+".
func (h Histogram) Label(i int) string {
	lo := float64(i) * h.Width
	if i == len(h.Bins)-1 {
		return fmt.Sprintf("%g+", lo)
	}
	return fmt.Sprintf("%g-%g", lo, lo+h.Width)
}

// Labels returns the labels of every bin.
func (h Histogram) Labels() []string {
	out := make([]string, len(h.Bins))
	for i := range h.Bins {
		out[i] = h.Label(i)
	}
	return out
}

// Binner assigns Parent regions to area bins.
type Binner struct {
	width float64
	count int
}

// NewBinner returns a Binner with count bins of the given width.
func NewBinner(width float64, count int) (*Binner, error) {
	if count <= 0 {
		return nil, &config.ConfigError{Field: "synapse.bin_count", Reason: fmt.Sprintf("must be > 0, got %d", count)}
	}
	if !(width > 0) || math.IsInf(width, 0) {
		return nil, &config.ConfigError{Field: "synapse.bin_width", Reason: fmt.Sprintf("must be > 0, got %g", width)}
	}
	return &Binner{width: width, count: count}, nil
}

// Index returns the bin for a net area: floor(area/width), capped at the
// overflow bin.
func (b *Binner) Index(netArea float64) int {
	if netArea <= 0 {
		return 0
	}
	q := math.Floor(netArea / b.width)
	if math.IsNaN(q) || q >= float64(b.count-1) {
		return b.count - 1
	}
	return int(q)
}

// Bin counts the Parent regions of set. Child and Invalid regions
// contribute nothing, and Total always equals the number of Parents.
func (b *Binner) Bin(set *region.Set) Histogram {
	h := Histogram{Width: b.width, Bins: make([]int, b.count)}
	if set == nil {
		return h
	}
	for _, r := range set.Regions {
		if r.Validity != region.Parent {
			continue
		}
		h.Bins[b.Index(r.NetArea)]++
		h.Total++
	}
	return h
}
