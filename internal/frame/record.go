package frame

// Record is the reportable row of one frame. A frame in which nothing
// was detected yields a zero-count Record, not an error.
type Record struct {
	FrameID string `json:"frame_id"`
	Depth   int    `json:"depth"`

	AstrocyteCount int `json:"astrocytes"`
	NeuronCount    int `json:"neurons"`
	DiscardedCount int `json:"discarded"`

	ProximityMean   float64 `json:"proximity_mean"`
	ProximityStdDev float64 `json:"proximity_stddev"`

	SynapseBinsLow   []int `json:"synapse_bins_low"`
	SynapseBinsHigh  []int `json:"synapse_bins_high"`
	SynapseTotalLow  int   `json:"synapse_total_low"`
	SynapseTotalHigh int   `json:"synapse_total_high"`
}

// Clone returns a copy that shares no slices with r.
func (r Record) Clone() Record {
	r.SynapseBinsLow = append([]int(nil), r.SynapseBinsLow...)
	r.SynapseBinsHigh = append([]int(nil), r.SynapseBinsHigh...)
	return r
}
