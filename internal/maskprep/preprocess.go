package maskprep

import (
	"fmt"
	"image"

	"cellquant/internal/config"

	"gocv.io/x/gocv"
)

// Masks holds the four binary masks of one frame. Every Mat is CV8UC1
// with foreground 255. The caller owns the Mats.
type Masks struct {
	Nuclear     gocv.Mat // blue
	Cross       gocv.Mat // green
	SynapseLow  gocv.Mat // red, low intensity cut
	SynapseHigh gocv.Mat // red, high intensity cut
}

// Close releases every mask.
func (m *Masks) Close() {
	for _, mat := range []*gocv.Mat{&m.Nuclear, &m.Cross, &m.SynapseLow, &m.SynapseHigh} {
		mat.Close()
	}
}

// Preprocessor applies blur, optional equalisation and a binary threshold
// to each colour plane of a merged BGR frame.
type Preprocessor struct {
	cfg config.PreprocessConfig
}

func New(cfg config.PreprocessConfig) (*Preprocessor, error) {
	if k := cfg.BlurKernel; k < 0 || (k > 0 && k%2 == 0) {
		return nil, &config.ConfigError{Field: "preprocess.blur_kernel", Reason: fmt.Sprintf("must be 0 or odd, got %d", k)}
	}
	return &Preprocessor{cfg: cfg}, nil
}

// FromImage converts img and derives its masks.
func (p *Preprocessor) FromImage(img image.Image) (Masks, error) {
	bgr, err := ImageToMat(img)
	if err != nil {
		return Masks{}, err
	}
	defer bgr.Close()
	return p.Masks(bgr)
}

// Masks splits a BGR frame into planes and thresholds each. The red plane
// is cut twice.
func (p *Preprocessor) Masks(bgr gocv.Mat) (Masks, error) {
	if bgr.Empty() {
		return Masks{}, fmt.Errorf("empty frame")
	}
	if bgr.Channels() != 3 {
		return Masks{}, fmt.Errorf("want a 3-channel frame, got %d channels", bgr.Channels())
	}

	planes := gocv.Split(bgr)
	defer func() {
		for _, pl := range planes {
			pl.Close()
		}
	}()

	blue := p.Enhance(planes[0])
	defer blue.Close()
	green := p.Enhance(planes[1])
	defer green.Close()
	red := p.Enhance(planes[2])
	defer red.Close()

	th := p.cfg.Thresholds
	return Masks{
		Nuclear:     Threshold(blue, th.Nuclear),
		Cross:       Threshold(green, th.Cross),
		SynapseLow:  Threshold(red, th.RedLow),
		SynapseHigh: Threshold(red, th.RedHigh),
	}, nil
}

// Enhance blurs a single plane and, when configured, equalises its
// histogram. The result is a new Mat.
func (p *Preprocessor) Enhance(plane gocv.Mat) gocv.Mat {
	out := plane.Clone()
	if k := p.cfg.BlurKernel; k > 1 {
		gocv.GaussianBlur(out, &out, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	}
	if p.cfg.Equalize {
		gocv.EqualizeHist(out, &out)
	}
	return out
}

// Threshold returns a binary mask of pixels above level. A level of 0
// lets Otsu's method pick the cut.
func Threshold(plane gocv.Mat, level float64) gocv.Mat {
	mask := gocv.NewMat()
	typ := gocv.ThresholdBinary
	if level <= 0 {
		typ |= gocv.ThresholdOtsu
	}
	gocv.Threshold(plane, &mask, float32(level), 255, typ)
	return mask
}
