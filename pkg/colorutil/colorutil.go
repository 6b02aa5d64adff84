// Package colorutil provides the fixed overlay colours and deterministic
// palettes used when drawing analysis results.
package colorutil

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Overlay colours by meaning.
var (
	Black     = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Neuron    = color.RGBA{R: 0, G: 230, B: 90, A: 255}
	Astrocyte = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Discarded = color.RGBA{R: 120, G: 120, B: 120, A: 255}
	Hole      = color.RGBA{R: 255, G: 220, B: 0, A: 255}
	ROI       = color.RGBA{R: 0, G: 160, B: 255, A: 255}
)

// Palette returns n colours evenly spaced in hue at constant lightness
// and chroma. The same n always yields the same colours.
func Palette(n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	out := make([]color.RGBA, n)
	for i := range out {
		h := 360 * float64(i) / float64(n)
		out[i] = ToRGBA(colorful.Hcl(h, 0.55, 0.7).Clamped())
	}
	return out
}

// Ramp returns n colours blending from a to b in Lab space, e.g. for
// ordered data such as area bins.
func Ramp(a, b color.RGBA, n int) []color.RGBA {
	if n <= 0 {
		return nil
	}
	ca, _ := colorful.MakeColor(a)
	cb, _ := colorful.MakeColor(b)
	out := make([]color.RGBA, n)
	for i := range out {
		t := 0.0
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		out[i] = ToRGBA(ca.BlendLab(cb, t).Clamped())
	}
	return out
}

// ToRGBA converts to an opaque 8-bit colour.
func ToRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
