package output

import (
	"image/color"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// Ramp is a continuous colour map built from evenly spaced stops.
type Ramp []colorful.Color

func hexRamp(stops ...string) Ramp {
	r := make(Ramp, len(stops))
	for i, s := range stops {
		c, err := colorful.Hex(s)
		if err != nil {
			panic(err)
		}
		r[i] = c
	}
	return r
}

var (
	// RdYlGn runs red (dry) through yellow to green (moist).
	RdYlGn  = hexRamp("#a50026", "#d73027", "#f46d43", "#fdae61", "#fee08b", "#ffffbf", "#d9ef8b", "#a6d96a", "#66bd63", "#1a9850", "#006837")
	Viridis = hexRamp("#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725")
)

// At returns the opaque colour at t in [0, 1]; t is clamped.
func (r Ramp) At(t float64) color.RGBA {
	if math.IsNaN(t) {
		t = 0
	}
	t = math.Max(0, math.Min(1, t))
	pos := t * float64(len(r)-1)
	i := min(int(pos), len(r)-2)
	c := r[i].BlendRgb(r[i+1], pos-float64(i)).Clamped()
	red, green, blue := c.RGB255()
	return color.RGBA{R: red, G: green, B: blue, A: 255}
}

func normalize(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	norm := (value - min) / (max - min)
	if norm < 0 {
		return 0
	}
	if norm > 1 {
		return 1
	}
	return norm
}

// percentile interpolates linearly between closest ranks, p in [0, 100].
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(rank-float64(lo))
}

// stretch returns the 2nd and 98th percentile of values, the display range
// that keeps a few outliers from washing out a band preview.
func stretch(values []float64) (float64, float64) {
	return percentile(values, 2), percentile(values, 98)
}
