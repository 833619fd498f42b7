// Package indexes computes per-pixel spectral indices from aligned bands.
package indexes

import (
	"fmt"
	"math"

	"github.com/forest-guardian/moisture-index-cli/internal/align"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
)

const NDMIName = "ndmi"

// NormalizedDifference computes (a - b) / (a + b) for every pixel. A pixel is
// invalid when either input is invalid, when a + b is zero, or when the
// result is not finite. Valid results always lie in [-1, 1] for
// non-negative inputs.
func NormalizedDifference(name string, a, b *raster.Raster) (*raster.Raster, error) {
	if !raster.SameGrid(a, b) {
		return nil, fmt.Errorf("%w: %s is %dx%d, %s is %dx%d", align.ErrGridMismatch, a.Name, a.Width, a.Height, b.Name, b.Width, b.Height)
	}
	out := raster.New(name, a.Width, a.Height, a.Transform, a.CRS)
	for i := range out.Data {
		if !a.Valid[i] || !b.Valid[i] {
			out.Data[i] = math.NaN()
			continue
		}
		sum := a.Data[i] + b.Data[i]
		if sum == 0 {
			out.Data[i] = math.NaN()
			continue
		}
		v := (a.Data[i] - b.Data[i]) / sum
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out.Data[i] = math.NaN()
			continue
		}
		out.Data[i] = v
		out.Valid[i] = true
	}
	return out, nil
}

// NDMI is the normalized difference moisture index of an aligned
// near-infrared (reference) and short-wave infrared (resampled) pair.
func NDMI(pair align.Pair) (*raster.Raster, error) {
	return NormalizedDifference(NDMIName, pair.Reference, pair.Resampled)
}
