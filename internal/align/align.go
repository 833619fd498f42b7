// Package align resamples one band onto the pixel grid of another so the two
// can be combined pixel by pixel.
package align

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/forest-guardian/moisture-index-cli/internal/raster"
)

var ErrGridMismatch = errors.New("aligned bands do not share a grid")

type Resampling int

const (
	// Nearest copies the source pixel containing the reference pixel centre.
	// It never invents values, so index ratios stay ratios of measured reflectance.
	Nearest Resampling = iota
	// Bilinear interpolates the four source pixels around the reference pixel
	// centre. All four must be valid.
	Bilinear
)

func (r Resampling) String() string {
	switch r {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	}
	return fmt.Sprintf("Resampling(%d)", int(r))
}

func ParseResampling(s string) (Resampling, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nearest", "near":
		return Nearest, nil
	case "bilinear":
		return Bilinear, nil
	}
	return Nearest, fmt.Errorf("unknown resampling %q", s)
}

// Pair is two bands sharing one grid: pixel (col, row) is the same ground
// location in both.
type Pair struct {
	Reference *raster.Raster
	Resampled *raster.Raster
}

type Options struct {
	Resampling Resampling
	// Transform converts coordinates in place from the reference CRS to the
	// source CRS. Required only when the two CRSs differ; points it cannot
	// convert must be set to NaN.
	Transform func(xs, ys []float64) error
}

// Align resamples src onto the exact grid of ref. Reference pixels falling
// outside src, or on invalid src pixels, are invalid in the output.
func Align(ref, src *raster.Raster, opts Options) (Pair, error) {
	if ref.CRS != src.CRS && opts.Transform == nil {
		return Pair{}, fmt.Errorf("cannot align %s (%s) onto %s (%s) without a coordinate transform", src.Name, src.CRS, ref.Name, ref.CRS)
	}
	inv, err := src.Transform.Inverse()
	if err != nil {
		return Pair{}, fmt.Errorf("align %s: %w", src.Name, err)
	}

	out := raster.New(src.Name, ref.Width, ref.Height, ref.Transform, ref.CRS)
	xs := make([]float64, ref.Width)
	ys := make([]float64, ref.Width)
	for row := 0; row < ref.Height; row++ {
		for col := 0; col < ref.Width; col++ {
			xs[col], ys[col] = ref.Transform.PixelCenter(col, row)
		}
		if ref.CRS != src.CRS {
			if err := opts.Transform(xs, ys); err != nil {
				return Pair{}, fmt.Errorf("failed to transform row %d of %s into %s: %w", row, ref.Name, src.CRS, err)
			}
		}
		for col := 0; col < ref.Width; col++ {
			fc, fr := inv.Apply(xs[col], ys[col])
			v, ok := sample(src, fc, fr, opts.Resampling)
			if ok {
				out.Set(col, row, v)
			} else {
				out.Invalidate(col, row)
			}
		}
	}

	if !raster.SameGrid(ref, out) {
		return Pair{}, fmt.Errorf("%w: %s is %dx%d, %s is %dx%d", ErrGridMismatch, ref.Name, ref.Width, ref.Height, out.Name, out.Width, out.Height)
	}
	return Pair{Reference: ref, Resampled: out}, nil
}

// sample reads src at fractional pixel coordinates (fc, fr).
func sample(src *raster.Raster, fc, fr float64, method Resampling) (float64, bool) {
	if math.IsNaN(fc) || math.IsNaN(fr) || math.IsInf(fc, 0) || math.IsInf(fr, 0) {
		return 0, false
	}
	switch method {
	case Bilinear:
		x, y := fc-0.5, fr-0.5
		c0, r0 := int(math.Floor(x)), int(math.Floor(y))
		dx, dy := x-float64(c0), y-float64(r0)
		v00, ok00 := src.At(c0, r0)
		v10, ok10 := src.At(c0+1, r0)
		v01, ok01 := src.At(c0, r0+1)
		v11, ok11 := src.At(c0+1, r0+1)
		if !(ok00 && ok10 && ok01 && ok11) {
			return 0, false
		}
		top := v00*(1-dx) + v10*dx
		bottom := v01*(1-dx) + v11*dx
		return top*(1-dy) + bottom*dy, true
	default:
		return src.At(int(math.Floor(fc)), int(math.Floor(fr)))
	}
}
