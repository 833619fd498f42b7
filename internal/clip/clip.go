// Package clip restricts a band to the footprint of an area of interest.
package clip

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/forest-guardian/moisture-index-cli/internal/aoi"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
	"github.com/paulmach/orb"
)

var (
	ErrEmptyClipResult = errors.New("empty clip result")
	ErrRotatedRaster   = errors.New("rotated geotransforms are not supported")
)

// Projector reprojects a geometry between two coordinate reference systems.
type Projector interface {
	Reproject(g orb.Geometry, fromCRS, toCRS string) (orb.Geometry, error)
}

// Clip reads the part of h covering area and invalidates every pixel whose
// centre falls outside the polygon. The AOI is reprojected into the band CRS
// first when the two differ.
func Clip(ctx context.Context, h raster.Handle, area aoi.AreaOfInterest, p Projector) (*raster.Raster, error) {
	st := h.Structure()
	if !st.Transform.IsNorthUp() {
		return nil, fmt.Errorf("clip %s: %w", h.Name(), ErrRotatedRaster)
	}

	geometry := area.Geometry
	if area.CRS != st.CRS {
		if p == nil {
			return nil, fmt.Errorf("clip %s: aoi is in %s, band is in another CRS and no projector is set", h.Name(), area.CRS)
		}
		var err error
		geometry, err = p.Reproject(area.Geometry, area.CRS, st.CRS)
		if err != nil {
			return nil, fmt.Errorf("failed to reproject aoi %s for band %s: %w", area.Name, h.Name(), err)
		}
	}

	w, err := Window(st.Transform, geometry.Bound(), st.SizeX, st.SizeY)
	if err != nil {
		return nil, fmt.Errorf("clip %s: %w", h.Name(), err)
	}
	if w.Empty() {
		return nil, fmt.Errorf("%w: aoi %s does not intersect band %s", ErrEmptyClipResult, area.Name, h.Name())
	}

	r, err := h.ReadWindow(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("failed to read window %s of band %s: %w", w, h.Name(), err)
	}
	Mask(r, geometry)

	if r.ValidCount() == 0 {
		return nil, fmt.Errorf("%w: no valid %s pixel inside aoi %s", ErrEmptyClipResult, h.Name(), area.Name)
	}
	return r, nil
}

// Window converts a georeferenced bound into the pixel window of a
// sizeX x sizeY grid touching it, clipped to the grid.
func Window(gt raster.GeoTransform, b orb.Bound, sizeX, sizeY int) (raster.Window, error) {
	inv, err := gt.Inverse()
	if err != nil {
		return raster.Window{}, err
	}
	minCol, minRow := math.Inf(1), math.Inf(1)
	maxCol, maxRow := math.Inf(-1), math.Inf(-1)
	for _, c := range []orb.Point{b.Min, b.Max, {b.Min[0], b.Max[1]}, {b.Max[0], b.Min[1]}} {
		col, row := inv.Apply(c[0], c[1])
		minCol, maxCol = math.Min(minCol, col), math.Max(maxCol, col)
		minRow, maxRow = math.Min(minRow, row), math.Max(maxRow, row)
	}

	x0, y0 := int(math.Floor(minCol)), int(math.Floor(minRow))
	x1, y1 := int(math.Ceil(maxCol)), int(math.Ceil(maxRow))
	if x1 == x0 {
		x1++
	}
	if y1 == y0 {
		y1++
	}
	return raster.Window{XOff: x0, YOff: y0, Width: x1 - x0, Height: y1 - y0}.Intersect(sizeX, sizeY), nil
}

// Mask invalidates the pixels of r whose centre lies outside geometry.
func Mask(r *raster.Raster, geometry orb.Geometry) {
	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			x, y := r.Transform.PixelCenter(col, row)
			if !aoi.Contains(geometry, orb.Point{x, y}) {
				r.Invalidate(col, row)
			}
		}
	}
}
