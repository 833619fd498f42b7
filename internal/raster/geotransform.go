package raster

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// GeoTransform holds the six GDAL affine coefficients mapping pixel/line
// coordinates to georeferenced coordinates:
//
//	x = gt[0] + col*gt[1] + row*gt[2]
//	y = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

var ErrSingularTransform = errors.New("geotransform is not invertible")

func (gt GeoTransform) Apply(col, row float64) (float64, float64) {
	x := gt[0] + col*gt[1] + row*gt[2]
	y := gt[3] + col*gt[4] + row*gt[5]
	return x, y
}

// PixelCenter returns the georeferenced coordinate of the centre of pixel (col, row).
func (gt GeoTransform) PixelCenter(col, row int) (float64, float64) {
	return gt.Apply(float64(col)+0.5, float64(row)+0.5)
}

func (gt GeoTransform) Inverse() (GeoTransform, error) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 || math.IsNaN(det) {
		return GeoTransform{}, ErrSingularTransform
	}
	return GeoTransform{
		(gt[2]*gt[3] - gt[0]*gt[5]) / det,
		gt[5] / det,
		-gt[2] / det,
		(-gt[1]*gt[3] + gt[0]*gt[4]) / det,
		-gt[4] / det,
		gt[1] / det,
	}, nil
}

func (gt GeoTransform) IsNorthUp() bool {
	return gt[2] == 0 && gt[4] == 0
}

// Shift returns the transform of a window whose top-left pixel is (xOff, yOff).
func (gt GeoTransform) Shift(xOff, yOff int) GeoTransform {
	x, y := gt.Apply(float64(xOff), float64(yOff))
	return GeoTransform{x, gt[1], gt[2], y, gt[4], gt[5]}
}

// Bounds returns the georeferenced extent covered by a width x height grid.
func (gt GeoTransform) Bounds(width, height int) orb.Bound {
	b := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	for _, c := range [][2]float64{{0, 0}, {float64(width), 0}, {0, float64(height)}, {float64(width), float64(height)}} {
		x, y := gt.Apply(c[0], c[1])
		b = b.Extend(orb.Point{x, y})
	}
	return b
}
