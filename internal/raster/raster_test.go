package raster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var utm = GeoTransform{500000, 10, 0, 4100000, 0, -10}

func TestGeoTransformInverseRoundTrip(t *testing.T) {
	inv, err := utm.Inverse()
	require.NoError(t, err)

	x, y := utm.PixelCenter(3, 7)
	assert.Equal(t, 500035.0, x)
	assert.Equal(t, 4099925.0, y)

	col, row := inv.Apply(x, y)
	assert.InDelta(t, 3.5, col, 1e-9)
	assert.InDelta(t, 7.5, row, 1e-9)
}

func TestGeoTransformSingular(t *testing.T) {
	_, err := GeoTransform{0, 0, 0, 0, 0, 0}.Inverse()
	assert.ErrorIs(t, err, ErrSingularTransform)
}

func TestGeoTransformShiftAndBounds(t *testing.T) {
	shifted := utm.Shift(2, 5)
	assert.Equal(t, GeoTransform{500020, 10, 0, 4099950, 0, -10}, shifted)

	b := utm.Bounds(4, 3)
	assert.Equal(t, 500000.0, b.Min[0])
	assert.Equal(t, 4099970.0, b.Min[1])
	assert.Equal(t, 500040.0, b.Max[0])
	assert.Equal(t, 4100000.0, b.Max[1])
}

func TestWindowIntersect(t *testing.T) {
	w := Window{XOff: -2, YOff: 3, Width: 5, Height: 10}.Intersect(10, 8)
	assert.Equal(t, Window{XOff: 0, YOff: 3, Width: 3, Height: 5}, w)

	outside := Window{XOff: 20, YOff: 0, Width: 5, Height: 5}.Intersect(10, 8)
	assert.True(t, outside.Empty())
}

func TestMemoryHandleReadWindow(t *testing.T) {
	src := New("nir08", 4, 4, utm, "EPSG:32633")
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			src.Set(col, row, float64(row*4+col))
		}
	}
	src.Invalidate(2, 2)

	h := NewMemoryHandle(src)
	out, err := h.ReadWindow(context.Background(), Window{XOff: 1, YOff: 1, Width: 2, Height: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Width)
	assert.Equal(t, utm.Shift(1, 1), out.Transform)
	v, ok := out.At(0, 0)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)
	_, ok = out.At(1, 1)
	assert.False(t, ok)
	assert.Equal(t, 3, out.ValidCount())

	_, err = h.ReadWindow(context.Background(), Window{XOff: 3, YOff: 3, Width: 2, Height: 2})
	assert.Error(t, err)

	require.NoError(t, h.Close())
	_, err = h.ReadWindow(context.Background(), Window{Width: 1, Height: 1})
	assert.Error(t, err)
}

func TestSameGrid(t *testing.T) {
	a := New("a", 2, 2, utm, "EPSG:32633")
	b := New("b", 2, 2, utm, "EPSG:32633")
	assert.True(t, SameGrid(a, b))

	b.Transform = utm.Shift(1, 0)
	assert.False(t, SameGrid(a, b))
}
