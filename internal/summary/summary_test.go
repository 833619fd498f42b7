package summary

import (
	"testing"

	"github.com/forest-guardian/moisture-index-cli/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gt = raster.GeoTransform{0, 10, 0, 20, 0, -10}

func TestMeanSingleValidPixel(t *testing.T) {
	r := raster.New("ndmi", 2, 2, gt, "EPSG:32633")
	r.Set(1, 0, 0.2)

	mean, err := Mean(r)
	require.NoError(t, err)
	assert.Equal(t, 0.2, mean)
}

func TestMeanIgnoresInvalidPixels(t *testing.T) {
	r := raster.Fill("ndmi", 2, 2, gt, "EPSG:32633", 0.4)
	r.Set(0, 0, 0.0)
	r.Invalidate(1, 1)

	mean, err := Mean(r)
	require.NoError(t, err)
	assert.InDelta(t, 0.8/3, mean, 1e-12)
}

func TestMeanNoValidPixels(t *testing.T) {
	r := raster.New("ndmi", 3, 3, gt, "EPSG:32633")

	_, err := Mean(r)
	assert.ErrorIs(t, err, ErrNoValidPixels)

	_, err = Describe(r, 10)
	assert.ErrorIs(t, err, ErrNoValidPixels)
}

func TestDescribe(t *testing.T) {
	r := raster.New("ndmi", 2, 3, gt, "EPSG:32633")
	r.Set(0, 0, -0.5)
	r.Set(1, 0, 0)
	r.Set(0, 1, 0.5)
	r.Set(1, 1, 0.5)
	r.Invalidate(0, 2)

	stats, err := Describe(r, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Count)
	assert.InDelta(t, 0.125, stats.Mean, 1e-12)
	assert.Equal(t, -0.5, stats.Min)
	assert.Equal(t, 0.5, stats.Max)
	assert.InDelta(t, 0.41457809, stats.StdDev, 1e-8)

	require.Len(t, stats.Histogram, 4)
	counts := []int{}
	for _, b := range stats.Histogram {
		counts = append(counts, b.Count)
	}
	assert.Equal(t, []int{1, 0, 1, 2}, counts)
	assert.Equal(t, -0.5, stats.Histogram[0].Lower)
	assert.Equal(t, 0.5, stats.Histogram[3].Upper)
}

func TestDescribeConstantRaster(t *testing.T) {
	r := raster.Fill("ndmi", 2, 2, gt, "EPSG:32633", 0.3)

	stats, err := Describe(r, 5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.StdDev)
	assert.Equal(t, 4, stats.Histogram[4].Count)
}
