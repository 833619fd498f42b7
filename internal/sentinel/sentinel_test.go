package sentinel

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/moisture-index-cli/internal/aoi"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBand(t *testing.T, values []float32, width, height int) string {
	t.Helper()
	register()

	path := filepath.Join(t.TempDir(), "band.tif")
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, width, height)
	require.NoError(t, err)

	sr, err := godal.NewSpatialRefFromEPSG(32633)
	require.NoError(t, err)
	defer sr.Close()
	wkt, err := sr.WKT()
	require.NoError(t, err)

	require.NoError(t, ds.SetGeoTransform([6]float64{500000, 10, 0, 4000, 0, -10}))
	require.NoError(t, ds.SetProjection(wkt))
	band := ds.Bands()[0]
	require.NoError(t, band.SetNoData(0))
	require.NoError(t, band.Write(0, 0, values, width, height))
	require.NoError(t, ds.Close())
	return path
}

func TestBandOpenerReadsWindowWithNoData(t *testing.T) {
	values := make([]float32, 16)
	for i := range values {
		values[i] = float32(i)
	}
	path := writeBand(t, values, 4, 4)

	h, err := NewBandOpener(0).Open(context.Background(), "nir08", path)
	require.NoError(t, err)
	defer h.Close()

	st := h.Structure()
	assert.Equal(t, 4, st.SizeX)
	assert.Equal(t, 4, st.SizeY)
	assert.Equal(t, raster.GeoTransform{500000, 10, 0, 4000, 0, -10}, st.Transform)
	assert.True(t, st.HasNoData)
	assert.Equal(t, 0.0, st.NoData)
	assert.NotEmpty(t, st.CRS)

	r, err := h.ReadWindow(context.Background(), raster.Window{XOff: 0, YOff: 0, Width: 2, Height: 3})
	require.NoError(t, err)
	assert.Equal(t, "nir08", r.Name)
	assert.Equal(t, 5, r.ValidCount(), "pixel 0 holds the nodata value")
	v, ok := r.At(1, 2)
	assert.True(t, ok)
	assert.Equal(t, 9.0, v)
	_, ok = r.At(0, 0)
	assert.False(t, ok)
	assert.True(t, math.IsNaN(r.Data[0]))

	_, err = h.ReadWindow(context.Background(), raster.Window{XOff: 3, YOff: 3, Width: 2, Height: 2})
	assert.Error(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	_, err = h.ReadWindow(context.Background(), raster.Window{Width: 1, Height: 1})
	assert.Error(t, err)
}

func TestBandOpenerMissingFileIsTransient(t *testing.T) {
	_, err := NewBandOpener(0).Open(context.Background(), "nir08", filepath.Join(t.TempDir(), "missing.tif"))
	assert.ErrorIs(t, err, raster.ErrTransient)
}

func TestVSIPath(t *testing.T) {
	assert.Equal(t, "/vsicurl/https://example.com/B08.tif", VSIPath("https://example.com/B08.tif"))
	assert.Equal(t, "/vsis3/sentinel-cogs/B08.tif", VSIPath("s3://sentinel-cogs/B08.tif"))
	assert.Equal(t, "/tmp/B08.tif", VSIPath("/tmp/B08.tif"))
}

const forest = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"plot_id": "1"},
     "geometry": {"type": "Polygon", "coordinates": [[[15.0, 0.0], [15.01, 0.0], [15.01, 0.01], [15.0, 0.01], [15.0, 0.0]]]}},
    {"type": "Feature", "properties": {"plot_id": "2"},
     "geometry": {"type": "Polygon", "coordinates": [[[16.0, 1.0], [16.02, 1.0], [16.02, 1.02], [16.0, 1.02], [16.0, 1.0]]]}}
  ]
}`

func writeForest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "forest.geojson")
	require.NoError(t, os.WriteFile(path, []byte(forest), 0644))
	return path
}

func TestGeoJSONSource(t *testing.T) {
	path := writeForest(t)

	area, err := GeoJSONSource{Path: path, Plot: "2"}.Load()
	require.NoError(t, err)
	assert.Equal(t, "forest_2", area.Name)
	assert.Equal(t, aoi.CanonicalCRS, area.CRS)
	b := area.Bound()
	assert.InDelta(t, 16.0, b.Min.X(), 1e-9)
	assert.InDelta(t, 1.02, b.Max.Y(), 1e-9)

	first, err := GeoJSONSource{Path: path}.Load()
	require.NoError(t, err)
	assert.Equal(t, "forest", first.Name)
	assert.InDelta(t, 15.0, first.Bound().Min.X(), 1e-9)

	_, err = GeoJSONSource{Path: path, Plot: "99"}.Load()
	assert.ErrorContains(t, err, "geometry not found")
}

func TestListPlots(t *testing.T) {
	plots, err := ListPlots(writeForest(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, plots)
}

func TestProjectorReprojectsIntoUTM(t *testing.T) {
	square := orb.Polygon{{{14.999, -0.001}, {15.001, -0.001}, {15.001, 0.001}, {14.999, 0.001}, {14.999, -0.001}}}

	g, err := Projector{}.Reproject(square, "EPSG:4326", "EPSG:32633")
	require.NoError(t, err)
	c, _ := planar.CentroidArea(g)
	assert.InDelta(t, 500000, c.X(), 1)
	assert.InDelta(t, 0, c.Y(), 1)

	xs, ys := []float64{15}, []float64{0}
	require.NoError(t, Projector{}.TransformPoints(xs, ys, "EPSG:4326", "EPSG:32633"))
	assert.InDelta(t, 500000, xs[0], 1e-3)
	assert.InDelta(t, 0, ys[0], 1e-3)

	_, err = Projector{}.Reproject(square, "EPSG:notanumber", "EPSG:32633")
	assert.Error(t, err)
}

func TestGeoTIFFWriterRoundTrip(t *testing.T) {
	r := raster.New("ndmi", 2, 2, raster.GeoTransform{500000, 10, 0, 4000, 0, -10}, "EPSG:32633")
	r.Set(0, 0, 0.25)
	r.Set(1, 0, -0.5)
	r.Set(0, 1, 0.75)
	r.Invalidate(1, 1)
	path := filepath.Join(t.TempDir(), "ndmi.tif")

	require.NoError(t, NewGeoTIFFWriter().WriteRaster(r, path))

	h, err := NewBandOpener(0).Open(context.Background(), "ndmi", path)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, -9999.0, h.Structure().NoData)
	back, err := h.ReadWindow(context.Background(), raster.Window{Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, back.ValidCount())
	v, ok := back.At(1, 0)
	assert.True(t, ok)
	assert.Equal(t, -0.5, v)
	_, ok = back.At(1, 1)
	assert.False(t, ok)
}
