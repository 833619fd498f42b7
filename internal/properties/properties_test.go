package properties

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTimeout(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "")
	assert.Equal(t, DefaultHTTPTimeout, HTTPTimeout())

	t.Setenv("HTTP_TIMEOUT", "90s")
	assert.Equal(t, 90*time.Second, HTTPTimeout())

	t.Setenv("HTTP_TIMEOUT", "15")
	assert.Equal(t, 15*time.Second, HTTPTimeout())

	t.Setenv("HTTP_TIMEOUT", "0")
	assert.Equal(t, DefaultHTTPTimeout, HTTPTimeout())
}

func TestStacDefaults(t *testing.T) {
	t.Setenv("STAC_API_URL", "")
	t.Setenv("STAC_COLLECTION", "")
	assert.Equal(t, DefaultStacAPIURL, StacAPIURL())
	assert.Equal(t, DefaultCollection, StacCollection())

	t.Setenv("STAC_COLLECTION", "sentinel-2-c1-l2a")
	assert.Equal(t, "sentinel-2-c1-l2a", StacCollection())
}

func writeRunFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadRunFileDefaults(t *testing.T) {
	t.Setenv("STAC_COLLECTION", "")
	t.Setenv("ROOT_PATH", "/srv/ndmi")
	path := writeRunFile(t, `
aoi: aoi.shp
primary_window: 2024-06-01/2024-06-30
fallback_window: 2024-01-01/2024-06-30
`)

	rf, err := LoadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "aoi.shp"), rf.AOI)
	assert.Equal(t, DefaultCollection, rf.Collection)
	assert.Equal(t, 10, rf.MaxItems)
	assert.Equal(t, "nir08", rf.Bands.NIR)
	assert.Equal(t, "swir16", rf.Bands.SWIR)
	assert.Equal(t, "nearest", rf.Resampling)
	assert.Equal(t, "most-recent", rf.Selection)
	assert.Equal(t, 50, rf.HistogramBins)
	assert.Equal(t, "/srv/ndmi/data/result", rf.OutputDir)
}

func TestLoadRunFileOverrides(t *testing.T) {
	path := writeRunFile(t, `
aoi: /data/forest.geojson
plot: "12"
collection: sentinel-2-c1-l2a
primary_window: 2024-06-01T00:00:00Z/2024-06-30T23:59:59Z
fallback_window: 2024-01-01T00:00:00Z/2024-06-30T23:59:59Z
max_items: 3
bands:
  nir: B08
  swir: B11
resampling: bilinear
selection: least-cloud-cover
s3_prefix: runs/june
`)

	rf, err := LoadRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/forest.geojson", rf.AOI)
	assert.Equal(t, "12", rf.Plot)
	assert.Equal(t, 3, rf.MaxItems)
	assert.Equal(t, "B08", rf.Bands.NIR)
	assert.Equal(t, "B11", rf.Bands.SWIR)
	assert.Equal(t, "bilinear", rf.Resampling)
	assert.Equal(t, "least-cloud-cover", rf.Selection)
	assert.Equal(t, "runs/june", rf.S3Prefix)
}

func TestLoadRunFileErrors(t *testing.T) {
	_, err := LoadRunFile(writeRunFile(t, "primary_window: a/b\nfallback_window: a/b\n"))
	assert.ErrorContains(t, err, "no aoi")

	_, err = LoadRunFile(writeRunFile(t, "aoi: x.shp\nprimary_window: a/b\n"))
	assert.ErrorContains(t, err, "fallback_window")

	_, err = LoadRunFile(writeRunFile(t, "aoi: x.shp\nunknown: 1\n"))
	assert.ErrorContains(t, err, "failed to parse")

	_, err = LoadRunFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
