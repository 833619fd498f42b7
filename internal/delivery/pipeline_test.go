package delivery

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/forest-guardian/moisture-index-cli/internal/align"
	"github.com/forest-guardian/moisture-index-cli/internal/aoi"
	"github.com/forest-guardian/moisture-index-cli/internal/catalog"
	"github.com/forest-guardian/moisture-index-cli/internal/clip"
	"github.com/forest-guardian/moisture-index-cli/internal/metrics"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
	"github.com/forest-guardian/moisture-index-cli/internal/scene"
	"github.com/forest-guardian/moisture-index-cli/internal/summary"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utm = "EPSG:32633"

var (
	primary  = catalog.TimeWindow{Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)}
	fallback = catalog.TimeWindow{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)}

	june = catalog.SceneRecord{
		ID:       "S2A_33TUL_20240615",
		Datetime: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC),
		Assets:   map[string]string{"nir08": "mem://nir08", "swir16": "mem://swir16"},
	}
)

type staticAOI struct {
	area aoi.AreaOfInterest
	err  error
}

func (s staticAOI) Load() (aoi.AreaOfInterest, error) {
	return s.area, s.err
}

func square(name string, x0, y0, x1, y1 float64) staticAOI {
	return staticAOI{area: aoi.AreaOfInterest{
		Name:     name,
		Geometry: orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}},
		CRS:      utm,
	}}
}

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]catalog.SceneRecord
	calls   int
}

func (f *fakeSearcher) Search(ctx context.Context, q catalog.Query) ([]catalog.SceneRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results[q.Window.String()], nil
}

type recordingSink struct {
	mu      sync.Mutex
	results []*Result
	err     error
}

func (s *recordingSink) Deliver(ctx context.Context, r *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return s.err
}

// opener serves a 10 m NIR band of 0.5 and a 20 m SWIR band of 0.1 over
// the same 100x100 m footprint.
func opener() *raster.MemoryOpener {
	return &raster.MemoryOpener{Rasters: map[string]*raster.Raster{
		"mem://nir08":  raster.Fill("B08", 10, 10, raster.GeoTransform{0, 10, 0, 100, 0, -10}, utm, 0.5),
		"mem://swir16": raster.Fill("B11", 5, 5, raster.GeoTransform{0, 20, 0, 100, 0, -20}, utm, 0.1),
	}}
}

func config(source AOISource, sink Sink) Config {
	return Config{
		AOI:           source,
		Collection:    "sentinel-2-l2a",
		Primary:       primary,
		Fallback:      fallback,
		MaxItems:      10,
		Bands:         scene.BandRoles{NIR: "nir08", SWIR: "swir16"},
		Resampling:    align.Nearest,
		Selection:     catalog.MostRecent{},
		HistogramBins: 10,
		Sink:          sink,
	}
}

func assertAllClosed(t *testing.T, o *raster.MemoryOpener) {
	t.Helper()
	for _, h := range o.Handles() {
		assert.True(t, h.Closed(), "handle %s left open", h.Name())
	}
}

func TestRunEndToEnd(t *testing.T) {
	search := &fakeSearcher{results: map[string][]catalog.SceneRecord{primary.String(): {june}}}
	o := opener()
	sink := &recordingSink{}
	var log bytes.Buffer
	p := &Pipeline{Catalog: search, Opener: o, Metrics: metrics.NewRecorder(), Log: &log}

	res, err := p.Run(context.Background(), config(square("plot-1", 20, 20, 60, 60), sink))
	require.NoError(t, err)

	assert.Equal(t, june.ID, res.Scene.ID)
	assert.Equal(t, primary, res.Window)
	assert.False(t, res.UsedFallback)
	assert.Equal(t, 1, search.calls)

	assert.True(t, raster.SameGrid(res.Aligned.Reference, res.Aligned.Resampled))
	assert.True(t, raster.SameGrid(res.NIR, res.NDMI))
	assert.Equal(t, 16, res.NDMI.ValidCount())
	for _, v := range res.NDMI.Values() {
		assert.InDelta(t, 0.6667, v, 1e-4)
	}
	assert.InDelta(t, 0.6667, res.Mean, 1e-4)
	assert.Equal(t, 16, res.Stats.Count)
	assert.Len(t, res.Stats.Histogram, 10)

	require.Len(t, sink.results, 1)
	assert.Same(t, res, sink.results[0])
	assert.Len(t, o.Handles(), 2)
	assertAllClosed(t, o)
	assert.Contains(t, log.String(), "Selected scene "+june.ID)
}

func TestRunUsesFallbackWindow(t *testing.T) {
	search := &fakeSearcher{results: map[string][]catalog.SceneRecord{fallback.String(): {june}}}
	var log bytes.Buffer
	p := &Pipeline{Catalog: search, Opener: opener(), Log: &log}

	res, err := p.Run(context.Background(), config(square("plot-1", 20, 20, 60, 60), nil))
	require.NoError(t, err)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, fallback, res.Window)
	assert.Equal(t, 2, search.calls)
	assert.Contains(t, log.String(), "Using fallback date range")
}

// lateSearcher answers nothing on its first call, as when a scene is
// published between the primary and fallback queries.
type lateSearcher struct {
	calls int
}

func (l *lateSearcher) Search(ctx context.Context, q catalog.Query) ([]catalog.SceneRecord, error) {
	l.calls++
	if l.calls == 1 {
		return nil, nil
	}
	return []catalog.SceneRecord{june}, nil
}

func TestRunFallbackOverSameWindowIsRecorded(t *testing.T) {
	search := &lateSearcher{}
	rec := metrics.NewRecorder()
	p := &Pipeline{Catalog: search, Opener: opener(), Metrics: rec}
	cfg := config(square("plot-1", 20, 20, 60, 60), nil)
	cfg.Fallback = cfg.Primary

	res, err := p.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, search.calls)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, primary, res.Window)

	path := filepath.Join(t.TempDir(), "ndmi.prom")
	require.NoError(t, rec.WriteTextfile(path))
	text, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(text), `ndmi_catalog_fallback_total{collection="sentinel-2-l2a"} 1`)
}

func TestRunNoImagery(t *testing.T) {
	p := &Pipeline{Catalog: &fakeSearcher{}, Opener: opener()}

	_, err := p.Run(context.Background(), config(square("plot-1", 20, 20, 60, 60), nil))
	require.ErrorIs(t, err, catalog.ErrNoImageryFound)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSearch, stageErr.Stage)
	assert.Contains(t, stageErr.Scene, "sentinel-2-l2a")
}

func TestRunAOIOutsideRaster(t *testing.T) {
	search := &fakeSearcher{results: map[string][]catalog.SceneRecord{primary.String(): {june}}}
	o := opener()
	sink := &recordingSink{}
	p := &Pipeline{Catalog: search, Opener: o}

	_, err := p.Run(context.Background(), config(square("far", 1000, 1000, 1100, 1100), sink))
	require.ErrorIs(t, err, clip.ErrEmptyClipResult)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageClip, stageErr.Stage)
	assert.Equal(t, june.ID, stageErr.Scene)
	assert.Empty(t, sink.results)
	assertAllClosed(t, o)
}

func TestRunAssetMissing(t *testing.T) {
	noSwir := june
	noSwir.Assets = map[string]string{"nir08": "mem://nir08"}
	search := &fakeSearcher{results: map[string][]catalog.SceneRecord{primary.String(): {noSwir}}}
	o := opener()
	p := &Pipeline{Catalog: search, Opener: o}

	_, err := p.Run(context.Background(), config(square("plot-1", 20, 20, 60, 60), nil))
	assert.ErrorIs(t, err, scene.ErrAssetMissing)
	assert.Empty(t, o.Handles())
}

func TestRunTransientReadFailureClosesHandles(t *testing.T) {
	search := &fakeSearcher{results: map[string][]catalog.SceneRecord{primary.String(): {june}}}
	o := opener()
	o.Fail = map[string]error{"mem://swir16": raster.ErrTransient}
	p := &Pipeline{Catalog: search, Opener: o}

	_, err := p.Run(context.Background(), config(square("plot-1", 20, 20, 60, 60), nil))
	require.ErrorIs(t, err, raster.ErrTransient)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageFetch, stageErr.Stage)
	assert.Len(t, o.Handles(), 1)
	assertAllClosed(t, o)
}

func TestRunAOIOutsideOneBand(t *testing.T) {
	search := &fakeSearcher{results: map[string][]catalog.SceneRecord{primary.String(): {june}}}
	o := opener()
	// SWIR only covers the northern half, AOI sits in the southern half.
	o.Rasters["mem://swir16"] = raster.Fill("B11", 5, 2, raster.GeoTransform{0, 20, 0, 100, 0, -20}, utm, 0.1)
	p := &Pipeline{Catalog: search, Opener: o}

	_, err := p.Run(context.Background(), config(square("south", 20, 10, 60, 40), nil))
	require.Error(t, err)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageClip, stageErr.Stage, "swir has no pixel inside the aoi")
	assertAllClosed(t, o)
}

func TestRunZeroSumPixelsHaveNoMean(t *testing.T) {
	search := &fakeSearcher{results: map[string][]catalog.SceneRecord{primary.String(): {june}}}
	o := opener()
	o.Rasters["mem://nir08"] = raster.Fill("B08", 10, 10, raster.GeoTransform{0, 10, 0, 100, 0, -10}, utm, 0.1)
	o.Rasters["mem://swir16"] = raster.Fill("B11", 5, 5, raster.GeoTransform{0, 20, 0, 100, 0, -20}, utm, -0.1)
	p := &Pipeline{Catalog: search, Opener: o}

	_, err := p.Run(context.Background(), config(square("plot-1", 20, 20, 60, 60), nil))
	require.ErrorIs(t, err, summary.ErrNoValidPixels)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageSummary, stageErr.Stage)
}

func TestRunSinkFailure(t *testing.T) {
	search := &fakeSearcher{results: map[string][]catalog.SceneRecord{primary.String(): {june}}}
	sink := &recordingSink{err: errors.New("disk full")}
	p := &Pipeline{Catalog: search, Opener: opener()}

	_, err := p.Run(context.Background(), config(square("plot-1", 20, 20, 60, 60), sink))
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageDeliver, stageErr.Stage)
	assert.EqualError(t, err, "deliver [S2A_33TUL_20240615]: disk full")
}

func TestRunRejectsIncompleteConfig(t *testing.T) {
	p := &Pipeline{Catalog: &fakeSearcher{}, Opener: opener()}
	cfg := config(nil, nil)
	cfg.Selection = nil
	cfg.MaxItems = 0

	_, err := p.Run(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorContains(t, err, "aoi source is required")
	assert.ErrorContains(t, err, "selection policy is required")
	assert.ErrorContains(t, err, "max items must be positive")
}

func TestRunAOILoadFailure(t *testing.T) {
	p := &Pipeline{Catalog: &fakeSearcher{}, Opener: opener()}

	_, err := p.Run(context.Background(), config(staticAOI{err: errors.New("no such file")}, nil))
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageLoadAOI, stageErr.Stage)
}
