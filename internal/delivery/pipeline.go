// Package delivery wires the moisture index pipeline together: catalog
// search, band fetch, clip, align, index and summary, then hands the
// products to a sink.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/forest-guardian/moisture-index-cli/internal/align"
	"github.com/forest-guardian/moisture-index-cli/internal/aoi"
	"github.com/forest-guardian/moisture-index-cli/internal/catalog"
	"github.com/forest-guardian/moisture-index-cli/internal/clip"
	"github.com/forest-guardian/moisture-index-cli/internal/indexes"
	"github.com/forest-guardian/moisture-index-cli/internal/metrics"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
	"github.com/forest-guardian/moisture-index-cli/internal/scene"
	"github.com/forest-guardian/moisture-index-cli/internal/summary"
)

type Stage string

const (
	StageLoadAOI Stage = "load-aoi"
	StageSearch  Stage = "search"
	StageSelect  Stage = "select"
	StageFetch   Stage = "fetch"
	StageClip    Stage = "clip"
	StageAlign   Stage = "align"
	StageIndex   Stage = "index"
	StageSummary Stage = "summary"
	StageDeliver Stage = "deliver"
)

// StageError reports which stage failed and for which scene or search
// window.
type StageError struct {
	Stage Stage
	Scene string
	Err   error
}

func (e *StageError) Error() string {
	if e.Scene == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Stage, e.Scene, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type AOISource interface {
	Load() (aoi.AreaOfInterest, error)
}

// Sink receives the products of a successful run.
type Sink interface {
	Deliver(ctx context.Context, r *Result) error
}

// Projector reprojects AOI geometries and converts pixel coordinates between
// band reference systems.
type Projector interface {
	clip.Projector
	TransformPoints(xs, ys []float64, fromCRS, toCRS string) error
}

// Config is everything a single run depends on.
type Config struct {
	AOI        AOISource
	Collection string
	Primary    catalog.TimeWindow
	Fallback   catalog.TimeWindow
	MaxItems   int
	Bands      scene.BandRoles
	Resampling align.Resampling
	Selection  catalog.SelectionPolicy
	// HistogramBins of the descriptive statistics; zero skips the histogram.
	HistogramBins int
	Sink          Sink
}

func (c Config) Validate() error {
	var errs []error
	if c.AOI == nil {
		errs = append(errs, errors.New("aoi source is required"))
	}
	if c.Collection == "" {
		errs = append(errs, errors.New("collection is required"))
	}
	if err := c.Primary.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("primary window: %w", err))
	}
	if err := c.Fallback.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("fallback window: %w", err))
	}
	if c.MaxItems <= 0 {
		errs = append(errs, fmt.Errorf("max items must be positive, got %d", c.MaxItems))
	}
	if err := c.Bands.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Selection == nil {
		errs = append(errs, errors.New("selection policy is required"))
	}
	if c.HistogramBins < 0 {
		errs = append(errs, fmt.Errorf("histogram bins must not be negative, got %d", c.HistogramBins))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Result holds every product of a successful run.
type Result struct {
	AOI          aoi.AreaOfInterest
	Collection   string
	Scene        catalog.SceneRecord
	Window       catalog.TimeWindow
	UsedFallback bool
	NIR          *raster.Raster
	SWIR         *raster.Raster
	Aligned      align.Pair
	NDMI         *raster.Raster
	Mean         float64
	Stats        summary.Stats
}

type Pipeline struct {
	Catalog   catalog.Searcher
	Opener    raster.Opener
	Projector Projector
	Metrics   *metrics.Recorder
	Log       io.Writer
}

func (p *Pipeline) log() io.Writer {
	if p.Log == nil {
		return io.Discard
	}
	return p.Log
}

// stage runs fn, records its duration and wraps any failure in a StageError.
func (p *Pipeline) stage(s Stage, subject string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.Metrics.ObserveStage(string(s), time.Since(start), err)
	if err != nil {
		return &StageError{Stage: s, Scene: subject, Err: err}
	}
	return nil
}

// Run executes the pipeline once. Every opened band is closed before Run
// returns, whether it succeeds or not.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res := &Result{Collection: cfg.Collection}

	err := p.stage(StageLoadAOI, "", func() (err error) {
		res.AOI, err = cfg.AOI.Load()
		return err
	})
	if err != nil {
		return nil, err
	}

	var scenes []catalog.SceneRecord
	err = p.stage(StageSearch, fmt.Sprintf("%s %s", cfg.Collection, cfg.Primary), func() (err error) {
		q := catalog.Query{
			Collection: cfg.Collection,
			Intersects: res.AOI.Geometry,
			Window:     cfg.Primary,
			SortBy:     catalog.NewestFirst,
			MaxItems:   cfg.MaxItems,
		}
		scenes, res.Window, res.UsedFallback, err = catalog.SearchWithFallback(ctx, p.Catalog, q, cfg.Fallback, p.log())
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.UsedFallback {
		p.Metrics.Fallback(cfg.Collection)
	}

	err = p.stage(StageSelect, res.Window.String(), func() (err error) {
		res.Scene, err = cfg.Selection.Select(scenes)
		return err
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(p.log(), "Selected scene %s (%s)\n", res.Scene.ID, res.Scene.Datetime.Format(time.DateOnly))

	var bands *scene.Bands
	err = p.stage(StageFetch, res.Scene.ID, func() (err error) {
		bands, err = scene.Fetcher{Opener: p.Opener}.Fetch(ctx, res.Scene, cfg.Bands)
		return err
	})
	if err != nil {
		return nil, err
	}
	defer bands.Close()

	err = p.stage(StageClip, res.Scene.ID, func() (err error) {
		if res.NIR, err = clip.Clip(ctx, bands.NIR, res.AOI, p.Projector); err != nil {
			return err
		}
		if res.SWIR, err = clip.Clip(ctx, bands.SWIR, res.AOI, p.Projector); err != nil {
			return err
		}
		return bands.Close()
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(StageAlign, res.Scene.ID, func() (err error) {
		opts := align.Options{Resampling: cfg.Resampling}
		if res.NIR.CRS != res.SWIR.CRS {
			if p.Projector == nil {
				return fmt.Errorf("%s and %s use different CRS and no projector is set", res.NIR.Name, res.SWIR.Name)
			}
			from, to := res.NIR.CRS, res.SWIR.CRS
			opts.Transform = func(xs, ys []float64) error {
				return p.Projector.TransformPoints(xs, ys, from, to)
			}
		}
		res.Aligned, err = align.Align(res.NIR, res.SWIR, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(StageIndex, res.Scene.ID, func() (err error) {
		res.NDMI, err = indexes.NDMI(res.Aligned)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(StageSummary, res.Scene.ID, func() (err error) {
		if res.Mean, err = summary.Mean(res.NDMI); err != nil {
			return err
		}
		res.Stats, err = summary.Describe(res.NDMI, cfg.HistogramBins)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.Metrics.Summary(res.AOI.Name, res.Stats.Count, res.Mean)
	fmt.Fprintf(p.log(), "Mean NDMI for %s: %.4f over %d pixels\n", res.AOI.Name, res.Mean, res.Stats.Count)

	if cfg.Sink != nil {
		err = p.stage(StageDeliver, res.Scene.ID, func() error {
			return cfg.Sink.Deliver(ctx, res)
		})
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}
