package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forest-guardian/moisture-index-cli/internal/align"
	"github.com/forest-guardian/moisture-index-cli/internal/cache"
	"github.com/forest-guardian/moisture-index-cli/internal/catalog"
	"github.com/forest-guardian/moisture-index-cli/internal/delivery"
	"github.com/forest-guardian/moisture-index-cli/internal/metrics"
	"github.com/forest-guardian/moisture-index-cli/internal/notification"
	"github.com/forest-guardian/moisture-index-cli/internal/properties"
	"github.com/forest-guardian/moisture-index-cli/internal/sentinel"
	"github.com/forest-guardian/moisture-index-cli/output"
)

// App holds the long-lived collaborators shared by every run started from
// the command line or the menu.
type App struct {
	Pipeline *delivery.Pipeline
	Notifier *notification.Discord
	Metrics  *metrics.Recorder
	Log      io.Writer
}

// NewApp builds the pipeline from the environment. Catalog answers are
// cached on disk under ROOT_PATH/data/catalog_cache.
func NewApp(ctx context.Context) (*App, error) {
	httpClient, err := catalog.NewHTTPClient(ctx,
		properties.CopernicusClientID(),
		properties.CopernicusClientSecret(),
		properties.CopernicusTokenURL(),
		properties.HTTPTimeout(),
	)
	if err != nil {
		return nil, err
	}

	recorder := metrics.NewRecorder()
	stac := catalog.NewStacClient(properties.StacAPIURL(), httpClient)
	sceneCache := cache.NewFileCache[[]catalog.SceneRecord](properties.RootPath(), "catalog_cache", properties.CacheMaxAge())

	opener := sentinel.NewBandOpener(properties.HTTPTimeout())
	opener.Progress = true

	return &App{
		Pipeline: &delivery.Pipeline{
			Catalog:   catalog.NewCachedSearcher(stac, sceneCache, os.Stdout),
			Opener:    opener,
			Projector: sentinel.Projector{},
			Metrics:   recorder,
			Log:       os.Stdout,
		},
		Notifier: notification.NewDiscord(properties.DiscordErrorNotificationUrl(), properties.DiscordSuccessNotificationUrl()),
		Metrics:  recorder,
		Log:      os.Stdout,
	}, nil
}

// Config turns a run file into a pipeline configuration delivering to a
// FileSink under rf.OutputDir.
func (a *App) Config(rf *properties.RunFile) (delivery.Config, error) {
	primary, err := catalog.ParseTimeWindow(rf.Primary)
	if err != nil {
		return delivery.Config{}, fmt.Errorf("primary window: %w", err)
	}
	fallback, err := catalog.ParseTimeWindow(rf.Fallback)
	if err != nil {
		return delivery.Config{}, fmt.Errorf("fallback window: %w", err)
	}
	resampling, err := align.ParseResampling(rf.Resampling)
	if err != nil {
		return delivery.Config{}, err
	}
	policy, err := catalog.PolicyByName(rf.Selection)
	if err != nil {
		return delivery.Config{}, err
	}
	sink, err := a.sink(rf)
	if err != nil {
		return delivery.Config{}, err
	}

	return delivery.Config{
		AOI:           sentinel.GeoJSONSource{Path: rf.AOI, Plot: rf.Plot},
		Collection:    rf.Collection,
		Primary:       primary,
		Fallback:      fallback,
		MaxItems:      rf.MaxItems,
		Bands:         rf.Bands,
		Resampling:    resampling,
		Selection:     policy,
		HistogramBins: rf.HistogramBins,
		Sink:          sink,
	}, nil
}

func (a *App) sink(rf *properties.RunFile) (*output.FileSink, error) {
	sink := &output.FileSink{
		Dir:     rf.OutputDir,
		GeoTIFF: sentinel.NewGeoTIFFWriter(),
		Log:     a.Log,
	}
	if bucket := properties.S3Bucket(); bucket != "" {
		uploader, err := output.NewS3Uploader(properties.AWSRegion(), bucket, rf.S3Prefix)
		if err != nil {
			return nil, err
		}
		sink.Uploader = uploader
	}
	return sink, nil
}

// RunPlot executes one run and reports the outcome to Discord.
func (a *App) RunPlot(ctx context.Context, rf *properties.RunFile) (*delivery.Result, error) {
	cfg, err := a.Config(rf)
	if err != nil {
		return nil, err
	}
	startTime := time.Now()
	result, err := a.Pipeline.Run(ctx, cfg)
	a.flushMetrics()
	if err != nil {
		a.notifyError(ctx, fmt.Sprintf("Moisture Index CLI\n\nError evaluating %s: %s", rf.AOI, err.Error()))
		return nil, err
	}
	a.notifySuccess(ctx, fmt.Sprintf("Moisture Index CLI\n\nSuccessful analysis!\n - Area: %s\n - Scene: %s\n - Mean NDMI: %.4f\n - Valid pixels: %d\n - Processing time: %s",
		result.AOI.Name, result.Scene.ID, result.Mean, result.Stats.Count, time.Since(startTime).String()))
	return result, nil
}

// RunForest runs every plot of the forest file rf.AOI, or only plots when
// it is not empty.
func (a *App) RunForest(ctx context.Context, rf *properties.RunFile, plots []string) ([]delivery.PlotResult, error) {
	cfg, err := a.Config(rf)
	if err != nil {
		return nil, err
	}
	if len(plots) == 0 {
		plots, err = sentinel.ListPlots(rf.AOI)
		if err != nil {
			return nil, err
		}
	}
	if len(plots) == 0 {
		return nil, fmt.Errorf("no plot IDs found in %s", rf.AOI)
	}

	fmt.Fprintf(a.Log, "%sForest %s has %d plots that will be analyzed%s\n", ColorYellow, rf.AOI, len(plots), ColorReset)
	startTime := time.Now()
	results := a.Pipeline.EvaluateForest(ctx, cfg, plots, func(plot string) delivery.AOISource {
		return sentinel.GeoJSONSource{Path: rf.AOI, Plot: plot}
	}, properties.Workers())
	a.flushMetrics()

	errorMessages := strings.Builder{}
	for _, r := range results {
		if r.Err != nil {
			errorMessages.WriteString(fmt.Sprintf("- plot %s: %s\n", r.Plot, r.Err.Error()))
		}
	}
	if errorMessages.Len() > 0 {
		a.notifyError(ctx, fmt.Sprintf("Moisture Index CLI\n\nErrors occurred during analysis:\n%s", errorMessages.String()))
	} else {
		a.notifySuccess(ctx, fmt.Sprintf("Moisture Index CLI\n\nSuccessful forest analysis!\n - Forest: %s\n - Window: %s\n - Plots: %d\n - Processing time: %s",
			rf.AOI, rf.Primary, len(plots), time.Since(startTime).String()))
	}
	return results, nil
}

// Search lists the scenes a run over rf would choose from, without fetching
// any band.
func (a *App) Search(ctx context.Context, rf *properties.RunFile) ([]catalog.SceneRecord, catalog.TimeWindow, error) {
	cfg, err := a.Config(rf)
	if err != nil {
		return nil, catalog.TimeWindow{}, err
	}
	area, err := cfg.AOI.Load()
	if err != nil {
		return nil, catalog.TimeWindow{}, err
	}
	q := catalog.Query{
		Collection: cfg.Collection,
		Intersects: area.Geometry,
		Window:     cfg.Primary,
		SortBy:     catalog.NewestFirst,
		MaxItems:   cfg.MaxItems,
	}
	scenes, window, _, err := catalog.SearchWithFallback(ctx, a.Pipeline.Catalog, q, cfg.Fallback, a.Log)
	return scenes, window, err
}

func (a *App) flushMetrics() {
	path := properties.MetricsTextfile()
	if path == "" {
		return
	}
	if err := a.Metrics.WriteTextfile(path); err != nil {
		PrintError(fmt.Sprintf("Failed to write metrics: %s", err.Error()))
	}
}

func (a *App) notifyError(ctx context.Context, msg string) {
	if err := a.Notifier.SendError(ctx, msg); err != nil {
		PrintError(fmt.Sprintf("Failed to send Discord notification: %s", err.Error()))
	}
}

func (a *App) notifySuccess(ctx context.Context, msg string) {
	if err := a.Notifier.SendSuccess(ctx, msg); err != nil {
		PrintError(fmt.Sprintf("Failed to send Discord notification: %s", err.Error()))
	}
}

// ForestPath is the location of a forest's plots file.
func ForestPath(forest string) string {
	return filepath.Join(properties.RootPath(), "data", "geojsons", forest+".geojson")
}
