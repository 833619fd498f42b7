// Package sentinel binds the pipeline to GDAL: remote band reads, vector AOI
// files and coordinate reference system conversions.
package sentinel

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
	"github.com/schollz/progressbar/v3"
)

// BandOpener opens single band rasters (typically cloud optimised GeoTIFFs)
// through GDAL. Only metadata is fetched on Open.
type BandOpener struct {
	HTTPTimeout time.Duration
	// Config holds extra GDAL configuration options, e.g. AWS_NO_SIGN_REQUEST=YES.
	Config []string
	// Progress shows a progress bar while reading windows.
	Progress bool
}

func NewBandOpener(timeout time.Duration) *BandOpener {
	return &BandOpener{HTTPTimeout: timeout}
}

func (o *BandOpener) options() []godal.OpenOption {
	config := []string{"GDAL_DISABLE_READDIR_ON_OPEN=EMPTY_DIR"}
	if o.HTTPTimeout > 0 {
		config = append(config, fmt.Sprintf("GDAL_HTTP_TIMEOUT=%d", int(math.Ceil(o.HTTPTimeout.Seconds()))))
	}
	config = append(config, o.Config...)
	return []godal.OpenOption{errLogger(), godal.ConfigOption(config...)}
}

func (o *BandOpener) Open(ctx context.Context, name, href string) (raster.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	register()

	ds, err := godal.Open(VSIPath(href), o.options()...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open band %s at %s: %w", raster.ErrTransient, name, href, err)
	}
	bands := ds.Bands()
	if len(bands) == 0 {
		ds.Close()
		return nil, fmt.Errorf("band %s at %s has no raster bands", name, href)
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("failed to get geotransform of %s: %w", name, err)
	}

	st := ds.Structure()
	structure := raster.Structure{
		SizeX:     st.SizeX,
		SizeY:     st.SizeY,
		Transform: raster.GeoTransform(gt),
		CRS:       ds.Projection(),
	}
	structure.NoData, structure.HasNoData = bands[0].NoData()

	return &bandHandle{
		name:      name,
		ds:        ds,
		band:      bands[0],
		structure: structure,
		blockRows: max(st.BlockSizeY, 1),
		progress:  o.Progress,
	}, nil
}

type bandHandle struct {
	name      string
	ds        *godal.Dataset
	band      godal.Band
	structure raster.Structure
	blockRows int
	progress  bool

	mu     sync.Mutex
	closed bool
}

func (h *bandHandle) Name() string {
	return h.name
}

func (h *bandHandle) Structure() raster.Structure {
	return h.structure
}

// ReadWindow reads w row strip by row strip, one block height at a time, so
// cancellation is honoured between remote range requests.
func (h *bandHandle) ReadWindow(ctx context.Context, w raster.Window) (*raster.Raster, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("band %s is closed", h.name)
	}
	if w.Empty() || w.Intersect(h.structure.SizeX, h.structure.SizeY) != w {
		return nil, fmt.Errorf("window %s is outside band %s (%dx%d)", w, h.name, h.structure.SizeX, h.structure.SizeY)
	}

	var bar *progressbar.ProgressBar
	if h.progress {
		bar = progressbar.Default(int64(w.Height), fmt.Sprintf("reading %s", h.name))
		defer bar.Finish()
	}

	data := make([]float64, w.Width*w.Height)
	for row := 0; row < w.Height; row += h.blockRows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows := min(h.blockRows, w.Height-row)
		if err := h.band.Read(w.XOff, w.YOff+row, data[row*w.Width:(row+rows)*w.Width], w.Width, rows); err != nil {
			return nil, fmt.Errorf("%w: failed to read %s window %s: %w", raster.ErrTransient, h.name, w, err)
		}
		if bar != nil {
			bar.Add(rows)
		}
	}

	r := raster.New(h.name, w.Width, w.Height, h.structure.Transform.Shift(w.XOff, w.YOff), h.structure.CRS)
	for i, v := range data {
		if math.IsNaN(v) || (h.structure.HasNoData && v == h.structure.NoData) {
			r.Data[i] = math.NaN()
			continue
		}
		r.Data[i] = v
		r.Valid[i] = true
	}
	return r, nil
}

// Close releases the dataset. Further calls are no-ops.
func (h *bandHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.ds.Close(); err != nil {
		return fmt.Errorf("failed to close band %s: %w", h.name, err)
	}
	return nil
}
