package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/forest-guardian/moisture-index-cli/internal/delivery"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
)

const SummaryFile = "summary.csv"

// RasterWriter persists a raster as a georeferenced file.
type RasterWriter interface {
	WriteRaster(r *raster.Raster, path string) error
}

// FileSink writes the products of a run under Dir/<area>/<scene date>/ and
// appends one row per run to Dir/summary.csv. It is safe for concurrent use.
type FileSink struct {
	Dir string
	// GeoTIFF, when set, also writes the index raster as ndmi.tif.
	GeoTIFF RasterWriter
	// Uploader, when set, copies every written file to S3.
	Uploader *S3Uploader
	Log      io.Writer

	mu sync.Mutex
}

type product struct {
	file  string
	write func(path string) error
}

func (s *FileSink) log() io.Writer {
	if s.Log == nil {
		return io.Discard
	}
	return s.Log
}

func (s *FileSink) RunDir(r *delivery.Result) string {
	return filepath.Join(s.Dir, safeName(r.AOI.Name), r.Scene.Datetime.Format("2006_01_02"))
}

func (s *FileSink) Deliver(ctx context.Context, r *delivery.Result) error {
	dir := s.RunDir(r)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}

	products := []product{
		{"bands.png", func(p string) error { return CreateBandsImage(p, r.SWIR, r.NIR) }},
		{"ndmi.png", func(p string) error { return CreateIndexImage(r.NDMI, "NDMI", p) }},
		{"mean.png", func(p string) error { return CreateMeanImage(r.Mean, p) }},
		{"result.geojson", func(p string) error { return CreateResultGeoJSON(r, p) }},
	}
	if len(r.Stats.Histogram) > 0 {
		products = append(products, product{"histogram.png", func(p string) error {
			return CreateHistogramImage(r.Stats, "Histogram of NDMI Values", p)
		}})
	}
	if s.GeoTIFF != nil {
		products = append(products, product{"ndmi.tif", func(p string) error { return s.GeoTIFF.WriteRaster(r.NDMI, p) }})
	}

	var written []string
	for _, prod := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(dir, prod.file)
		if err := prod.write(p); err != nil {
			return fmt.Errorf("failed to write %s: %w", prod.file, err)
		}
		written = append(written, p)
		fmt.Fprintf(s.log(), "Saved %s\n", p)
	}

	if err := s.appendSummary(r); err != nil {
		return err
	}

	if s.Uploader != nil {
		for _, p := range written {
			rel, err := filepath.Rel(s.Dir, p)
			if err != nil {
				return err
			}
			key, err := s.Uploader.Upload(ctx, p, rel)
			if err != nil {
				return err
			}
			fmt.Fprintf(s.log(), "Uploaded s3://%s/%s\n", s.Uploader.Bucket, key)
		}
	}
	return nil
}

func (s *FileSink) appendSummary(r *delivery.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := &SummaryRow{
		Area:         r.AOI.Name,
		Scene:        r.Scene.ID,
		Datetime:     r.Scene.Datetime.Format(time.RFC3339),
		Window:       r.Window.String(),
		UsedFallback: r.UsedFallback,
		ValidPixels:  r.Stats.Count,
		Mean:         r.Mean,
		Min:          r.Stats.Min,
		Max:          r.Stats.Max,
		StdDev:       r.Stats.StdDev,
	}
	return AppendSummary(filepath.Join(s.Dir, SummaryFile), []*SummaryRow{row})
}

func safeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "aoi"
	}
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			return '_'
		}
		return r
	}, name)
}
