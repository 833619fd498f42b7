package sentinel

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
)

// GeoTIFFWriter writes rasters as compressed float32 GeoTIFFs with invalid
// pixels set to NoData.
type GeoTIFFWriter struct {
	NoData float64
}

func NewGeoTIFFWriter() GeoTIFFWriter {
	return GeoTIFFWriter{NoData: -9999}
}

func (w GeoTIFFWriter) WriteRaster(r *raster.Raster, path string) error {
	register()

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, r.Width, r.Height,
		godal.CreationOption("COMPRESS=DEFLATE", "TILED=YES"))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := w.write(ds, r); err != nil {
		ds.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

func (w GeoTIFFWriter) write(ds *godal.Dataset, r *raster.Raster) error {
	if err := ds.SetGeoTransform([6]float64(r.Transform)); err != nil {
		return err
	}
	if r.CRS != "" {
		sr, err := spatialRef(r.CRS)
		if err != nil {
			return err
		}
		defer sr.Close()
		if err := ds.SetSpatialRef(sr); err != nil {
			return err
		}
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(w.NoData); err != nil {
		return err
	}
	data := make([]float32, len(r.Data))
	for i, v := range r.Data {
		if r.Valid[i] {
			data[i] = float32(v)
		} else {
			data[i] = float32(w.NoData)
		}
	}
	return band.Write(0, 0, data, r.Width, r.Height)
}
