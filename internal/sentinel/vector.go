package sentinel

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"
	"github.com/forest-guardian/moisture-index-cli/internal/aoi"
)

const plotField = "plot_id"

// GeoJSONSource loads an area of interest from any OGR readable vector file.
// With Plot set, the feature whose plot_id matches is used, otherwise the
// first feature of the first layer.
type GeoJSONSource struct {
	Path string
	Plot string
}

func (s GeoJSONSource) Load() (aoi.AreaOfInterest, error) {
	register()

	ds, err := godal.Open(s.Path, errLogger())
	if err != nil {
		return aoi.AreaOfInterest{}, fmt.Errorf("failed to open %s: %w", s.Path, err)
	}
	defer ds.Close()

	layers := ds.Layers()
	if len(layers) == 0 {
		return aoi.AreaOfInterest{}, fmt.Errorf("%s has no vector layers", s.Path)
	}
	layer := layers[0]
	dst, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return aoi.AreaOfInterest{}, err
	}
	defer dst.Close()

	for {
		feat := layer.NextFeature()
		if feat == nil {
			break
		}
		if s.Plot != "" {
			val, ok := feat.Fields()[plotField]
			if !ok || val.String() != s.Plot {
				feat.Close()
				continue
			}
		}
		area, err := s.toArea(feat.Geometry(), layer.SpatialRef(), dst)
		feat.Close()
		return area, err
	}

	if s.Plot != "" {
		return aoi.AreaOfInterest{}, fmt.Errorf("geometry not found for plot %s in %s", s.Plot, s.Path)
	}
	return aoi.AreaOfInterest{}, fmt.Errorf("%s has no features", s.Path)
}

func (s GeoJSONSource) toArea(geom *godal.Geometry, src, dst *godal.SpatialRef) (aoi.AreaOfInterest, error) {
	b, err := geom.WKB()
	if err != nil {
		return aoi.AreaOfInterest{}, fmt.Errorf("failed to export geometry: %w", err)
	}
	g, err := godal.NewGeometryFromWKB(b, src)
	if err != nil {
		return aoi.AreaOfInterest{}, err
	}
	defer g.Close()
	if src != nil {
		if err := g.Reproject(dst); err != nil {
			return aoi.AreaOfInterest{}, fmt.Errorf("failed to reproject geometry to %s: %w", aoi.CanonicalCRS, err)
		}
	}
	og, err := toOrb(g)
	if err != nil {
		return aoi.AreaOfInterest{}, err
	}
	return aoi.New(s.name(), og, aoi.CanonicalCRS)
}

// name is "<file>_<plot>", or the file name alone without a plot.
func (s GeoJSONSource) name() string {
	base := strings.TrimSuffix(filepath.Base(s.Path), filepath.Ext(s.Path))
	if s.Plot != "" {
		return base + "_" + s.Plot
	}
	return base
}

// ListPlots returns the plot_id of every feature in the first layer of path.
func ListPlots(path string) ([]string, error) {
	register()

	ds, err := godal.Open(path, errLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer ds.Close()

	layers := ds.Layers()
	if len(layers) == 0 {
		return nil, fmt.Errorf("%s has no vector layers", path)
	}
	var plots []string
	for {
		feat := layers[0].NextFeature()
		if feat == nil {
			break
		}
		if val, ok := feat.Fields()[plotField]; ok {
			plots = append(plots, val.String())
		}
		feat.Close()
	}
	return plots, nil
}
