// Package aoi holds the area of interest an NDMI run is restricted to.
package aoi

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// CanonicalCRS is the geographic reference every AOI is normalised to before
// it is used for catalog search or clipping.
const CanonicalCRS = "EPSG:4326"

var ErrUnsupportedGeometry = errors.New("aoi must be a non-empty polygon or multipolygon")

type AreaOfInterest struct {
	Name     string
	Geometry orb.Geometry
	CRS      string
}

func New(name string, geometry orb.Geometry, crs string) (AreaOfInterest, error) {
	switch g := geometry.(type) {
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) < 4 {
			return AreaOfInterest{}, fmt.Errorf("%w: %s has %d rings", ErrUnsupportedGeometry, name, len(g))
		}
	case orb.MultiPolygon:
		if len(g) == 0 {
			return AreaOfInterest{}, fmt.Errorf("%w: %s is an empty multipolygon", ErrUnsupportedGeometry, name)
		}
	default:
		return AreaOfInterest{}, fmt.Errorf("%w: %s is a %T", ErrUnsupportedGeometry, name, geometry)
	}
	if crs == "" {
		crs = CanonicalCRS
	}
	return AreaOfInterest{Name: name, Geometry: geometry, CRS: crs}, nil
}

func (a AreaOfInterest) IsCanonical() bool {
	return a.CRS == CanonicalCRS
}

func (a AreaOfInterest) Bound() orb.Bound {
	return a.Geometry.Bound()
}

// Centroid returns the AOI centroid as latitude, longitude.
func (a AreaOfInterest) Centroid() (float64, float64, error) {
	centroid, area := planar.CentroidArea(a.Geometry)
	if area <= 0 {
		return 0, 0, errors.New("error getting centroid")
	}
	return centroid.Y(), centroid.X(), nil
}

// GeoJSON encodes the AOI geometry as a GeoJSON geometry object.
func (a AreaOfInterest) GeoJSON() ([]byte, error) {
	return geojson.NewGeometry(a.Geometry).MarshalJSON()
}

// Contains reports whether p lies inside g, honouring polygon holes.
func Contains(g orb.Geometry, p orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, p)
	case orb.Bound:
		return geom.Contains(p)
	}
	return false
}
