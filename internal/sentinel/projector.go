package sentinel

import (
	"fmt"
	"math"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/geojson"
)

// Projector converts geometries and coordinates between reference systems
// given as "EPSG:<code>" or WKT.
type Projector struct{}

func (Projector) Reproject(g orb.Geometry, from, to string) (orb.Geometry, error) {
	register()

	src, err := spatialRef(from)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source CRS: %w", err)
	}
	defer src.Close()
	dst, err := spatialRef(to)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target CRS: %w", err)
	}
	defer dst.Close()

	b, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("failed to encode geometry: %w", err)
	}
	geom, err := godal.NewGeometryFromWKB(b, src)
	if err != nil {
		return nil, fmt.Errorf("failed to create geometry: %w", err)
	}
	defer geom.Close()

	if err := geom.Reproject(dst); err != nil {
		return nil, fmt.Errorf("failed to reproject geometry: %w", err)
	}
	return toOrb(geom)
}

// TransformPoints converts xs, ys in place. Points that cannot be converted
// are set to NaN.
func (Projector) TransformPoints(xs, ys []float64, from, to string) error {
	register()

	src, err := spatialRef(from)
	if err != nil {
		return fmt.Errorf("failed to parse source CRS: %w", err)
	}
	defer src.Close()
	dst, err := spatialRef(to)
	if err != nil {
		return fmt.Errorf("failed to parse target CRS: %w", err)
	}
	defer dst.Close()

	tr, err := godal.NewTransform(src, dst)
	if err != nil {
		return fmt.Errorf("failed to create transform: %w", err)
	}
	defer tr.Close()

	ok := make([]bool, len(xs))
	if err := tr.TransformEx(xs, ys, nil, ok); err != nil {
		return fmt.Errorf("transform error: %w", err)
	}
	for i := range ok {
		if !ok[i] {
			xs[i], ys[i] = math.NaN(), math.NaN()
		}
	}
	return nil
}

func toOrb(geom *godal.Geometry) (orb.Geometry, error) {
	js, err := geom.GeoJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export geometry to GeoJSON: %w", err)
	}
	g, err := geojson.UnmarshalGeometry([]byte(js))
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal geometry: %w", err)
	}
	return g.Geometry(), nil
}
