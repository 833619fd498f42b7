package output

import (
	"fmt"
	"os"
	"time"

	"github.com/forest-guardian/moisture-index-cli/internal/delivery"
	"github.com/paulmach/orb/geojson"
)

// CreateResultGeoJSON writes the AOI as a feature carrying the run summary
// in its properties.
func CreateResultGeoJSON(r *delivery.Result, outputPath string) error {
	feature := geojson.NewFeature(r.AOI.Geometry)
	feature.Properties["name"] = r.AOI.Name
	feature.Properties["collection"] = r.Collection
	feature.Properties["scene"] = r.Scene.ID
	feature.Properties["datetime"] = r.Scene.Datetime.Format(time.RFC3339)
	feature.Properties["window"] = r.Window.String()
	feature.Properties["used_fallback"] = r.UsedFallback
	feature.Properties["valid_pixels"] = r.Stats.Count
	feature.Properties["mean_ndmi"] = r.Mean
	feature.Properties["min_ndmi"] = r.Stats.Min
	feature.Properties["max_ndmi"] = r.Stats.Max

	fc := geojson.NewFeatureCollection()
	fc.Append(feature)
	b, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode GeoJSON: %w", err)
	}
	if err := os.WriteFile(outputPath, b, 0644); err != nil {
		return fmt.Errorf("failed to write GeoJSON file: %w", err)
	}
	return nil
}
