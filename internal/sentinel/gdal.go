package sentinel

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
)

var registerOnce sync.Once

func register() {
	registerOnce.Do(godal.RegisterAll)
}

// errLogger drops GDAL warnings and turns everything else into an error.
func errLogger() godal.OpenOption {
	return godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return fmt.Errorf("gdal error %d: %s", code, msg)
	})
}

// spatialRef accepts "EPSG:<code>" or a WKT definition.
func spatialRef(crs string) (*godal.SpatialRef, error) {
	if code, ok := strings.CutPrefix(strings.ToUpper(strings.TrimSpace(crs)), "EPSG:"); ok {
		epsg, err := strconv.Atoi(code)
		if err != nil {
			return nil, fmt.Errorf("invalid EPSG code %q: %w", crs, err)
		}
		return godal.NewSpatialRefFromEPSG(epsg)
	}
	return godal.NewSpatialRefFromWKT(crs)
}

// VSIPath maps an asset href onto the GDAL virtual file system so remote
// COGs are read with range requests instead of being downloaded.
func VSIPath(href string) string {
	switch {
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return "/vsicurl/" + href
	case strings.HasPrefix(href, "s3://"):
		return "/vsis3/" + strings.TrimPrefix(href, "s3://")
	case strings.HasPrefix(href, "gs://"):
		return "/vsigs/" + strings.TrimPrefix(href, "gs://")
	}
	return href
}
