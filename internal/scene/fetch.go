// Package scene resolves the spectral bands of a selected catalog scene and
// opens them lazily.
package scene

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/forest-guardian/moisture-index-cli/internal/catalog"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
)

var ErrAssetMissing = errors.New("asset missing")

// BandRoles names the scene assets playing the near-infrared and
// short-wave-infrared roles, e.g. nir08 and swir16 on Earth Search.
type BandRoles struct {
	NIR  string `yaml:"nir"`
	SWIR string `yaml:"swir"`
}

func (r BandRoles) Validate() error {
	if r.NIR == "" || r.SWIR == "" {
		return fmt.Errorf("both band roles are required, got nir=%q swir=%q", r.NIR, r.SWIR)
	}
	if r.NIR == r.SWIR {
		return fmt.Errorf("nir and swir bands must differ, both are %q", r.NIR)
	}
	return nil
}

// Bands holds the opened role bands of one scene. Close releases both and
// may be called any number of times.
type Bands struct {
	Scene catalog.SceneRecord
	NIR   raster.Handle
	SWIR  raster.Handle

	once sync.Once
	err  error
}

func (b *Bands) Close() error {
	b.once.Do(func() {
		var errs []error
		for _, h := range []raster.Handle{b.NIR, b.SWIR} {
			if h != nil {
				if err := h.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close %s: %w", h.Name(), err))
				}
			}
		}
		b.err = errors.Join(errs...)
	})
	return b.err
}

type Fetcher struct {
	Opener raster.Opener
}

// Fetch opens the NIR and SWIR assets of record. No pixels are read.
func (f Fetcher) Fetch(ctx context.Context, record catalog.SceneRecord, roles BandRoles) (*Bands, error) {
	if err := roles.Validate(); err != nil {
		return nil, err
	}
	nirHref, err := assetHref(record, roles.NIR)
	if err != nil {
		return nil, err
	}
	swirHref, err := assetHref(record, roles.SWIR)
	if err != nil {
		return nil, err
	}

	bands := &Bands{Scene: record}
	bands.NIR, err = f.Opener.Open(ctx, roles.NIR, nirHref)
	if err != nil {
		return nil, fmt.Errorf("failed to open band %s of scene %s: %w", roles.NIR, record.ID, err)
	}
	bands.SWIR, err = f.Opener.Open(ctx, roles.SWIR, swirHref)
	if err != nil {
		bands.Close()
		return nil, fmt.Errorf("failed to open band %s of scene %s: %w", roles.SWIR, record.ID, err)
	}
	return bands, nil
}

func assetHref(record catalog.SceneRecord, band string) (string, error) {
	href, ok := record.Assets[band]
	if !ok || href == "" {
		return "", fmt.Errorf("%w: scene %s has no %q band", ErrAssetMissing, record.ID, band)
	}
	return href, nil
}
