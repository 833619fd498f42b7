package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/forest-guardian/moisture-index-cli/internal/cache"
	"github.com/paulmach/orb/encoding/wkt"
	"golang.org/x/sync/singleflight"
)

// CachedSearcher keeps non-empty search results on disk and collapses
// concurrent identical searches into one catalog call. Empty results are
// never cached so a later run can still find newly published scenes. A
// cancelled caller stops waiting without failing the others.
type CachedSearcher struct {
	Searcher Searcher
	Cache    cache.CacheService[[]SceneRecord]
	Log      io.Writer

	group singleflight.Group
}

func NewCachedSearcher(s Searcher, c cache.CacheService[[]SceneRecord], log io.Writer) *CachedSearcher {
	return &CachedSearcher{Searcher: s, Cache: c, Log: log}
}

func (c *CachedSearcher) Search(ctx context.Context, q Query) ([]SceneRecord, error) {
	key := c.key(q)
	if scenes, ok := c.Cache.Get(key); ok {
		return append([]SceneRecord(nil), scenes...), nil
	}

	// The shared search outlives any single caller's cancellation; the
	// catalog HTTP timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		scenes, err := c.Searcher.Search(shared, q)
		if err != nil {
			return nil, err
		}
		if len(scenes) > 0 {
			if err := c.Cache.Set(key, scenes); err != nil && c.Log != nil {
				fmt.Fprintf(c.Log, "failed to cache search results: %v\n", err)
			}
		}
		return scenes, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return append([]SceneRecord(nil), res.Val.([]SceneRecord)...), nil
	}
}

func (c *CachedSearcher) key(q Query) string {
	geometry := ""
	if q.Intersects != nil {
		geometry = wkt.MarshalString(q.Intersects)
	}
	return c.Cache.GenerateKey(q.Collection, geometry, q.Window.String(), q.SortBy, q.MaxItems)
}
