// Package catalog searches an imagery catalog for scenes covering an area of
// interest, retrying once over a wider date range when the first window is empty.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/paulmach/orb"
)

var (
	// ErrNoImageryFound is returned when neither the primary nor the
	// fallback window produced a scene.
	ErrNoImageryFound = errors.New("no imagery found")
	// ErrCatalogUnavailable wraps network failures talking to the catalog.
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

type SortField struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// NewestFirst orders results by capture time descending.
var NewestFirst = []SortField{{Field: "properties.datetime", Direction: "desc"}}

type Query struct {
	Collection string
	Intersects orb.Geometry
	Window     TimeWindow
	SortBy     []SortField
	MaxItems   int
}

type Searcher interface {
	Search(ctx context.Context, q Query) ([]SceneRecord, error)
}

// SearchWithFallback runs q over its own window, newest first. When that
// yields nothing the identical query is issued over fallback. It returns the
// scenes, the window that produced them and whether the fallback query ran.
func SearchWithFallback(ctx context.Context, s Searcher, q Query, fallback TimeWindow, log io.Writer) ([]SceneRecord, TimeWindow, bool, error) {
	if err := q.Window.Validate(); err != nil {
		return nil, TimeWindow{}, false, fmt.Errorf("primary window: %w", err)
	}
	if err := fallback.Validate(); err != nil {
		return nil, TimeWindow{}, false, fmt.Errorf("fallback window: %w", err)
	}
	if q.MaxItems <= 0 {
		return nil, TimeWindow{}, false, fmt.Errorf("max items must be positive, got %d", q.MaxItems)
	}
	if len(q.SortBy) == 0 {
		q.SortBy = NewestFirst
	}
	primary := q.Window

	scenes, err := s.Search(ctx, q)
	if err != nil {
		return nil, TimeWindow{}, false, fmt.Errorf("search %s over %s: %w", q.Collection, primary, err)
	}
	if len(scenes) > 0 {
		return scenes, primary, false, nil
	}

	if log != nil {
		fmt.Fprintf(log, "No items found for %s between %s. Using fallback date range %s.\n", q.Collection, primary, fallback)
	}
	q.Window = fallback
	scenes, err = s.Search(ctx, q)
	if err != nil {
		return nil, TimeWindow{}, false, fmt.Errorf("search %s over fallback %s: %w", q.Collection, fallback, err)
	}
	if len(scenes) == 0 {
		return nil, TimeWindow{}, false, fmt.Errorf("%w in %s for %s nor fallback %s", ErrNoImageryFound, q.Collection, primary, fallback)
	}
	return scenes, fallback, true, nil
}
