package catalog

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results map[string][]SceneRecord
	err     error
	calls   []Query
}

func (f *fakeSearcher) Search(ctx context.Context, q Query) ([]SceneRecord, error) {
	f.calls = append(f.calls, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[q.Window.String()], nil
}

var (
	primary  = TimeWindow{Start: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)}
	fallback = TimeWindow{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC)}
	plot     = orb.Polygon{{{10, 45}, {10.1, 45}, {10.1, 45.1}, {10, 45.1}, {10, 45}}}
)

func query() Query {
	return Query{Collection: "sentinel-2-l2a", Intersects: plot, Window: primary, MaxItems: 10}
}

func TestSearchWithFallbackPrimaryHit(t *testing.T) {
	f := &fakeSearcher{results: map[string][]SceneRecord{
		primary.String(): {{ID: "june-28"}, {ID: "june-3"}},
	}}
	var log bytes.Buffer

	scenes, used, usedFallback, err := SearchWithFallback(context.Background(), f, query(), fallback, &log)
	require.NoError(t, err)

	assert.Len(t, f.calls, 1, "fallback must not be queried when the primary window has scenes")
	assert.Equal(t, "june-28", scenes[0].ID)
	assert.Equal(t, primary, used)
	assert.False(t, usedFallback)
	assert.Empty(t, log.String())
	assert.Equal(t, NewestFirst, f.calls[0].SortBy)
}

func TestSearchWithFallbackUsesFallbackWindow(t *testing.T) {
	f := &fakeSearcher{results: map[string][]SceneRecord{
		fallback.String(): {{ID: "may-30"}},
	}}
	var log bytes.Buffer

	scenes, used, usedFallback, err := SearchWithFallback(context.Background(), f, query(), fallback, &log)
	require.NoError(t, err)

	require.Len(t, f.calls, 2)
	assert.Equal(t, fallback, f.calls[1].Window)
	assert.Equal(t, f.calls[0].Collection, f.calls[1].Collection)
	assert.Equal(t, f.calls[0].MaxItems, f.calls[1].MaxItems)
	assert.Equal(t, f.calls[0].SortBy, f.calls[1].SortBy)
	assert.Equal(t, f.calls[0].Intersects, f.calls[1].Intersects)
	assert.Equal(t, "may-30", scenes[0].ID)
	assert.Equal(t, fallback, used)
	assert.True(t, usedFallback)
	assert.Contains(t, log.String(), "fallback")
}

func TestSearchWithFallbackNoImagery(t *testing.T) {
	f := &fakeSearcher{}

	scenes, _, _, err := SearchWithFallback(context.Background(), f, query(), fallback, nil)
	assert.ErrorIs(t, err, ErrNoImageryFound)
	assert.Nil(t, scenes)
	assert.Len(t, f.calls, 2)
}

func TestSearchWithFallbackPropagatesSearchErrors(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeSearcher{err: boom}

	_, _, _, err := SearchWithFallback(context.Background(), f, query(), fallback, nil)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNoImageryFound)
	assert.Len(t, f.calls, 1)
}

func TestSearchWithFallbackValidatesInput(t *testing.T) {
	f := &fakeSearcher{}

	q := query()
	q.Window = TimeWindow{Start: primary.End, End: primary.Start}
	_, _, _, err := SearchWithFallback(context.Background(), f, q, fallback, nil)
	assert.Error(t, err)

	q = query()
	q.MaxItems = 0
	_, _, _, err = SearchWithFallback(context.Background(), f, q, fallback, nil)
	assert.Error(t, err)
	assert.Empty(t, f.calls)
}
