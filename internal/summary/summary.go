// Package summary reduces an index raster to scalar statistics.
package summary

import (
	"errors"
	"fmt"
	"math"

	"github.com/forest-guardian/moisture-index-cli/internal/raster"
)

var ErrNoValidPixels = errors.New("raster has no valid pixels")

// Mean is the arithmetic mean over valid pixels.
func Mean(r *raster.Raster) (float64, error) {
	sum, count := 0.0, 0
	for i, v := range r.Data {
		if r.Valid[i] {
			sum += v
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("%s: %w", r.Name, ErrNoValidPixels)
	}
	return sum / float64(count), nil
}

type Bin struct {
	Lower float64
	Upper float64
	Count int
}

type Stats struct {
	Count     int
	Mean      float64
	Min       float64
	Max       float64
	StdDev    float64
	Histogram []Bin
}

// Describe computes descriptive statistics over valid pixels. The histogram
// spans [Min, Max] in equal-width bins; the last bin is closed.
func Describe(r *raster.Raster, bins int) (Stats, error) {
	mean, err := Mean(r)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Mean: mean, Min: math.Inf(1), Max: math.Inf(-1)}
	sq := 0.0
	for i, v := range r.Data {
		if !r.Valid[i] {
			continue
		}
		stats.Count++
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
		sq += (v - mean) * (v - mean)
	}
	stats.StdDev = math.Sqrt(sq / float64(stats.Count))

	if bins <= 0 {
		return stats, nil
	}
	width := (stats.Max - stats.Min) / float64(bins)
	stats.Histogram = make([]Bin, bins)
	for b := range stats.Histogram {
		stats.Histogram[b].Lower = stats.Min + float64(b)*width
		stats.Histogram[b].Upper = stats.Min + float64(b+1)*width
	}
	stats.Histogram[bins-1].Upper = stats.Max
	for i, v := range r.Data {
		if !r.Valid[i] {
			continue
		}
		b := bins - 1
		if width > 0 {
			b = min(int((v-stats.Min)/width), bins-1)
		}
		stats.Histogram[b].Count++
	}
	return stats, nil
}
