package raster

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrTransient marks network or I/O failures while opening or reading a band,
// as opposed to logical failures of the pipeline.
var ErrTransient = errors.New("transient raster read failure")

// Window is a pixel region of a band, in band pixel coordinates.
type Window struct {
	XOff, YOff    int
	Width, Height int
}

func (w Window) Empty() bool {
	return w.Width <= 0 || w.Height <= 0
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", w.Width, w.Height, w.XOff, w.YOff)
}

// Intersect clips w to a sizeX x sizeY grid.
func (w Window) Intersect(sizeX, sizeY int) Window {
	x0, y0 := max(w.XOff, 0), max(w.YOff, 0)
	x1, y1 := min(w.XOff+w.Width, sizeX), min(w.YOff+w.Height, sizeY)
	if x1 <= x0 || y1 <= y0 {
		return Window{XOff: x0, YOff: y0}
	}
	return Window{XOff: x0, YOff: y0, Width: x1 - x0, Height: y1 - y0}
}

// Structure describes an opened band before any pixel is read.
type Structure struct {
	SizeX, SizeY int
	Transform    GeoTransform
	CRS          string
	NoData       float64
	HasNoData    bool
}

// Raster is a materialised single band grid with a validity mask. Data and
// Valid are row-major and both hold Width*Height entries.
type Raster struct {
	Name      string
	Width     int
	Height    int
	Data      []float64
	Valid     []bool
	Transform GeoTransform
	CRS       string
}

// New allocates a raster whose pixels are all invalid.
func New(name string, width, height int, gt GeoTransform, crs string) *Raster {
	return &Raster{
		Name:      name,
		Width:     width,
		Height:    height,
		Data:      make([]float64, width*height),
		Valid:     make([]bool, width*height),
		Transform: gt,
		CRS:       crs,
	}
}

// Fill builds a raster where every pixel holds value. Mostly useful for synthetic scenes.
func Fill(name string, width, height int, gt GeoTransform, crs string, value float64) *Raster {
	r := New(name, width, height, gt, crs)
	for i := range r.Data {
		r.Data[i] = value
		r.Valid[i] = true
	}
	return r
}

func (r *Raster) index(col, row int) int {
	return row*r.Width + col
}

func (r *Raster) Contains(col, row int) bool {
	return col >= 0 && row >= 0 && col < r.Width && row < r.Height
}

// At returns the value at (col, row) and whether it is a valid pixel.
func (r *Raster) At(col, row int) (float64, bool) {
	if !r.Contains(col, row) {
		return 0, false
	}
	i := r.index(col, row)
	return r.Data[i], r.Valid[i]
}

func (r *Raster) Set(col, row int, value float64) {
	i := r.index(col, row)
	r.Data[i] = value
	r.Valid[i] = true
}

func (r *Raster) Invalidate(col, row int) {
	i := r.index(col, row)
	r.Data[i] = math.NaN()
	r.Valid[i] = false
}

func (r *Raster) ValidCount() int {
	count := 0
	for _, v := range r.Valid {
		if v {
			count++
		}
	}
	return count
}

// Values returns the valid pixel values in row-major order.
func (r *Raster) Values() []float64 {
	values := make([]float64, 0, len(r.Data))
	for i, v := range r.Data {
		if r.Valid[i] {
			values = append(values, v)
		}
	}
	return values
}

// SameGrid reports whether a and b share shape, transform and CRS, i.e.
// pixel (col, row) refers to the same ground location in both.
func SameGrid(a, b *Raster) bool {
	return a.Width == b.Width && a.Height == b.Height && a.Transform == b.Transform && a.CRS == b.CRS
}

// Handle is an opened, not yet materialised band. Opening only reads
// metadata; pixels are fetched by ReadWindow.
type Handle interface {
	Name() string
	Structure() Structure
	ReadWindow(ctx context.Context, w Window) (*Raster, error)
	Close() error
}

// Opener opens a band asset location into a Handle.
type Opener interface {
	Open(ctx context.Context, name, href string) (Handle, error)
}
