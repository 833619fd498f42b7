package raster

import (
	"context"
	"fmt"
	"sync"
)

// MemoryHandle serves windows out of an in-memory raster.
type MemoryHandle struct {
	src    *Raster
	mu     sync.Mutex
	closed bool
	reads  []Window
}

func NewMemoryHandle(src *Raster) *MemoryHandle {
	return &MemoryHandle{src: src}
}

func (h *MemoryHandle) Name() string {
	return h.src.Name
}

func (h *MemoryHandle) Structure() Structure {
	return Structure{
		SizeX:     h.src.Width,
		SizeY:     h.src.Height,
		Transform: h.src.Transform,
		CRS:       h.src.CRS,
	}
}

func (h *MemoryHandle) ReadWindow(ctx context.Context, w Window) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, fmt.Errorf("read %s on closed band %s", w, h.src.Name)
	}
	if w.Empty() || w.Intersect(h.src.Width, h.src.Height) != w {
		return nil, fmt.Errorf("window %s outside band %s (%dx%d)", w, h.src.Name, h.src.Width, h.src.Height)
	}
	h.reads = append(h.reads, w)

	out := New(h.src.Name, w.Width, w.Height, h.src.Transform.Shift(w.XOff, w.YOff), h.src.CRS)
	for row := 0; row < w.Height; row++ {
		for col := 0; col < w.Width; col++ {
			if v, ok := h.src.At(w.XOff+col, w.YOff+row); ok {
				out.Set(col, row, v)
			} else {
				out.Invalidate(col, row)
			}
		}
	}
	return out, nil
}

func (h *MemoryHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *MemoryHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Reads returns the windows requested so far.
func (h *MemoryHandle) Reads() []Window {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Window(nil), h.reads...)
}

// MemoryOpener opens in-memory rasters keyed by asset href.
type MemoryOpener struct {
	Rasters map[string]*Raster
	// Fail makes Open fail for the listed hrefs.
	Fail map[string]error

	mu      sync.Mutex
	handles []*MemoryHandle
}

func (o *MemoryOpener) Open(ctx context.Context, name, href string) (Handle, error) {
	if err := o.Fail[href]; err != nil {
		return nil, err
	}
	src, ok := o.Rasters[href]
	if !ok {
		return nil, fmt.Errorf("%w: open %s: no such asset", ErrTransient, href)
	}
	named := *src
	named.Name = name
	h := NewMemoryHandle(&named)
	o.mu.Lock()
	o.handles = append(o.handles, h)
	o.mu.Unlock()
	return h, nil
}

// Handles returns every handle opened so far.
func (o *MemoryOpener) Handles() []*MemoryHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*MemoryHandle(nil), o.handles...)
}
