package output

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/forest-guardian/moisture-index-cli/internal/raster"
	"github.com/forest-guardian/moisture-index-cli/internal/summary"
	"github.com/nfnt/resize"
)

const (
	mapSize     = 512
	panelSize   = 400
	titleHeight = 30
	legendWidth = 90
)

// rasterImage colours valid pixels with colorOf and leaves invalid ones transparent.
func rasterImage(r *raster.Raster, colorOf func(v float64) color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	for row := 0; row < r.Height; row++ {
		for col := 0; col < r.Width; col++ {
			if v, ok := r.At(col, row); ok {
				img.SetRGBA(col, row, colorOf(v))
			}
		}
	}
	return img
}

// fit scales img with nearest neighbour so its longest side is size pixels,
// keeping every source pixel a sharp block.
func fit(img image.Image, size int) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest == 0 {
		return img
	}
	f := float64(size) / float64(longest)
	w := max(1, int(math.Round(float64(b.Dx())*f)))
	h := max(1, int(math.Round(float64(b.Dy())*f)))
	return resize.Resize(uint(w), uint(h), img, resize.NearestNeighbor)
}

func drawColorbar(dc *gg.Context, ramp Ramp, x, y, w, h, lo, hi float64) {
	for i := 0; i < int(h); i++ {
		dc.SetColor(ramp.At(1 - float64(i)/math.Max(h-1, 1)))
		dc.DrawRectangle(x, y+float64(i), w, 1)
		dc.Fill()
	}
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(x, y, w, h)
	dc.Stroke()
	dc.DrawStringAnchored(fmt.Sprintf("%.1f", hi), x+w+5, y, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.1f", (lo+hi)/2), x+w+5, y+h/2, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.1f", lo), x+w+5, y+h, 0, 0.5)
}

// CreateIndexImage renders an index raster over [-1, 1] with the RdYlGn
// ramp and a colour bar. Invalid pixels stay transparent.
func CreateIndexImage(r *raster.Raster, title, outputPath string) error {
	img := fit(rasterImage(r, func(v float64) color.RGBA {
		return RdYlGn.At(normalize(v, -1, 1))
	}), mapSize)
	b := img.Bounds()

	dc := gg.NewContext(b.Dx()+legendWidth, b.Dy()+titleHeight)
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(title, float64(b.Dx())/2, titleHeight/2, 0.5, 0.5)
	dc.DrawImage(img, 0, titleHeight)
	drawColorbar(dc, RdYlGn, float64(b.Dx())+20, titleHeight, 20, float64(b.Dy()), -1, 1)

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// CreateBandsImage renders the given bands side by side, each stretched
// between its own 2nd and 98th percentile with the viridis ramp.
func CreateBandsImage(outputPath string, bands ...*raster.Raster) error {
	var panels []image.Image
	width, height := 0, 0
	for _, band := range bands {
		values := band.Values()
		if len(values) == 0 {
			return fmt.Errorf("band %s has no valid pixels", band.Name)
		}
		lo, hi := stretch(values)
		img := fit(rasterImage(band, func(v float64) color.RGBA {
			return Viridis.At(normalize(v, lo, hi))
		}), panelSize)
		panels = append(panels, img)
		width += img.Bounds().Dx() + 20
		height = max(height, img.Bounds().Dy())
	}
	if len(panels) == 0 {
		return errors.New("no bands to render")
	}

	dc := gg.NewContext(width+20, height+titleHeight+20)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	x := 20
	for i, img := range panels {
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(strings.ToUpper(bands[i].Name), float64(x+img.Bounds().Dx()/2), titleHeight/2, 0.5, 0.5)
		dc.DrawImage(img, x, titleHeight)
		x += img.Bounds().Dx() + 20
	}

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// CreateHistogramImage draws the histogram bins of stats as bars.
func CreateHistogramImage(stats summary.Stats, title, outputPath string) error {
	if len(stats.Histogram) == 0 {
		return errors.New("statistics have no histogram")
	}
	const (
		width, height = 800, 500
		margin        = 60
	)
	maxCount := 0
	for _, b := range stats.Histogram {
		maxCount = max(maxCount, b.Count)
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	plotW, plotH := float64(width-2*margin), float64(height-2*margin)
	barW := plotW / float64(len(stats.Histogram))
	for i, b := range stats.Histogram {
		barH := 0.0
		if maxCount > 0 {
			barH = float64(b.Count) / float64(maxCount) * plotH
		}
		x, y := margin+float64(i)*barW, margin+plotH-barH
		dc.SetRGB255(135, 206, 235)
		dc.DrawRectangle(x, y, barW, barH)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.SetLineWidth(1)
		dc.DrawRectangle(x, y, barW, barH)
		dc.Stroke()
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawLine(margin, margin+plotH, margin+plotW, margin+plotH)
	dc.DrawLine(margin, margin, margin, margin+plotH)
	dc.Stroke()
	dc.DrawStringAnchored(title, width/2, margin/2, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.3f", stats.Min), margin, margin+plotH+15, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.3f", stats.Max), margin+plotW, margin+plotH+15, 0.5, 0.5)
	dc.DrawStringAnchored("NDMI Value", width/2, height-margin/2, 0.5, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%d", maxCount), margin-5, margin, 1, 0.5)
	dc.DrawStringAnchored("Frequency", margin-5, margin+plotH/2, 1, 0.5)

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// CreateMeanImage draws a one row table with the mean, coloured by where the
// mean falls on the RdYlGn ramp.
func CreateMeanImage(mean float64, outputPath string) error {
	const (
		cellW, cellH = 150, 40
		pad          = 10
	)
	dc := gg.NewContext(2*cellW+2*pad, 2*cellH+2*pad)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	rows := [][2]string{{"Metric", "Value"}, {"Mean NDMI", fmt.Sprintf("%.4f", mean)}}
	for r, cells := range rows {
		for c, text := range cells {
			x, y := float64(pad+c*cellW), float64(pad+r*cellH)
			if r == 1 {
				dc.SetColor(RdYlGn.At(normalize(mean, -1, 1)))
				dc.DrawRectangle(x, y, cellW, cellH)
				dc.Fill()
			}
			dc.SetRGB(0, 0, 0)
			dc.SetLineWidth(1)
			dc.DrawRectangle(x, y, cellW, cellH)
			dc.Stroke()
			dc.DrawStringAnchored(text, x+cellW/2, y+cellH/2, 0.5, 0.5)
		}
	}

	if err := dc.SavePNG(outputPath); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}
