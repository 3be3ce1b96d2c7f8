// Package chart renders the daily power curve as a fixed-size raster
// for a 600x448 e-ink panel.
package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"time"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"sunplot/internal/backend"
	"sunplot/internal/daytime"
)

// Canvas geometry. The plot area sits at (xOffset, yOffset) inside the
// panel, Y covers 0-5000 W, X covers the 06:00-22:00 window.
const (
	Width  = 600
	Height = 448

	plotWidth  = 480
	plotHeight = 400
	xOffset    = 80
	yOffset    = 20

	maxPower      = 5000.0
	powerTickStep = 500
	firstHour     = 6
	lastHour      = 22
	tickLen       = 5
)

var (
	white = color.NRGBA{255, 255, 255, 255}
	black = color.NRGBA{0, 0, 0, 255}
	red   = color.NRGBA{138, 76, 91, 255}
	green = color.NRGBA{67, 138, 28, 255}
)

// Renderer draws day charts. The zero value renders with a built-in
// bitmap face; LoadFont swaps in a TTF for the panel's real look.
type Renderer struct {
	face font.Face
}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// LoadFont loads a truetype face used for all chart text.
func (r *Renderer) LoadFont(path string, points float64) error {
	face, err := gg.LoadFontFace(path, points)
	if err != nil {
		return fmt.Errorf("failed to load font face: %w", err)
	}
	r.face = face
	return nil
}

// Render draws the power curve for the window with axes, gridlines and
// annotations. An empty or single-sample series yields a valid chart
// with no curve. Values above 5000 W are deliberately not clamped and
// run off the top of the plot.
func (r *Renderer) Render(w daytime.Window, series []backend.Sample, peak backend.Peak, energyWh int64) image.Image {
	dc := gg.NewContext(Width, Height)
	if r.face != nil {
		dc.SetFontFace(r.face)
	}

	dc.SetColor(white)
	dc.Clear()

	r.drawAxes(dc)
	r.drawPowerTicks(dc)
	r.drawHourTicks(dc)
	r.drawCurve(dc, w, series)

	if !peak.Absent() {
		dc.SetColor(green)
		dc.DrawStringAnchored(fmt.Sprintf("Peak: %d W", peak.Value), xOffset+10, 5, 0, 1)
	}

	dc.SetColor(green)
	dc.DrawStringAnchored(fmt.Sprintf("Produced Today: %d Wh", energyWh), xOffset+160, 5, 0, 1)

	return dc.Image()
}

// PNG renders the chart and encodes it.
func (r *Renderer) PNG(w daytime.Window, series []backend.Sample, peak backend.Peak, energyWh int64) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Render(w, series, peak, energyWh)); err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawAxes(dc *gg.Context) {
	dc.SetColor(black)
	dc.SetLineWidth(1)
	dc.DrawLine(xOffset-1, yOffset, xOffset-1, plotHeight+yOffset)
	dc.Stroke()
	dc.DrawLine(xOffset-1, plotHeight+yOffset, xOffset-1+plotWidth, plotHeight+yOffset)
	dc.Stroke()
}

func (r *Renderer) drawPowerTicks(dc *gg.Context) {
	dc.SetColor(black)
	dc.SetLineWidth(1)
	for tick := 0; tick <= int(maxPower); tick += powerTickStep {
		y := float64(sampleY(int64(tick)))

		dc.DrawLine(xOffset-1-tickLen, y, xOffset-1, y)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%d W", tick), xOffset-1-tickLen-4, y, 1, 0.5)

		// dotted guide across the plot
		dc.SetDash(1, 1)
		dc.DrawLine(xOffset, y, xOffset+plotWidth, y)
		dc.Stroke()
		dc.SetDash()
	}
}

func (r *Renderer) drawHourTicks(dc *gg.Context) {
	dc.SetColor(black)
	dc.SetLineWidth(1)
	axisY := float64(plotHeight + yOffset)
	for h := firstHour; h <= lastHour; h++ {
		x := float64(hourX(h))
		dc.DrawLine(x, axisY, x, axisY+tickLen)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%d", h), x, axisY+tickLen+4, 0.5, 1)
	}
}

func (r *Renderer) drawCurve(dc *gg.Context, w daytime.Window, series []backend.Sample) {
	if len(series) == 0 {
		return
	}

	dc.SetColor(red)
	dc.SetLineWidth(3)
	for i := 0; i+1 < len(series); i++ {
		x1 := float64(sampleX(w, series[i].Time))
		y1 := float64(sampleY(series[i].Value))
		x2 := float64(sampleX(w, series[i+1].Time))
		y2 := float64(sampleY(series[i+1].Value))
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}

	// label the last reading; the min keeps it above the axis
	last := series[len(series)-1]
	labelY := sampleY(last.Value)
	if labelY > plotHeight+yOffset-10 {
		labelY = plotHeight + yOffset - 10
	}
	dc.DrawStringAnchored(fmt.Sprintf("%d W", last.Value),
		float64(sampleX(w, last.Time)+10), float64(labelY), 0, 0.5)
}

// sampleX maps an instant within the window to a pixel column,
// truncating to whole pixels.
func sampleX(w daytime.Window, t time.Time) int {
	span := w.End.Unix() - w.Start.Unix()
	return xOffset + int(float64(t.Unix()-w.Start.Unix())/float64(span)*plotWidth)
}

// sampleY maps a wattage to a pixel row, truncating to whole pixels.
// Values above maxPower map above the plot area.
func sampleY(v int64) int {
	return yOffset + plotHeight - int(float64(v)/maxPower*float64(plotHeight))
}

// hourX maps a local-time hour tick onto the X axis.
func hourX(h int) int {
	return xOffset - 1 + int(float64(h-firstHour)/float64(lastHour-firstHour)*plotWidth)
}
