package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sammarth-k/chandralc/internal/analysis"
)

const (
	plotWidth  = 900
	plotHeight = 480

	fontDPI  = 72.0
	fontSize = 12.0

	tickMarkLength = 5

	// Default border sizes in pixels
	defaultTopBorder    = 50
	defaultLeftBorder   = 80
	defaultBottomBorder = 70
	defaultRightBorder  = 40
)

var curveColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}

// BorderConfig defines the sizes of white space around the plot area
type BorderConfig struct {
	Top    int // Space for the title
	Left   int // Space for the vertical scale
	Bottom int // Space for the horizontal scale and information bar
	Right  int // Right padding
}

// RenderConfig holds the configuration options for plot rendering
type RenderConfig struct {
	FontPath string  // Path to a TrueType font, empty for the built-in face
	FontSize float64 // Font size in points
	Borders  BorderConfig
}

// Renderer draws a prepared XY series into an annotated image.
type Renderer struct {
	face   font.Face
	config RenderConfig
}

// NewRenderer creates a plot renderer with the given configuration.
func NewRenderer(config RenderConfig) (*Renderer, error) {
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.Borders.Top == 0 {
		config.Borders.Top = defaultTopBorder
	}
	if config.Borders.Left == 0 {
		config.Borders.Left = defaultLeftBorder
	}
	if config.Borders.Bottom == 0 {
		config.Borders.Bottom = defaultBottomBorder
	}
	if config.Borders.Right == 0 {
		config.Borders.Right = defaultRightBorder
	}

	face, err := loadFace(config.FontPath, config.FontSize)
	if err != nil {
		return nil, err
	}

	return &Renderer{face: face, config: config}, nil
}

func loadFace(path string, size float64) (font.Face, error) {
	if path == "" {
		return basicfont.Face7x13, nil
	}

	fontBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	return truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingNone,
	}), nil
}

func (r *Renderer) Close() error {
	if r.face != nil && r.face != basicfont.Face7x13 {
		return r.face.Close()
	}
	return nil
}

// Render creates an annotated image of the series with axes, a title and
// an information bar built from the observation summary.
func (r *Renderer) Render(data *plotData, summary analysis.Summary) (*image.RGBA, error) {
	if len(data.X) == 0 || len(data.X) != len(data.Y) {
		return nil, errors.New("nothing to plot")
	}

	fullWidth := plotWidth + r.config.Borders.Left + r.config.Borders.Right
	fullHeight := plotHeight + r.config.Borders.Top + r.config.Borders.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(
		r.config.Borders.Left,
		r.config.Borders.Top,
		r.config.Borders.Left+plotWidth,
		r.config.Borders.Top+plotHeight,
	)

	xs := data.X
	if data.LogX {
		xs = logScale(data.X)
	}
	xMin, xMax := bounds(xs)
	yMin, yMax := bounds(data.Y)
	if yMin > 0 {
		yMin = 0
	}

	r.drawFrame(img, area)
	if data.LogX {
		r.drawLogXScale(img, area, xMin, xMax)
	} else {
		r.drawXScale(img, area, xMin, xMax)
	}
	r.drawYScale(img, area, yMin, yMax)
	r.drawCurve(img, area, xs, data.Y, xMin, xMax, yMin, yMax)

	r.drawString(img, data.Title, area.Min.X, area.Min.Y-2*r.lineHeight())
	r.drawString(img, data.YLabel, 5, area.Min.Y-r.lineHeight()/2)
	r.drawInfoBar(img, data, summary)

	return img, nil
}

func (r *Renderer) drawFrame(img *image.RGBA, area image.Rectangle) {
	for x := area.Min.X; x <= area.Max.X; x++ {
		img.Set(x, area.Min.Y, color.Black)
		img.Set(x, area.Max.Y, color.Black)
	}
	for y := area.Min.Y; y <= area.Max.Y; y++ {
		img.Set(area.Min.X, y, color.Black)
		img.Set(area.Max.X, y, color.Black)
	}
}

func (r *Renderer) drawXScale(img *image.RGBA, area image.Rectangle, min, max float64) {
	step := niceStep(max-min, 8)
	start := math.Ceil(min/step) * step

	textY := area.Max.Y + r.lineHeight()
	for v := start; v <= max; v += step {
		x := area.Min.X + project(v, min, max, plotWidth)

		for y := area.Max.Y; y < area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatTick(v, step)
		width := font.MeasureString(r.face, label).Round()
		r.drawString(img, label, x-width/2, textY)
	}
}

func (r *Renderer) drawLogXScale(img *image.RGBA, area image.Rectangle, min, max float64) {
	textY := area.Max.Y + r.lineHeight()

	drawn := 0
	for e := int(math.Ceil(min)); float64(e) <= max; e++ {
		x := area.Min.X + project(float64(e), min, max, plotWidth)

		for y := area.Max.Y; y < area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("1e%d", e)
		width := font.MeasureString(r.face, label).Round()
		r.drawString(img, label, x-width/2, textY)
		drawn++
	}

	// Narrow frequency ranges may span no full decade, fall back to the
	// endpoints so the axis still reads.
	if drawn < 2 {
		for _, v := range []float64{min, max} {
			x := area.Min.X + project(v, min, max, plotWidth)
			label := fmt.Sprintf("%.2g", math.Pow(10, v))
			width := font.MeasureString(r.face, label).Round()
			r.drawString(img, label, x-width/2, textY)
		}
	}
}

func (r *Renderer) drawYScale(img *image.RGBA, area image.Rectangle, min, max float64) {
	step := niceStep(max-min, 8)
	start := math.Ceil(min/step) * step

	metrics := r.face.Metrics()
	for v := start; v <= max; v += step {
		y := area.Max.Y - project(v, min, max, plotHeight)

		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := formatTick(v, step)
		width := font.MeasureString(r.face, label).Round()
		r.drawString(img, label, area.Min.X-tickMarkLength-width-3, y+metrics.Descent.Round())
	}
}

func (r *Renderer) drawCurve(img *image.RGBA, area image.Rectangle, xs, ys []float64, xMin, xMax, yMin, yMax float64) {
	prevX, prevY := -1, -1
	for i := range xs {
		x := area.Min.X + project(xs[i], xMin, xMax, plotWidth)
		y := area.Max.Y - project(ys[i], yMin, yMax, plotHeight)

		if prevX >= 0 {
			drawLine(img, prevX, prevY, x, y, curveColor)
		} else {
			img.Set(x, y, curveColor)
		}
		prevX, prevY = x, y
	}
}

func (r *Renderer) drawInfoBar(img *image.RGBA, data *plotData, summary analysis.Summary) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("ObsID %d", summary.ObsID))
	if summary.Galaxy != "" {
		sb.WriteString("; " + summary.Galaxy)
	}
	sb.WriteString(fmt.Sprintf("; RA %.4f, Dec %.4f", summary.RA, summary.Dec))
	sb.WriteString(fmt.Sprintf("; %s counts", humanize.Comma(summary.TotalCounts)))
	sb.WriteString(fmt.Sprintf("; %s ks", humanize.CommafWithDigits(summary.DurationKs, 1)))
	sb.WriteString(fmt.Sprintf("; %s counts/s", humanize.CommafWithDigits(summary.RateSec, 3)))

	textY := img.Bounds().Max.Y - r.lineHeight()/2
	r.drawString(img, sb.String(), r.config.Borders.Left, textY)

	r.drawString(img, data.XLabel, r.config.Borders.Left+plotWidth/2-font.MeasureString(r.face, data.XLabel).Round()/2,
		r.config.Borders.Top+plotHeight+2*r.lineHeight())
}

func (r *Renderer) drawString(img *image.RGBA, s string, x, y int) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: r.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (r *Renderer) lineHeight() int {
	metrics := r.face.Metrics()
	return (metrics.Ascent + metrics.Descent).Round() + 2
}

// Helper functions

func logScale(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Log10(x)
	}
	return out
}

func bounds(vals []float64) (min, max float64) {
	min, max = vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// project maps v in [min, max] to a pixel offset in [0, extent].
func project(v, min, max float64, extent int) int {
	span := max - min
	if span == 0 {
		return extent / 2
	}
	px := int(math.Round((v - min) / span * float64(extent)))
	if px < 0 {
		px = 0
	}
	if px > extent {
		px = extent
	}
	return px
}

// niceStep picks a 1-2-5 sequence step giving at most maxTicks labels.
func niceStep(span float64, maxTicks int) float64 {
	if span <= 0 {
		return 1
	}

	raw := span / float64(maxTicks)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch norm := raw / mag; {
	case norm <= 1:
		return mag
	case norm <= 2:
		return 2 * mag
	case norm <= 5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

func formatTick(v, step float64) string {
	if step >= 1 {
		return fmt.Sprintf("%.0f", v)
	}
	decimals := int(math.Ceil(-math.Log10(step)))
	return fmt.Sprintf("%.*f", decimals, v)
}

// drawLine draws a straight segment using Bresenham's algorithm.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		img.Set(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
