package mesh

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	footprintColor = color.RGBA{40, 40, 40, 255}
	edgeColor      = color.RGBA{90, 90, 90, 255}
	outlineColor   = color.RGBA{200, 30, 30, 255}
	pointColor     = color.RGBA{30, 90, 200, 255}
	labelColor     = color.RGBA{0, 0, 0, 255}
)

// RoofRenderer draws a reconstruction from above: footprint outline,
// triangles shaded by slope, the from-points outline and optionally the raw
// points. North is up.
type RoofRenderer struct {
	Cloud      *PointCloud
	Triangles  []Triangle
	Outline    [][2]r3.Vector
	Label      string
	Scale      float64           // canvas millimetres per metre
	Padding    float64           // metres around the drawing
	Resolution canvas.Resolution // PNG output resolution
	ShowPoints bool
}

// NewRoofRenderer creates a renderer for r with default settings
func NewRoofRenderer(r *Result) *RoofRenderer {
	return &RoofRenderer{
		Cloud:      r.Cloud,
		Triangles:  r.Triangles,
		Outline:    r.Outline,
		Label:      fmt.Sprintf("%s  %s  %d triangles", r.Name, r.Mode, len(r.Triangles)),
		Scale:      10,
		Padding:    1,
		Resolution: canvas.DPI(150),
	}
}

// canvasRenderer is an interface that both svg and rasterizer renderers implement
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderSVG writes the drawing as an SVG to the provided writer
func (r *RoofRenderer) RenderSVG(w io.Writer) error {
	b, err := r.bounds()
	if err != nil {
		return err
	}
	width, height := r.size(b)
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, b, width, height)
	return svgRenderer.Close()
}

// RenderPNG writes the drawing as a PNG to the provided writer, with the
// label in the top left corner.
func (r *RoofRenderer) RenderPNG(w io.Writer) error {
	b, err := r.bounds()
	if err != nil {
		return err
	}
	width, height := r.size(b)
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, b, width, height)
	if r.Label != "" {
		drawText(rast, 4, 14, r.Label, labelColor)
	}
	return png.Encode(w, rast)
}

func (r *RoofRenderer) bounds() (orb.Bound, error) {
	var mp orb.MultiPoint
	if r.Cloud != nil {
		for _, p := range r.Cloud.FootprintOrDefault() {
			mp = append(mp, p)
		}
	}
	for _, t := range r.Triangles {
		for _, v := range t.Vertices() {
			mp = append(mp, Ground(v))
		}
	}
	if len(mp) == 0 {
		return orb.Bound{}, fmt.Errorf("nothing to render")
	}
	return mp.Bound(), nil
}

func (r *RoofRenderer) size(b orb.Bound) (float64, float64) {
	return (b.Max[0] - b.Min[0] + 2*r.Padding) * r.Scale, (b.Max[1] - b.Min[1] + 2*r.Padding) * r.Scale
}

func (r *RoofRenderer) renderToCanvas(renderer canvasRenderer, b orb.Bound, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	toCanvas := func(p orb.Point) (float64, float64) {
		return (p[0] - b.Min[0] + r.Padding) * r.Scale, (p[1] - b.Min[1] + r.Padding) * r.Scale
	}
	polyline := func(points []orb.Point, closed bool) *canvas.Path {
		cp := &canvas.Path{}
		for i, p := range points {
			x, y := toCanvas(p)
			if i == 0 {
				cp.MoveTo(x, y)
			} else {
				cp.LineTo(x, y)
			}
		}
		if closed {
			cp.Close()
		}
		return cp
	}

	for _, t := range r.Triangles {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: slopeColor(t.Plane().Tilt().Degrees())}
		style.Stroke = canvas.Paint{Color: edgeColor}
		style.StrokeWidth = 0.02 * r.Scale
		v := t.ProjectToGround().Vertices()
		renderer.RenderPath(polyline(v[:], true), style, canvas.Identity)
	}

	if r.Cloud != nil {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: footprintColor}
		style.StrokeWidth = 0.08 * r.Scale
		renderer.RenderPath(polyline(r.Cloud.FootprintOrDefault(), true), style, canvas.Identity)
	}

	if len(r.Outline) > 0 {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: canvas.Transparent}
		style.Stroke = canvas.Paint{Color: outlineColor}
		style.StrokeWidth = 0.06 * r.Scale
		for _, e := range r.Outline {
			renderer.RenderPath(polyline([]orb.Point{Ground(e[0]), Ground(e[1])}, false), style, canvas.Identity)
		}
	}

	if r.ShowPoints && r.Cloud != nil {
		style := canvas.DefaultStyle
		style.Fill = canvas.Paint{Color: pointColor}
		style.Stroke = canvas.Paint{Color: canvas.Transparent}
		dot := canvas.Circle(0.05 * r.Scale)
		for _, p := range r.Cloud.Points {
			x, y := toCanvas(Ground(p))
			renderer.RenderPath(dot, style, canvas.Identity.Translate(x, y))
		}
	}
}

// slopeColor shades flat facets pale and steep facets dark red.
func slopeColor(degrees float64) color.RGBA {
	f := math.Max(0, math.Min(1, degrees/60))
	return color.RGBA{
		R: uint8(240 - 80*f),
		G: uint8(230 - 180*f),
		B: uint8(200 - 170*f),
		A: 255,
	}
}

func drawText(img draw.Image, x, y int, text string, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
