// Package render rasterizes editor scenes onto RGBA surfaces.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lehigh-university-libraries/reviewbox/internal/editor"
	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Background fills the surface around a letterboxed image.
var Background = color.NRGBA{R: 0x0b, G: 0x0b, B: 0x0c, A: 0xff}

// TagFill is the plate behind label text.
var TagFill = color.NRGBA{A: 153}

// RGBA converts an HSL scene color to NRGBA with the given opacity.
func RGBA(c editor.Color, alpha float64) color.NRGBA {
	r, g, b := colorful.Hsl(c.H, c.S, c.L).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(math.Max(0, math.Min(1, alpha)) * 255))}
}

// Draw paints img fitted into the scene's image rectangle and overlays the
// scene's shapes. img may be nil.
func Draw(sc editor.Scene, img image.Image) *image.NRGBA {
	w, h := int(math.Round(sc.Display.W)), int(math.Round(sc.Display.H))
	dst := imaging.New(max(1, w), max(1, h), Background)

	if img != nil && sc.Image.W >= 1 && sc.Image.H >= 1 {
		fitted := imaging.Resize(img, int(math.Round(sc.Image.W)), int(math.Round(sc.Image.H)), imaging.Lanczos)
		dst = imaging.Paste(dst, fitted, image.Pt(int(math.Round(sc.Image.X)), int(math.Round(sc.Image.Y))))
	}

	for _, s := range sc.Shapes {
		switch s.Kind {
		case editor.ShapeNullCross:
			drawCross(dst, s)
		case editor.ShapeBox:
			drawBox(dst, s)
		}
	}
	return dst
}

func toRect(r geometry.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)),
	)
}

func drawBox(dst *image.NRGBA, s editor.Shape) {
	col := RGBA(s.Color, 1)
	r := toRect(s.Rect)
	thick := max(1, int(math.Round(s.StrokeWidth)))
	if s.Dashed {
		strokeDashed(dst, r, thick, col)
	} else {
		stroke(dst, r, thick, col)
	}
	if s.Tag != nil {
		drawTag(dst, *s.Tag)
	}
}

// stroke draws a rectangle outline of the given thickness, centered on the
// rectangle's edges.
func stroke(dst *image.NRGBA, r image.Rectangle, thick int, col color.Color) {
	half := thick / 2
	src := image.NewUniform(col)
	edges := []image.Rectangle{
		image.Rect(r.Min.X-half, r.Min.Y-half, r.Max.X+thick-half, r.Min.Y-half+thick),
		image.Rect(r.Min.X-half, r.Max.Y-half, r.Max.X+thick-half, r.Max.Y-half+thick),
		image.Rect(r.Min.X-half, r.Min.Y-half, r.Min.X-half+thick, r.Max.Y+thick-half),
		image.Rect(r.Max.X-half, r.Min.Y-half, r.Max.X-half+thick, r.Max.Y+thick-half),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

func strokeDashed(dst *image.NRGBA, r image.Rectangle, thick int, col color.Color) {
	on, off := int(editor.DashPattern[0]), int(editor.DashPattern[1])
	src := image.NewUniform(col)
	half := thick / 2
	dash := func(seg image.Rectangle) {
		draw.Draw(dst, seg.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
	for x := r.Min.X; x < r.Max.X; x += on + off {
		end := min(x+on, r.Max.X)
		dash(image.Rect(x, r.Min.Y-half, end, r.Min.Y-half+thick))
		dash(image.Rect(x, r.Max.Y-half, end, r.Max.Y-half+thick))
	}
	for y := r.Min.Y; y < r.Max.Y; y += on + off {
		end := min(y+on, r.Max.Y)
		dash(image.Rect(r.Min.X-half, y, r.Min.X-half+thick, end))
		dash(image.Rect(r.Max.X-half, y, r.Max.X-half+thick, end))
	}
}

func drawCross(dst *image.NRGBA, s editor.Shape) {
	col := RGBA(s.Color, editor.NullAlpha)
	r := toRect(s.Rect)
	thick := max(1, int(math.Round(s.StrokeWidth)))
	line(dst, r.Min.X, r.Min.Y, r.Max.X-1, r.Max.Y-1, thick, col)
	line(dst, r.Max.X-1, r.Min.Y, r.Min.X, r.Max.Y-1, thick, col)
}

// line draws a Bresenham line with a square pen.
func line(dst *image.NRGBA, x0, y0, x1, y1, thick int, col color.Color) {
	dx := math.Abs(float64(x1 - x0))
	dy := math.Abs(float64(y1 - y0))
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	src := image.NewUniform(col)
	half := thick / 2
	err := dx - dy
	for {
		pen := image.Rect(x0-half, y0-half, x0-half+thick, y0-half+thick)
		draw.Draw(dst, pen.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func drawTag(dst *image.NRGBA, t editor.Tag) {
	face := basicfont.Face7x13
	pad := int(editor.TagPadding)
	width := font.MeasureString(face, t.Text).Ceil() + 2*pad
	x, y := int(math.Round(t.X)), int(math.Round(t.Y))
	plate := image.Rect(x, y, x+width, y+int(editor.TagHeight))
	draw.Draw(dst, plate.Intersect(dst.Bounds()), image.NewUniform(TagFill), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(x+pad, y+int(editor.TagHeight)-4),
	}
	d.DrawString(t.Text)
}
