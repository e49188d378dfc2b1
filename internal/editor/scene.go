package editor

import (
	"math"

	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// Stroke widths and tag metrics in display pixels.
const (
	StrokeWidth       = 2.0
	ActiveStrokeWidth = 3.0
	NullStrokeWidth   = 4.0
	TagHeight         = 18.0
	TagPadding        = 6.0
)

// DashPattern is the on/off pattern of the in-progress rectangle.
var DashPattern = []float64{4, 3}

// ShapeKind distinguishes the drawable primitives of a scene.
type ShapeKind int

const (
	ShapeBox ShapeKind = iota
	ShapeNullCross
)

// Tag is the filled label plate drawn above a box.
type Tag struct {
	Text string
	X    float64
	Y    float64 // top edge, clamped to the surface top
}

// Shape is one drawable element in display coordinates.
type Shape struct {
	Kind        ShapeKind
	Rect        geometry.Rect
	Color       Color
	StrokeWidth float64
	Dashed      bool
	Active      bool
	Index       int // box index, -1 for the in-progress rectangle
	Tag         *Tag
}

// Scene is everything a renderer needs to draw one surface.
type Scene struct {
	Display geometry.Size
	Image   geometry.Rect
	Null    bool
	Shapes  []Shape
}

// BuildScene lays out boxes for a surface. active is the selected box index
// or -1. A null-tagged list renders only the cross over the whole surface.
func BuildScene(m geometry.Mapper, boxes []models.Box, active int) Scene {
	sc := Scene{Display: m.Display(), Image: m.ImageRect()}
	if models.KindOf(boxes) == models.KindNull {
		sc.Null = true
		sc.Shapes = append(sc.Shapes, Shape{
			Kind:        ShapeNullCross,
			Rect:        geometry.Rect{W: sc.Display.W, H: sc.Display.H},
			Color:       NullColor,
			StrokeWidth: NullStrokeWidth,
			Index:       -1,
		})
		return sc
	}
	for i, b := range boxes {
		if b.IsNull() {
			continue
		}
		r := m.ForwardRect(
			geometry.Point{X: float64(b.X1), Y: float64(b.Y1)},
			geometry.Point{X: float64(b.X2), Y: float64(b.Y2)},
		)
		sc.Shapes = append(sc.Shapes, boxShape(r, b.Label, i, i == active, false))
	}
	return sc
}

func boxShape(r geometry.Rect, label string, index int, active, dashed bool) Shape {
	s := Shape{
		Kind:        ShapeBox,
		Rect:        r,
		Color:       LabelColor(label),
		StrokeWidth: StrokeWidth,
		Dashed:      dashed,
		Active:      active,
		Index:       index,
	}
	if active {
		s.StrokeWidth = ActiveStrokeWidth
	}
	if label != "" && !dashed {
		s.Tag = &Tag{Text: label, X: r.X, Y: math.Max(0, r.Y-TagHeight)}
	}
	return s
}
