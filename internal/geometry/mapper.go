// Package geometry converts points between a display surface and an image's
// native pixel space.
package geometry

import (
	"fmt"
	"math"
	"strings"
)

// Policy selects how an image is fitted onto a display surface.
type Policy int

const (
	// Letterbox scales uniformly by min(Dw/Iw, Dh/Ih) and centers the image.
	Letterbox Policy = iota
	// Stretch maps the full native rectangle onto the full surface,
	// independently per axis.
	Stretch
)

func (p Policy) String() string {
	switch p {
	case Letterbox:
		return "letterbox"
	case Stretch:
		return "stretch"
	default:
		return "unknown"
	}
}

// ParsePolicy parses "letterbox" or "stretch".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "letterbox", "fit", "":
		return Letterbox, nil
	case "stretch":
		return Stretch, nil
	default:
		return 0, fmt.Errorf("unknown fit policy: %q (supported: letterbox, stretch)", s)
	}
}

// Point is a position in either display or native space. Coordinates stay
// fractional until they are persisted.
type Point struct {
	X float64
	Y float64
}

// Size is a width/height pair.
type Size struct {
	W float64
	H float64
}

// Rect is an axis-aligned rectangle given by its top-left corner and extent.
type Rect struct {
	X, Y, W, H float64
}

// Mapper holds the forward (native -> display) and inverse transforms for
// one image on one surface.
type Mapper struct {
	policy  Policy
	display Size
	native  Size
	sx, sy  float64 // display pixels per native pixel
	dx, dy  float64
}

// NewMapper computes the transform for an image of native size on a display
// surface. All dimensions must be positive.
func NewMapper(policy Policy, display, native Size) (Mapper, error) {
	if display.W <= 0 || display.H <= 0 {
		return Mapper{}, fmt.Errorf("invalid display size %vx%v", display.W, display.H)
	}
	if native.W <= 0 || native.H <= 0 {
		return Mapper{}, fmt.Errorf("invalid native size %vx%v", native.W, native.H)
	}

	m := Mapper{policy: policy, display: display, native: native}
	switch policy {
	case Stretch:
		m.sx = display.W / native.W
		m.sy = display.H / native.H
	case Letterbox:
		scale := math.Min(display.W/native.W, display.H/native.H)
		m.sx, m.sy = scale, scale
		m.dx = (display.W - native.W*scale) / 2
		m.dy = (display.H - native.H*scale) / 2
	default:
		return Mapper{}, fmt.Errorf("unsupported fit policy: %d", policy)
	}
	return m, nil
}

// Policy returns the fitting policy in use.
func (m Mapper) Policy() Policy { return m.policy }

// Display returns the surface size.
func (m Mapper) Display() Size { return m.display }

// Native returns the image size.
func (m Mapper) Native() Size { return m.native }

// Scale returns display pixels per native pixel on each axis.
func (m Mapper) Scale() (sx, sy float64) { return m.sx, m.sy }

// Forward maps a native point to display space.
func (m Mapper) Forward(p Point) Point {
	return Point{X: m.dx + p.X*m.sx, Y: m.dy + p.Y*m.sy}
}

// Inverse maps a display point to native space. The result is not clamped.
func (m Mapper) Inverse(p Point) Point {
	return Point{X: (p.X - m.dx) / m.sx, Y: (p.Y - m.dy) / m.sy}
}

// ClampNative clamps a native point into [0,W]x[0,H].
func (m Mapper) ClampNative(p Point) Point {
	return Point{
		X: math.Max(0, math.Min(m.native.W, p.X)),
		Y: math.Max(0, math.Min(m.native.H, p.Y)),
	}
}

// ImageRect returns where the image lands on the display surface.
func (m Mapper) ImageRect() Rect {
	return Rect{X: m.dx, Y: m.dy, W: m.native.W * m.sx, H: m.native.H * m.sy}
}

// ForwardRect maps the native rectangle spanned by two corners to display
// space, ordering the corners.
func (m Mapper) ForwardRect(a, b Point) Rect {
	p1, p2 := m.Forward(a), m.Forward(b)
	return Rect{
		X: math.Min(p1.X, p2.X),
		Y: math.Min(p1.Y, p2.Y),
		W: math.Abs(p2.X - p1.X),
		H: math.Abs(p2.Y - p1.Y),
	}
}
