package editor

import (
	"fmt"
	"math"
)

// Color is an HSL color; H in degrees, S and L in [0,1].
type Color struct {
	H float64
	S float64
	L float64
}

// DefaultColor is used for unlabeled boxes (#ff6a00).
var DefaultColor = Color{H: 25, S: 1, L: 0.5}

// NullColor strokes the null-tag cross.
var NullColor = Color{H: 0, S: 1, L: 0.6}

// NullAlpha is the opacity of the null-tag cross.
const NullAlpha = 0.8

// LabelColor derives a stable color from a label string. The same label
// always gets the same hue across sessions and views.
func LabelColor(label string) Color {
	if label == "" {
		return DefaultColor
	}
	var hash int32
	for _, r := range label {
		hash = int32(r) + ((hash << 5) - hash)
	}
	h := math.Abs(float64(hash % 360))
	return Color{H: h, S: 0.7, L: 0.5}
}

// CSS formats the color for a browser canvas.
func (c Color) CSS() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", int(c.H), int(math.Round(c.S*100)), int(math.Round(c.L*100)))
}
