package models

import "fmt"

// NullLabel marks an image that was reviewed and deliberately holds no objects.
// It is mutually exclusive with every other box on the same image.
const NullLabel = "__null__"

// Box is a labeled rectangle in the image's native pixel space.
// Corners are not ordered; use Rect for the true geometry.
type Box struct {
	X1    int    `json:"x1"`
	Y1    int    `json:"y1"`
	X2    int    `json:"x2"`
	Y2    int    `json:"y2"`
	Label string `json:"label"`
}

// IsNull reports whether b is the null sentinel box.
func (b Box) IsNull() bool {
	return b.Label == NullLabel
}

// Rect returns the ordered corners of the box.
func (b Box) Rect() (xmin, ymin, xmax, ymax int) {
	return min(b.X1, b.X2), min(b.Y1, b.Y2), max(b.X1, b.X2), max(b.Y1, b.Y2)
}

// Width returns the horizontal extent of the box.
func (b Box) Width() int {
	xmin, _, xmax, _ := b.Rect()
	return xmax - xmin
}

// Height returns the vertical extent of the box.
func (b Box) Height() int {
	_, ymin, _, ymax := b.Rect()
	return ymax - ymin
}

func (b Box) String() string {
	label := b.Label
	if label == "" {
		label = "(unlabeled)"
	}
	return fmt.Sprintf("%s [%d,%d]->[%d,%d]", label, b.X1, b.Y1, b.X2, b.Y2)
}

// NullBox returns the sentinel box used when tagging an image as null.
func NullBox() Box {
	return Box{Label: NullLabel}
}

// Kind classifies an annotation's box list.
type Kind int

const (
	KindEmpty Kind = iota
	KindNull
	KindBoxes
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNull:
		return "null"
	case KindBoxes:
		return "boxes"
	default:
		return "unknown"
	}
}

// Annotation is the persisted state for one image. W and H are the native
// dimensions of the image when it was annotated.
type Annotation struct {
	Boxes []Box `json:"boxes"`
	W     int   `json:"w"`
	H     int   `json:"h"`
}

// Kind reports whether the annotation is empty, null-tagged, or holds boxes.
func (a Annotation) Kind() Kind {
	return KindOf(a.Boxes)
}

// Clone returns a deep copy of the annotation.
func (a Annotation) Clone() Annotation {
	out := Annotation{W: a.W, H: a.H}
	if a.Boxes != nil {
		out.Boxes = append([]Box(nil), a.Boxes...)
	}
	return out
}

// KindOf classifies a box list. A list holding any real box is KindBoxes even
// if a stale null sentinel is also present.
func KindOf(boxes []Box) Kind {
	hasNull := false
	for _, b := range boxes {
		if !b.IsNull() {
			return KindBoxes
		}
		hasNull = true
	}
	if hasNull {
		return KindNull
	}
	return KindEmpty
}

// Normalize enforces null exclusivity on a box list: real boxes supersede the
// null sentinel, and a null-only list collapses to a single sentinel box.
// The input slice is never modified.
func Normalize(boxes []Box) []Box {
	switch KindOf(boxes) {
	case KindEmpty:
		return []Box{}
	case KindNull:
		return []Box{NullBox()}
	}
	out := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		if b.IsNull() {
			continue
		}
		out = append(out, b)
	}
	return out
}
