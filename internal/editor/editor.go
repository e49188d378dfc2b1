// Package editor turns pointer drags on a display surface into labeled boxes
// in an image's native pixel space.
package editor

import (
	"errors"
	"fmt"
	"math"

	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

// DefaultMinExtent is the smallest native width or height a drawn box may have.
const DefaultMinExtent = 5

var (
	ErrNoLabel       = errors.New("no label selected")
	ErrDegenerateBox = errors.New("box too small")
	ErrNoSelection   = errors.New("no box selected")
	ErrNotDragging   = errors.New("no drag in progress")
	ErrNoImage       = errors.New("no image loaded")
)

// Config selects the editing flow.
type Config struct {
	// RequireLabel refuses to start a drag until a label is selected.
	RequireLabel bool
	// MinExtent is the minimum native width and height of a new box.
	MinExtent float64
}

type drag struct {
	anchor  geometry.Point
	current geometry.Point
}

// Editor holds the box list of one image while it is being edited.
type Editor struct {
	cfg    Config
	mapper geometry.Mapper
	loaded bool
	label  string
	boxes  []models.Box
	active int
	drag   *drag
	dirty  bool
}

// New returns an editor with no image loaded.
func New(cfg Config) *Editor {
	if cfg.MinExtent <= 0 {
		cfg.MinExtent = DefaultMinExtent
	}
	return &Editor{cfg: cfg, active: -1}
}

// Config returns the editor's configuration.
func (e *Editor) Config() Config { return e.cfg }

// Load replaces the edited image. Any drag in progress is dropped and the
// first real box, if any, becomes active.
func (e *Editor) Load(m geometry.Mapper, boxes []models.Box) {
	e.mapper = m
	e.loaded = true
	e.boxes = models.Normalize(boxes)
	e.drag = nil
	e.dirty = false
	e.active = -1
	if models.KindOf(e.boxes) == models.KindBoxes {
		e.active = 0
	}
}

// Mapper returns the current coordinate mapper.
func (e *Editor) Mapper() geometry.Mapper { return e.mapper }

// SetLabel changes the label given to new boxes.
func (e *Editor) SetLabel(label string) { e.label = label }

// Label returns the label given to new boxes.
func (e *Editor) Label() string { return e.label }

// BeginDrag anchors a new rectangle at a display point.
func (e *Editor) BeginDrag(p geometry.Point) error {
	if !e.loaded {
		return ErrNoImage
	}
	if e.cfg.RequireLabel && e.label == "" {
		return ErrNoLabel
	}
	e.drag = &drag{anchor: p, current: p}
	return nil
}

// Dragging reports whether a drag is in progress.
func (e *Editor) Dragging() bool { return e.drag != nil }

// UpdateDrag moves the free corner of the in-progress rectangle. It reports
// whether a redraw is needed.
func (e *Editor) UpdateDrag(p geometry.Point) bool {
	if e.drag == nil {
		return false
	}
	e.drag.current = p
	return true
}

// CancelDrag drops the in-progress rectangle.
func (e *Editor) CancelDrag() { e.drag = nil }

// EndDrag finishes the in-progress rectangle. The corners are mapped to
// native space, clamped to the image and rounded; the box is appended with the
// current label unless it is smaller than MinExtent on either axis.
func (e *Editor) EndDrag() (models.Box, error) {
	if e.drag == nil {
		return models.Box{}, ErrNotDragging
	}
	d := *e.drag
	e.drag = nil

	a := e.mapper.ClampNative(e.mapper.Inverse(d.anchor))
	b := e.mapper.ClampNative(e.mapper.Inverse(d.current))
	if math.Abs(b.X-a.X) < e.cfg.MinExtent || math.Abs(b.Y-a.Y) < e.cfg.MinExtent {
		return models.Box{}, fmt.Errorf("%w: %.0fx%.0f", ErrDegenerateBox, math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))
	}

	box := models.Box{
		X1:    int(math.Round(math.Min(a.X, b.X))),
		Y1:    int(math.Round(math.Min(a.Y, b.Y))),
		X2:    int(math.Round(math.Max(a.X, b.X))),
		Y2:    int(math.Round(math.Max(a.Y, b.Y))),
		Label: e.label,
	}
	e.boxes = models.Normalize(append(e.boxes, box))
	e.active = len(e.boxes) - 1
	e.dirty = true
	return box, nil
}

// DeleteBox removes the box at index i. When the active box is removed the
// selection moves to the previous box, or to none.
func (e *Editor) DeleteBox(i int) error {
	if i < 0 || i >= len(e.boxes) {
		return fmt.Errorf("box index %d out of range [0,%d)", i, len(e.boxes))
	}
	e.boxes = append(e.boxes[:i:i], e.boxes[i+1:]...)
	switch {
	case len(e.boxes) == 0:
		e.active = -1
	case i == e.active:
		e.active = i - 1
	case i < e.active:
		e.active--
	}
	e.dirty = true
	return nil
}

// DeleteActive removes the selected box.
func (e *Editor) DeleteActive() error {
	if e.active < 0 {
		return ErrNoSelection
	}
	return e.DeleteBox(e.active)
}

// SetActiveBoxLabel relabels the selected box in place.
func (e *Editor) SetActiveBoxLabel(label string) error {
	if e.active < 0 || e.active >= len(e.boxes) {
		return ErrNoSelection
	}
	if e.boxes[e.active].IsNull() {
		return ErrNoSelection
	}
	e.boxes[e.active].Label = label
	e.dirty = true
	return nil
}

// SelectBox makes box i active.
func (e *Editor) SelectBox(i int) error {
	if i < 0 || i >= len(e.boxes) || e.boxes[i].IsNull() {
		return fmt.Errorf("box index %d out of range [0,%d)", i, len(e.boxes))
	}
	e.active = i
	return nil
}

// SelectNone clears the selection.
func (e *Editor) SelectNone() { e.active = -1 }

// Active returns the selected box index, or -1.
func (e *Editor) Active() int { return e.active }

// TagNull replaces every box with the null sentinel.
func (e *Editor) TagNull() {
	e.boxes = []models.Box{models.NullBox()}
	e.active = -1
	e.drag = nil
	e.dirty = true
}

// Boxes returns a copy of the current box list.
func (e *Editor) Boxes() []models.Box {
	return append([]models.Box{}, e.boxes...)
}

// Dirty reports whether the box list changed since Load.
func (e *Editor) Dirty() bool { return e.dirty }

// MarkClean records that the current box list has been persisted.
func (e *Editor) MarkClean() { e.dirty = false }

// Scene lays out the current state for a renderer, including the dashed
// in-progress rectangle.
func (e *Editor) Scene() Scene {
	if !e.loaded {
		return Scene{}
	}
	sc := BuildScene(e.mapper, e.boxes, e.active)
	if e.drag != nil && !sc.Null {
		r := rectBetween(e.drag.anchor, e.drag.current)
		sc.Shapes = append(sc.Shapes, boxShape(r, e.label, -1, false, true))
	}
	return sc
}

func rectBetween(a, b geometry.Point) geometry.Rect {
	return geometry.Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}
