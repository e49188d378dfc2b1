package review

import (
	"context"
	"errors"

	"github.com/lehigh-university-libraries/reviewbox/internal/editor"
	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
)

// Pointer is the pointer handler set bound to one rendering of the current
// surface. Each render replaces the controller's handler set; events
// delivered to a replaced set are ignored.
type Pointer struct {
	c     *Controller
	gen   uint64
	image string
}

// Pointer returns the active handler set, or nil when nothing is showing.
func (c *Controller) Pointer() *Pointer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pointer
}

// Image returns the image the handlers are bound to.
func (p *Pointer) Image() string { return p.image }

func (p *Pointer) liveLocked() bool {
	return p.c.pointer == p && p.c.gen == p.gen && p.c.current == p.image
}

// Down starts a drag at a display point.
func (p *Pointer) Down(ctx context.Context, pt geometry.Point) error {
	c := p.c
	c.mu.Lock()
	if !p.liveLocked() {
		c.mu.Unlock()
		return nil
	}
	err := c.ed.BeginDrag(pt)
	c.mu.Unlock()
	if errors.Is(err, editor.ErrNoLabel) {
		c.log.Debug("drag ignored without a label", "image", p.image)
		return nil
	}
	return err
}

// Move updates the in-progress rectangle and redraws the current surface.
func (p *Pointer) Move(ctx context.Context, pt geometry.Point) error {
	c := p.c
	c.mu.Lock()
	if !p.liveLocked() || !c.ed.UpdateDrag(pt) {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.renderCurrent(ctx)
}

// Up finishes the drag. Depending on the flow the box is kept for an
// explicit save, appended before skipping ahead, or saved with the image
// accepted.
func (p *Pointer) Up(ctx context.Context) error {
	c := p.c
	c.mu.Lock()
	if !p.liveLocked() || !c.ed.Dragging() {
		c.mu.Unlock()
		return nil
	}
	box, err := c.ed.EndDrag()
	label := c.ed.Label()
	c.mu.Unlock()

	if errors.Is(err, editor.ErrDegenerateBox) {
		c.log.Debug("discarded small box", "image", p.image, "err", err)
		return c.renderCurrent(ctx)
	}
	if err != nil {
		return err
	}
	c.log.Debug("drew box", "image", p.image, "box", box.String())

	switch c.cfg.OnBox {
	case BoxAppendSkip:
		name, release, err := c.acquire()
		if err != nil || release == nil {
			return err
		}
		defer release()
		if name != p.image {
			return nil
		}
		if _, err := c.deps.Store.Append(ctx, name, box); err != nil {
			c.notify("Save failed for %s: %v", name, err)
			return err
		}
		c.markClean(name)
		return c.skipFrom(ctx, name)
	case BoxAccept:
		return c.Accept(ctx, label)
	default:
		return c.renderCurrent(ctx)
	}
}

// Cancel drops the in-progress rectangle.
func (p *Pointer) Cancel(ctx context.Context) error {
	c := p.c
	c.mu.Lock()
	if !p.liveLocked() || !c.ed.Dragging() {
		c.mu.Unlock()
		return nil
	}
	c.ed.CancelDrag()
	c.mu.Unlock()
	return c.renderCurrent(ctx)
}
