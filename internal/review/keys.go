package review

import (
	"context"

	"github.com/lehigh-university-libraries/reviewbox/internal/editor"
)

// Key names understood by HandleKey.
const (
	KeyBack      = "ArrowLeft"
	KeySkip      = "Space"
	KeyDelete    = "Delete"
	KeyAccept    = "Enter"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
)

// HandleKey applies a keyboard shortcut. It reports whether the key is
// bound in this flow.
func (c *Controller) HandleKey(ctx context.Context, key string) (bool, error) {
	switch key {
	case KeyBack:
		return true, c.Back(ctx)
	case KeySkip, " ":
		return true, c.Skip(ctx)
	case KeyDelete:
		return true, c.Delete(ctx)
	case KeyAccept:
		if c.cfg.Flow == FlowAnnotate {
			return true, c.Save(ctx)
		}
		return true, c.Accept(ctx, c.Label())
	case "n", "N":
		if !c.cfg.AllowNull {
			return false, nil
		}
		return true, c.TagNull(ctx)
	case KeyBackspace:
		if c.cfg.Flow != FlowAnnotate {
			return false, nil
		}
		c.mu.Lock()
		err := c.ed.DeleteActive()
		c.mu.Unlock()
		if err == editor.ErrNoSelection {
			return true, nil
		}
		if err != nil {
			return true, err
		}
		return true, c.renderCurrent(ctx)
	case KeyEscape:
		c.mu.Lock()
		c.ed.CancelDrag()
		c.ed.SelectNone()
		c.mu.Unlock()
		return true, c.renderCurrent(ctx)
	}

	c.mu.Lock()
	label, ok := c.classes.Hotkey(key)
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, c.SelectLabel(ctx, label)
}
