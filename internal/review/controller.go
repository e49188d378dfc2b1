// Package review drives a sequential review session: a cursor over an
// ordered image list with neighbor prefetch and accept, skip, back, delete
// and null-tag transitions.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/reviewbox/internal/editor"
	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/state"
	"golang.org/x/sync/errgroup"
)

// FallbackNativeSize is assumed when the service does not report an
// image's dimensions.
var FallbackNativeSize = geometry.Size{W: 224, H: 224}

var (
	// ErrBusy is returned when an action is already in flight for the image.
	ErrBusy = errors.New("action already in progress")
	// ErrDeclined is returned when the user declines a confirmation.
	ErrDeclined = errors.New("action declined")
	// ErrNullDisabled is returned when null tagging is off for the flow.
	ErrNullDisabled = errors.New("null tagging disabled")
	// ErrNotLoaded is returned when saving an image whose annotation could
	// not be loaded.
	ErrNotLoaded = errors.New("annotation not loaded")
)

const cursorTimeout = 2 * time.Second

// Deps are the collaborators of a Controller. Confirmer, Notifier, State
// and Logger are optional.
type Deps struct {
	Service   Service
	Store     AnnotationStore
	Classes   ClassService
	State     state.Store
	Renderer  Renderer
	Confirmer Confirmer
	Notifier  Notifier
	Logger    *slog.Logger
}

// Controller is one review view. It is safe for concurrent use; I/O runs
// without holding the lock and the cursor is re-validated afterwards.
type Controller struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	mu       sync.Mutex
	images   []string
	idx      int
	st       State
	gen      uint64
	inflight map[string]bool
	classes  *models.ClassSet
	ed       *editor.Editor
	current  string
	pointer  *Pointer
}

// New returns an idle controller.
func New(cfg Config, deps Deps) *Controller {
	if cfg.Surface.W <= 0 || cfg.Surface.H <= 0 {
		cfg.Surface = DefaultSurface
	}
	if cfg.Neighbor.W <= 0 || cfg.Neighbor.H <= 0 {
		cfg.Neighbor = DefaultNeighbor
	}
	if cfg.View == "" {
		cfg.View = string(cfg.Flow)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:      cfg,
		deps:     deps,
		log:      logger.With("view", cfg.View),
		inflight: make(map[string]bool),
		classes:  models.NewClassSet(nil),
		ed:       editor.New(editor.Config{RequireLabel: cfg.RequireLabel, MinExtent: cfg.MinExtent}),
	}
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config { return c.cfg }

// Start loads the class list, restores the persisted cursor and last label
// and shows the first image.
func (c *Controller) Start(ctx context.Context, images []string) error {
	if c.deps.Classes != nil {
		labels, err := c.deps.Classes.Classes(ctx)
		if err != nil {
			c.notify("Could not load classes: %v", err)
			c.log.Warn("failed to load classes", "err", err)
		}
		c.mu.Lock()
		c.classes = models.NewClassSet(labels)
		c.mu.Unlock()
	}

	idx := 0
	if c.deps.State != nil {
		if saved, ok, err := state.LoadCursor(ctx, c.deps.State, c.cfg.View); err != nil {
			c.log.Debug("failed to load cursor", "err", err)
		} else if ok && saved >= 0 && saved < len(images) {
			idx = saved
		}
		if label, ok, err := c.deps.State.Get(ctx, state.LastLabelKey); err == nil && ok {
			c.mu.Lock()
			if c.classes.Contains(label) {
				c.ed.SetLabel(label)
			}
			c.mu.Unlock()
		}
	}

	c.mu.Lock()
	c.images = append([]string(nil), images...)
	c.idx = idx
	c.st = Showing
	if len(c.images) == 0 {
		c.st = Empty
		c.idx = 0
	}
	c.gen++
	c.mu.Unlock()

	return c.afterTransition(ctx)
}

// State returns the state and cursor.
func (c *Controller) State() (State, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st, c.idx
}

// Images returns a copy of the working list.
func (c *Controller) Images() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.images...)
}

// Current returns the image under the cursor.
func (c *Controller) Current() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

func (c *Controller) currentLocked() (string, bool) {
	if c.st != Showing || c.idx < 0 || c.idx >= len(c.images) {
		return "", false
	}
	return c.images[c.idx], true
}

// Classes returns the class labels in hotkey order.
func (c *Controller) Classes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.classes.Labels()
}

// Label returns the label given to new boxes.
func (c *Controller) Label() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ed.Label()
}

// Boxes returns the boxes of the image being edited.
func (c *Controller) Boxes() []models.Box {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ed.Boxes()
}

// Skip moves to the next image. At the last image it is a no-op.
func (c *Controller) Skip(ctx context.Context) error {
	return c.move(ctx, 1)
}

// Back moves to the previous image. At the first image it is a no-op.
func (c *Controller) Back(ctx context.Context) error {
	return c.move(ctx, -1)
}

func (c *Controller) move(ctx context.Context, delta int) error {
	c.mu.Lock()
	next := c.idx + delta
	if c.st != Showing || next < 0 || next >= len(c.images) {
		c.mu.Unlock()
		return nil
	}
	c.idx = next
	c.gen++
	c.mu.Unlock()
	return c.afterTransition(ctx)
}

// acquire marks the current image busy. The returned release must be called.
func (c *Controller) acquire() (string, func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.currentLocked()
	if !ok {
		return "", nil, nil
	}
	if c.inflight[name] {
		return "", nil, ErrBusy
	}
	c.inflight[name] = true
	return name, func() {
		c.mu.Lock()
		delete(c.inflight, name)
		c.mu.Unlock()
	}, nil
}

// pendingEdits returns the editor's boxes when they belong to name and have
// not been saved.
func (c *Controller) pendingEdits(name string) ([]models.Box, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != name || !c.ed.Dirty() {
		return nil, false
	}
	return c.ed.Boxes(), true
}

// loaded reports whether the editor holds the stored record of name.
func (c *Controller) loaded(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == name
}

func (c *Controller) notLoaded(name string) error {
	c.notify("Annotation for %s is not loaded; reload before saving.", name)
	return fmt.Errorf("save %s: %w", name, ErrNotLoaded)
}

func (c *Controller) markClean(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == name {
		c.ed.MarkClean()
	}
}

// Accept persists pending edits of the current image and removes it from
// the working list. Intake flows also move the image into the catalog,
// giving unlabeled boxes the label.
func (c *Controller) Accept(ctx context.Context, label string) error {
	name, release, err := c.acquire()
	if err != nil || release == nil {
		return err
	}
	defer release()

	if c.cfg.OnBox == BoxKeep && !c.loaded(name) {
		return c.notLoaded(name)
	}
	if boxes, ok := c.pendingEdits(name); ok {
		if _, err := c.deps.Store.Save(ctx, name, boxes); err != nil {
			c.notify("Save failed for %s: %v", name, err)
			return err
		}
		c.markClean(name)
	}

	if c.cfg.Collection == models.Raw {
		res, err := c.deps.Service.Accept(ctx, []string{name}, label)
		if err != nil {
			c.notify("Accept failed for %s: %v", name, err)
			return fmt.Errorf("accept %s: %w", name, err)
		}
		if len(res.Failed) > 0 {
			c.notify("Accept failed: %s", formatFailures(res.Failed))
			return fmt.Errorf("accept %s: %s", name, res.Failed[0].Error)
		}
		c.deps.Store.Invalidate(name)
	}

	c.log.Info("accepted image", "image", name, "label", label)
	if !c.remove(name) {
		return nil
	}
	return c.afterTransition(ctx)
}

// Delete removes the current image from its collection after confirmation.
func (c *Controller) Delete(ctx context.Context) error {
	name, release, err := c.acquire()
	if err != nil || release == nil {
		return err
	}
	defer release()

	if !c.confirm(ctx, fmt.Sprintf("Delete %s? This cannot be undone.", name)) {
		return ErrDeclined
	}
	res, err := c.deps.Service.Delete(ctx, c.cfg.Collection, []string{name})
	if err != nil {
		c.notify("Delete failed for %s: %v", name, err)
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if len(res.Failed) > 0 {
		c.notify("Delete failed: %s", formatFailures(res.Failed))
		return fmt.Errorf("delete %s: %s", name, res.Failed[0].Error)
	}
	c.deps.Store.Invalidate(name)

	c.log.Info("deleted image", "image", name)
	if !c.remove(name) {
		return nil
	}
	return c.afterTransition(ctx)
}

// TagNull marks the current image as holding no objects and skips ahead.
func (c *Controller) TagNull(ctx context.Context) error {
	if !c.cfg.AllowNull {
		return ErrNullDisabled
	}
	name, release, err := c.acquire()
	if err != nil || release == nil {
		return err
	}
	defer release()

	if c.cfg.ConfirmNull && !c.confirm(ctx, fmt.Sprintf("Mark %s as containing no objects?", name)) {
		return ErrDeclined
	}
	if _, err := c.deps.Store.TagNull(ctx, name); err != nil {
		c.notify("Tagging %s failed: %v", name, err)
		return err
	}
	c.mu.Lock()
	if c.current == name {
		c.ed.TagNull()
		c.ed.MarkClean()
	}
	c.mu.Unlock()

	c.log.Info("tagged image null", "image", name)
	return c.skipFrom(ctx, name)
}

// Save persists the editor's boxes for the current image, replacing the
// stored list.
func (c *Controller) Save(ctx context.Context) error {
	name, release, err := c.acquire()
	if err != nil || release == nil {
		return err
	}
	defer release()

	if !c.loaded(name) {
		return c.notLoaded(name)
	}
	boxes, ok := c.pendingEdits(name)
	if !ok {
		return nil
	}
	if _, err := c.deps.Store.Save(ctx, name, boxes); err != nil {
		c.notify("Save failed for %s: %v", name, err)
		return err
	}
	c.markClean(name)
	c.log.Info("saved annotation", "image", name, "boxes", len(boxes))
	return c.renderCurrent(ctx)
}

// skipFrom advances past name if it is still under the cursor.
func (c *Controller) skipFrom(ctx context.Context, name string) error {
	c.mu.Lock()
	cur, ok := c.currentLocked()
	if !ok || cur != name {
		c.mu.Unlock()
		return nil
	}
	if c.idx+1 >= len(c.images) {
		c.gen++
		c.mu.Unlock()
		return c.afterTransition(ctx)
	}
	c.idx++
	c.gen++
	c.mu.Unlock()
	return c.afterTransition(ctx)
}

// remove drops name from the working list and re-evaluates the cursor. It
// reports false when name was no longer listed.
func (c *Controller) remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos := -1
	for i, img := range c.images {
		if img == name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	c.images = append(c.images[:pos:pos], c.images[pos+1:]...)
	if pos < c.idx {
		c.idx--
	}
	if c.idx > len(c.images)-1 {
		c.idx = len(c.images) - 1
	}
	if len(c.images) == 0 {
		c.idx = 0
		c.st = Empty
		c.current = ""
		c.pointer = nil
	}
	c.gen++
	return true
}

// SelectLabel sets the label given to new boxes and remembers it. Flows
// with RelabelActive also relabel the selected box.
func (c *Controller) SelectLabel(ctx context.Context, label string) error {
	c.mu.Lock()
	c.ed.SetLabel(label)
	relabeled := false
	if c.cfg.RelabelActive && c.ed.Active() >= 0 {
		relabeled = c.ed.SetActiveBoxLabel(label) == nil
	}
	c.mu.Unlock()

	c.persist(ctx, state.LastLabelKey, label)
	if relabeled {
		return c.renderCurrent(ctx)
	}
	return nil
}

// SelectBox makes box i of the current image active.
func (c *Controller) SelectBox(ctx context.Context, i int) error {
	c.mu.Lock()
	err := c.ed.SelectBox(i)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.renderCurrent(ctx)
}

// AddClass appends a label to the shared class list and selects it. It
// reports whether the list changed.
func (c *Controller) AddClass(ctx context.Context, label string) (bool, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return false, models.ErrEmptyLabel
	}
	if c.deps.Classes == nil {
		return false, errors.New("no class service configured")
	}

	labels, err := c.deps.Classes.Classes(ctx)
	if err != nil {
		c.notify("Could not load classes: %v", err)
		return false, err
	}
	next := models.NewClassSet(labels)
	added, err := next.Append(label)
	if err != nil {
		return false, err
	}
	if added {
		if err := c.deps.Classes.SaveClasses(ctx, next.Labels()); err != nil {
			c.notify("Could not save classes: %v", err)
			return false, err
		}
		c.log.Info("added class", "label", label)
	}

	c.mu.Lock()
	c.classes = next
	c.mu.Unlock()
	return added, c.SelectLabel(ctx, label)
}

func (c *Controller) confirm(ctx context.Context, prompt string) bool {
	if c.deps.Confirmer == nil {
		return false
	}
	return c.deps.Confirmer.Confirm(ctx, prompt)
}

func (c *Controller) notify(format string, args ...any) {
	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(fmt.Sprintf(format, args...))
	}
}

func (c *Controller) persist(ctx context.Context, key, value string) {
	if c.deps.State == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cursorTimeout)
	defer cancel()
	if err := c.deps.State.Put(ctx, key, value); err != nil {
		c.log.Debug("failed to persist view state", "key", key, "err", err)
	}
}

// afterTransition persists the cursor and renders the three surfaces.
func (c *Controller) afterTransition(ctx context.Context) error {
	c.mu.Lock()
	idx := c.idx
	c.mu.Unlock()
	if c.deps.State != nil {
		pctx, cancel := context.WithTimeout(ctx, cursorTimeout)
		if err := state.SaveCursor(pctx, c.deps.State, c.cfg.View, idx); err != nil {
			c.log.Debug("failed to persist cursor", "idx", idx, "err", err)
		}
		cancel()
	}
	return c.show(ctx)
}

func formatFailures(failed []models.FileError) string {
	parts := make([]string, 0, len(failed))
	for _, f := range failed {
		if f.Error == "" {
			parts = append(parts, f.File)
			continue
		}
		parts = append(parts, f.File+": "+f.Error)
	}
	return strings.Join(parts, ", ")
}

// show renders previous, current and next concurrently. Results that arrive
// after another transition are discarded.
func (c *Controller) show(ctx context.Context) error {
	c.mu.Lock()
	gen, st, idx := c.gen, c.st, c.idx
	images := append([]string(nil), c.images...)
	c.mu.Unlock()

	if st != Showing {
		if c.deps.Renderer == nil {
			return nil
		}
		var g errgroup.Group
		for _, s := range []Surface{Previous, Current, Next} {
			g.Go(func() error {
				return c.deps.Renderer.Render(ctx, Frame{Surface: s, Index: -1, Blank: true})
			})
		}
		return g.Wait()
	}

	var g errgroup.Group
	for _, s := range []Surface{Previous, Current, Next} {
		i := idx + int(s) - 1
		g.Go(func() error {
			return c.showSurface(ctx, gen, s, i, images)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

func (c *Controller) showSurface(ctx context.Context, gen uint64, s Surface, i int, images []string) error {
	f := Frame{Surface: s, Index: i, Collection: c.cfg.Collection}
	if i < 0 || i >= len(images) {
		f.Blank = true
		return c.render(ctx, gen, f)
	}
	f.Image = images[i]

	ann, err := c.deps.Store.Get(ctx, f.Image)
	if err != nil {
		c.log.Warn("failed to load annotation", "image", f.Image, "surface", s.String(), "err", err)
		f.Err = err
		if s == Current && !c.stale(gen) {
			c.notify("Could not load annotation for %s: %v", f.Image, err)
		}
	}
	f.Annotation = ann

	size := c.cfg.Neighbor
	if s == Current {
		size = c.cfg.Surface
	}
	m, err := geometry.NewMapper(c.cfg.Fit, size, nativeSize(ann))
	if err != nil {
		return err
	}

	if s != Current {
		f.Scene = editor.BuildScene(m, ann.Boxes, -1)
		return c.render(ctx, gen, f)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.ed.Load(m, ann.Boxes)
	if f.Err != nil {
		// Read-only until a successful reload; a save would overwrite the
		// stored list with an empty one.
		c.current = ""
		c.pointer = nil
	} else {
		c.current = f.Image
		c.pointer = &Pointer{c: c, gen: gen, image: f.Image}
	}
	f.Scene = c.ed.Scene()
	c.mu.Unlock()
	return c.render(ctx, gen, f)
}

// Reload drops the cached record of the current image and renders the
// surfaces again, discarding unsaved edits.
func (c *Controller) Reload(ctx context.Context) error {
	c.mu.Lock()
	name, ok := c.currentLocked()
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	c.mu.Unlock()
	c.deps.Store.Invalidate(name)
	return c.show(ctx)
}

func (c *Controller) render(ctx context.Context, gen uint64, f Frame) error {
	if c.deps.Renderer == nil || c.stale(gen) {
		return nil
	}
	return c.deps.Renderer.Render(ctx, f)
}

func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen
}

// renderCurrent redraws the current surface from the editor state.
func (c *Controller) renderCurrent(ctx context.Context) error {
	c.mu.Lock()
	name, ok := c.currentLocked()
	if !ok || c.current != name {
		c.mu.Unlock()
		return nil
	}
	f := Frame{
		Surface:    Current,
		Index:      c.idx,
		Image:      name,
		Collection: c.cfg.Collection,
		Annotation: models.Annotation{Boxes: c.ed.Boxes(), W: int(c.ed.Mapper().Native().W), H: int(c.ed.Mapper().Native().H)},
		Scene:      c.ed.Scene(),
	}
	gen := c.gen
	c.mu.Unlock()
	return c.render(ctx, gen, f)
}

func nativeSize(a models.Annotation) geometry.Size {
	if a.W <= 0 || a.H <= 0 {
		return FallbackNativeSize
	}
	return geometry.Size{W: float64(a.W), H: float64(a.H)}
}
