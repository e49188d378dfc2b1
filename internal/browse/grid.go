// Package browse is the paginated grid view over a collection with
// multi-select and bulk delete / accept.
package browse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"github.com/lehigh-university-libraries/reviewbox/internal/selection"
)

// DefaultPageSize is used when the configured page size is not positive.
const DefaultPageSize = 200

var (
	// ErrDeclined is returned when the user declines a bulk action.
	ErrDeclined = errors.New("action declined")
	// ErrNoSelection is returned by bulk actions with nothing selected.
	ErrNoSelection = errors.New("no images selected")
	// ErrNotIntake is returned when accepting outside the intake collection.
	ErrNotIntake = errors.New("accept is only available for the intake collection")
)

// Source lists one page of a collection.
type Source interface {
	List(ctx context.Context, page, pageSize int, class string) (models.ImagePage, error)
}

// Service performs the bulk mutations.
type Service interface {
	Accept(ctx context.Context, files []string, label string) (models.BulkResult, error)
	Delete(ctx context.Context, coll models.Collection, files []string) (models.BulkResult, error)
}

// Boxes fetches annotations for a page of images.
type Boxes interface {
	Bulk(ctx context.Context, images []string) (map[string][]models.Box, error)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// Notifier shows a user-visible message.
type Notifier interface {
	Notify(msg string)
}

// Deps are the collaborators of a Grid. Boxes, Notifier and Logger are
// optional.
type Deps struct {
	Source    Source
	Service   Service
	Boxes     Boxes
	Confirmer Confirmer
	Notifier  Notifier
	Logger    *slog.Logger
}

// Grid is one grid view instance.
type Grid struct {
	coll models.Collection
	deps Deps
	log  *slog.Logger

	mu       sync.Mutex
	gen      uint64
	page     int
	pageSize int
	total    int
	class    string
	filter   string
	images   []string
	boxes    map[string][]models.Box
	sel      *selection.Set
}

// New returns a grid over coll starting at page 1.
func New(coll models.Collection, pageSize int, deps Deps) *Grid {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Grid{
		coll:     coll,
		deps:     deps,
		log:      logger.With("collection", string(coll)),
		page:     1,
		pageSize: pageSize,
		boxes:    make(map[string][]models.Box),
		sel:      selection.New(),
	}
}

// Load fetches the current page and its annotations. Results that arrive
// after a newer navigation are dropped.
func (g *Grid) Load(ctx context.Context) error {
	g.mu.Lock()
	g.gen++
	gen, page, size, class := g.gen, g.page, g.pageSize, g.class
	g.mu.Unlock()

	p, err := g.deps.Source.List(ctx, page, size, class)
	if err != nil {
		g.notify("Could not load images: %v", err)
		return fmt.Errorf("list page %d: %w", page, err)
	}

	var boxes map[string][]models.Box
	if g.deps.Boxes != nil && len(p.Images) > 0 {
		boxes, err = g.deps.Boxes.Bulk(ctx, p.Images)
		if err != nil {
			g.log.Warn("failed to load page annotations", "page", page, "err", err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen {
		return nil
	}
	g.images = p.Images
	g.total = p.Total
	g.boxes = boxes
	if g.boxes == nil {
		g.boxes = make(map[string][]models.Box)
	}
	return nil
}

// Visible returns the page's images matching the text filter, in display
// order.
func (g *Grid) Visible() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.visibleLocked()
}

func (g *Grid) visibleLocked() []string {
	q := strings.ToLower(strings.TrimSpace(g.filter))
	if q == "" {
		return append([]string(nil), g.images...)
	}
	var out []string
	for _, name := range g.images {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
		}
	}
	return out
}

// BoxesFor returns the loaded boxes of image.
func (g *Grid) BoxesFor(image string) []models.Box {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Box(nil), g.boxes[image]...)
}

// Page returns the current page, page count and total image count.
func (g *Grid) Page() (page, pages, total int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.page, g.pagesLocked(), g.total
}

func (g *Grid) pagesLocked() int {
	return max(1, (g.total+g.pageSize-1)/g.pageSize)
}

// Ordinal returns the 1-based position of the i-th visible image across
// all pages.
func (g *Grid) Ordinal(i int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return (g.page-1)*g.pageSize + i + 1
}

// NextPage advances one page if there is one.
func (g *Grid) NextPage(ctx context.Context) error {
	g.mu.Lock()
	if g.page >= g.pagesLocked() {
		g.mu.Unlock()
		return nil
	}
	g.page++
	g.sel.Clear()
	g.mu.Unlock()
	return g.Load(ctx)
}

// PrevPage goes back one page if there is one.
func (g *Grid) PrevPage(ctx context.Context) error {
	g.mu.Lock()
	if g.page <= 1 {
		g.mu.Unlock()
		return nil
	}
	g.page--
	g.sel.Clear()
	g.mu.Unlock()
	return g.Load(ctx)
}

// SetPageSize changes the page size and returns to the first page.
func (g *Grid) SetPageSize(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid page size %d", n)
	}
	g.mu.Lock()
	g.pageSize = n
	g.page = 1
	g.sel.Clear()
	g.mu.Unlock()
	return g.Load(ctx)
}

// SetClass filters by class and returns to the first page.
func (g *Grid) SetClass(ctx context.Context, class string) error {
	g.mu.Lock()
	g.class = class
	g.page = 1
	g.sel.Clear()
	g.mu.Unlock()
	return g.Load(ctx)
}

// SetFilter narrows the visible images by a case-insensitive name match.
func (g *Grid) SetFilter(text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter = text
	g.sel.Clear()
}

// Click toggles the visible image at index i.
func (g *Grid) Click(i int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	visible := g.visibleLocked()
	if i < 0 || i >= len(visible) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(visible))
	}
	g.sel.Toggle(visible[i], i)
	return nil
}

// ShiftClick toggles every visible image between the last click and i.
func (g *Grid) ShiftClick(i int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	visible := g.visibleLocked()
	if i < 0 || i >= len(visible) {
		return fmt.Errorf("index %d out of range [0,%d)", i, len(visible))
	}
	g.sel.RangeToggle(visible, i)
	return nil
}

// ToggleAll selects every visible image, or clears if all are selected.
func (g *Grid) ToggleAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sel.ToggleAll(g.visibleLocked())
}

// IsSelected reports whether image is selected.
func (g *Grid) IsSelected(image string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sel.Contains(image)
}

// AllSelected reports whether every visible image is selected.
func (g *Grid) AllSelected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sel.IsAllSelected(g.visibleLocked())
}

// Selected returns the selection in display order.
func (g *Grid) Selected() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sel.Items(g.visibleLocked())
}

// DeleteSelected deletes the selection after confirmation. Partial failure
// is reported, not returned as an error.
func (g *Grid) DeleteSelected(ctx context.Context) (models.BulkResult, error) {
	files := g.Selected()
	if len(files) == 0 {
		g.notify("No images selected.")
		return models.BulkResult{}, ErrNoSelection
	}
	if !g.confirm(ctx, fmt.Sprintf("Delete %d images? This cannot be undone.", len(files))) {
		return models.BulkResult{}, ErrDeclined
	}
	res, err := g.deps.Service.Delete(ctx, g.coll, files)
	if err != nil {
		g.notify("Delete failed: %v", err)
		return models.BulkResult{}, err
	}
	g.log.Info("bulk delete", "deleted", len(res.Done), "failed", len(res.Failed))
	return res, g.finishBulk(ctx, "deleted", res)
}

// AcceptSelected moves the selected intake images into the catalog after
// confirmation.
func (g *Grid) AcceptSelected(ctx context.Context, label string) (models.BulkResult, error) {
	if g.coll != models.Raw {
		return models.BulkResult{}, ErrNotIntake
	}
	files := g.Selected()
	if len(files) == 0 {
		g.notify("No images selected.")
		return models.BulkResult{}, ErrNoSelection
	}
	if !g.confirm(ctx, fmt.Sprintf("Accept %d images into the catalog? They will be moved from the raw folder.", len(files))) {
		return models.BulkResult{}, ErrDeclined
	}
	res, err := g.deps.Service.Accept(ctx, files, label)
	if err != nil {
		g.notify("Accept failed: %v", err)
		return models.BulkResult{}, err
	}
	g.log.Info("bulk accept", "accepted", len(res.Done), "failed", len(res.Failed))
	return res, g.finishBulk(ctx, "accepted", res)
}

func (g *Grid) finishBulk(ctx context.Context, verb string, res models.BulkResult) error {
	if len(res.Failed) > 0 {
		g.notify("Some files could not be %s: %s", verb, strings.Join(res.FailedNames(), ", "))
	}
	g.mu.Lock()
	g.sel.Clear()
	g.mu.Unlock()
	return g.Load(ctx)
}

func (g *Grid) confirm(ctx context.Context, prompt string) bool {
	if g.deps.Confirmer == nil {
		return false
	}
	return g.deps.Confirmer.Confirm(ctx, prompt)
}

func (g *Grid) notify(format string, args ...any) {
	if g.deps.Notifier != nil {
		g.deps.Notifier.Notify(fmt.Sprintf(format, args...))
	}
}
