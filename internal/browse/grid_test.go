package browse

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

type memLister struct {
	mu     sync.Mutex
	images []string
	class  string
}

func (m *memLister) RawImages(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.images...), nil
}

func (m *memLister) Images(ctx context.Context, page, pageSize int, class string) (models.ImagePage, error) {
	m.mu.Lock()
	m.class = class
	m.mu.Unlock()
	all, _ := m.RawImages(ctx)
	return Paginate(all, page, pageSize), nil
}

func (m *memLister) remove(files []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[string]bool)
	for _, f := range files {
		drop[f] = true
	}
	var keep []string
	for _, img := range m.images {
		if !drop[img] {
			keep = append(keep, img)
		}
	}
	m.images = keep
}

type fakeService struct {
	lister *memLister
	fail   map[string]bool
	calls  int
	label  string
}

func (s *fakeService) bulk(files []string) models.BulkResult {
	s.calls++
	var res models.BulkResult
	var done []string
	for _, f := range files {
		if s.fail[f] {
			res.Failed = append(res.Failed, models.FileError{File: f, Error: "locked"})
			continue
		}
		done = append(done, f)
	}
	res.Done = done
	s.lister.remove(done)
	return res
}

func (s *fakeService) Accept(ctx context.Context, files []string, label string) (models.BulkResult, error) {
	s.label = label
	return s.bulk(files), nil
}

func (s *fakeService) Delete(ctx context.Context, coll models.Collection, files []string) (models.BulkResult, error) {
	return s.bulk(files), nil
}

type fakeBoxes struct{}

func (fakeBoxes) Bulk(ctx context.Context, images []string) (map[string][]models.Box, error) {
	out := make(map[string][]models.Box)
	for _, img := range images {
		out[img] = []models.Box{{X2: 10, Y2: 10, Label: img}}
	}
	return out, nil
}

type answer bool

func (a answer) Confirm(ctx context.Context, prompt string) bool { return bool(a) }

type notes []string

func (n *notes) Notify(msg string) { *n = append(*n, msg) }

func names(n int) []string {
	var out []string
	for i := 0; i < n; i++ {
		out = append(out, fmt.Sprintf("img%02d.jpg", i))
	}
	return out
}

func newGrid(t *testing.T, coll models.Collection, n, pageSize int, confirm bool) (*Grid, *memLister, *fakeService, *notes) {
	t.Helper()
	l := &memLister{images: names(n)}
	svc := &fakeService{lister: l}
	ns := &notes{}
	var src Source = CatalogSource{Lister: l}
	if coll == models.Raw {
		src = RawSource{Lister: l}
	}
	g := New(coll, pageSize, Deps{Source: src, Service: svc, Boxes: fakeBoxes{}, Confirmer: answer(confirm), Notifier: ns})
	if err := g.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return g, l, svc, ns
}

func TestPagination(t *testing.T) {
	g, _, _, _ := newGrid(t, models.Catalog, 5, 2, true)
	ctx := context.Background()

	if page, pages, total := g.Page(); page != 1 || pages != 3 || total != 5 {
		t.Fatalf("Expected page 1 of 3 (5), got %d of %d (%d)", page, pages, total)
	}
	_ = g.PrevPage(ctx)
	if page, _, _ := g.Page(); page != 1 {
		t.Errorf("Expected prev on first page to be a no-op, got %d", page)
	}
	_ = g.NextPage(ctx)
	_ = g.NextPage(ctx)
	_ = g.NextPage(ctx)
	if page, _, _ := g.Page(); page != 3 {
		t.Errorf("Expected to stop on page 3, got %d", page)
	}
	if got := g.Visible(); !reflect.DeepEqual(got, []string{"img04.jpg"}) {
		t.Errorf("Expected last page [img04.jpg], got %v", got)
	}
	if g.Ordinal(0) != 5 {
		t.Errorf("Expected ordinal 5, got %d", g.Ordinal(0))
	}
	if len(g.BoxesFor("img04.jpg")) != 1 {
		t.Error("Expected page annotations to be loaded")
	}
}

func TestSelectionClearedOnNavigation(t *testing.T) {
	g, l, _, _ := newGrid(t, models.Catalog, 4, 2, true)
	ctx := context.Background()

	_ = g.Click(0)
	_ = g.NextPage(ctx)
	if len(g.Selected()) != 0 {
		t.Errorf("Expected selection cleared on page change, got %v", g.Selected())
	}
	_ = g.Click(0)
	_ = g.SetClass(ctx, models.FilterUnannotated)
	if len(g.Selected()) != 0 {
		t.Errorf("Expected selection cleared on class change, got %v", g.Selected())
	}
	if l.class != models.FilterUnannotated {
		t.Errorf("Expected class filter to reach the listing, got %q", l.class)
	}
	_ = g.Click(0)
	g.SetFilter("img")
	if len(g.Selected()) != 0 {
		t.Errorf("Expected selection cleared on filter change, got %v", g.Selected())
	}
}

func TestShiftClickUsesFilteredList(t *testing.T) {
	g, _, _, _ := newGrid(t, models.Catalog, 10, 20, true)
	g.SetFilter("IMG0")
	visible := g.Visible()
	if len(visible) != 10 {
		t.Fatalf("Expected case-insensitive filter to keep 10, got %v", visible)
	}
	g.SetFilter("img0")
	if err := g.Click(1); err != nil {
		t.Fatal(err)
	}
	if err := g.ShiftClick(3); err != nil {
		t.Fatal(err)
	}
	got := g.Selected()
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"img01.jpg", "img02.jpg", "img03.jpg"}) {
		t.Errorf("Unexpected selection %v", got)
	}
	if err := g.Click(99); err == nil {
		t.Error("Expected out of range click to fail")
	}
}

func TestToggleAll(t *testing.T) {
	g, _, _, _ := newGrid(t, models.Catalog, 3, 10, true)
	g.ToggleAll()
	if !g.AllSelected() {
		t.Fatal("Expected all selected")
	}
	g.ToggleAll()
	if len(g.Selected()) != 0 {
		t.Errorf("Expected cleared selection, got %v", g.Selected())
	}
}

func TestDeleteSelected(t *testing.T) {
	g, _, svc, ns := newGrid(t, models.Catalog, 4, 10, true)
	ctx := context.Background()

	if _, err := g.DeleteSelected(ctx); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Expected ErrNoSelection, got %v", err)
	}

	svc.fail = map[string]bool{"img02.jpg": true}
	_ = g.Click(1)
	_ = g.Click(2)
	res, err := g.DeleteSelected(ctx)
	if err != nil {
		t.Fatalf("DeleteSelected: %v", err)
	}
	if !reflect.DeepEqual(res.Done, []string{"img01.jpg"}) || !reflect.DeepEqual(res.FailedNames(), []string{"img02.jpg"}) {
		t.Errorf("Unexpected result %+v", res)
	}
	if len(g.Selected()) != 0 {
		t.Errorf("Expected selection cleared after bulk action, got %v", g.Selected())
	}
	if got := g.Visible(); len(got) != 3 {
		t.Errorf("Expected reloaded page of 3, got %v", got)
	}
	if len(*ns) < 2 {
		t.Errorf("Expected partial failure to be reported, got %v", *ns)
	}
}

func TestDeclinedBulkHasNoEffect(t *testing.T) {
	g, _, svc, _ := newGrid(t, models.Raw, 4, 10, false)
	_ = g.Click(0)
	if _, err := g.AcceptSelected(context.Background(), "cat"); !errors.Is(err, ErrDeclined) {
		t.Errorf("Expected ErrDeclined, got %v", err)
	}
	if svc.calls != 0 || len(g.Selected()) != 1 {
		t.Errorf("Expected no side effects, got calls=%d selection=%v", svc.calls, g.Selected())
	}
}

func TestAcceptSelected(t *testing.T) {
	g, l, svc, _ := newGrid(t, models.Raw, 3, 10, true)
	_ = g.Click(0)
	if _, err := g.AcceptSelected(context.Background(), "cat"); err != nil {
		t.Fatalf("AcceptSelected: %v", err)
	}
	if svc.label != "cat" || len(l.images) != 2 {
		t.Errorf("Expected one image accepted as cat, got label=%q images=%v", svc.label, l.images)
	}

	cat, _, _, _ := newGrid(t, models.Catalog, 3, 10, true)
	_ = cat.Click(0)
	if _, err := cat.AcceptSelected(context.Background(), ""); !errors.Is(err, ErrNotIntake) {
		t.Errorf("Expected ErrNotIntake, got %v", err)
	}
}

func TestPaginate(t *testing.T) {
	p := Paginate(names(5), 3, 2)
	if !reflect.DeepEqual(p.Images, []string{"img04.jpg"}) || p.Total != 5 {
		t.Errorf("Unexpected page %+v", p)
	}
	if p := Paginate(names(5), 9, 2); len(p.Images) != 0 {
		t.Errorf("Expected empty page past the end, got %v", p.Images)
	}
}
