package storage

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeImage(t *testing.T, dir, name string, w, h int, mtime time.Time) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, pngBytes(t, w, h), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(p, mtime, mtime); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}
}

func newLibrary(t *testing.T) *Library {
	t.Helper()
	lib, err := Open(Options{Fixed: ProjectLayout(t.TempDir())})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return lib
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"a.jpg", false},
		{"B.PNG", false},
		{"c.jpeg", false},
		{"d.gif", true},
		{"../e.jpg", true},
		{`sub\f.jpg`, true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidName) {
				t.Errorf("Expected ErrInvalidName, got %v", err)
			}
		})
	}
}

func TestAnnotationRoundTrip(t *testing.T) {
	lib := newLibrary(t)
	writeImage(t, lib.Layout().ImageDir, "cat.png", 100, 50, time.Time{})

	ann, err := lib.ReadAnnotation(models.Catalog, "cat.png")
	if err != nil {
		t.Fatalf("ReadAnnotation: %v", err)
	}
	if len(ann.Boxes) != 0 || ann.W != 100 || ann.H != 50 {
		t.Fatalf("Expected empty 100x50 record, got %+v", ann)
	}

	boxes := []models.Box{
		{X1: 80, Y1: 40, X2: 10, Y2: 5, Label: "cat"},
		{X1: -5, Y1: 0, X2: 500, Y2: 10},
	}
	if err := lib.WriteAnnotation(models.Catalog, "cat.png", boxes); err != nil {
		t.Fatalf("WriteAnnotation: %v", err)
	}
	ann, err = lib.ReadAnnotation(models.Catalog, "cat.png")
	if err != nil {
		t.Fatalf("ReadAnnotation: %v", err)
	}
	expected := []models.Box{
		{X1: 10, Y1: 5, X2: 80, Y2: 40, Label: "cat"},
		{X1: 0, Y1: 0, X2: 99, Y2: 10, Label: "object"},
	}
	if !reflect.DeepEqual(ann.Boxes, expected) {
		t.Errorf("Expected %v, got %v", expected, ann.Boxes)
	}
}

func TestWriteAnnotationNormalizesNull(t *testing.T) {
	lib := newLibrary(t)
	writeImage(t, lib.Layout().ImageDir, "n.png", 10, 10, time.Time{})

	if err := lib.WriteAnnotation(models.Catalog, "n.png", []models.Box{models.NullBox(), models.NullBox()}); err != nil {
		t.Fatalf("WriteAnnotation: %v", err)
	}
	ann, _ := lib.ReadAnnotation(models.Catalog, "n.png")
	if ann.Kind() != models.KindNull || len(ann.Boxes) != 1 {
		t.Errorf("Expected a single null box, got %v", ann.Boxes)
	}
}

func TestWriteAnnotationMissingImage(t *testing.T) {
	lib := newLibrary(t)
	err := lib.WriteAnnotation(models.Catalog, "ghost.png", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestImageSizeFallback(t *testing.T) {
	p := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(p, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	w, h := ImageSize(p)
	if w != FallbackSize || h != FallbackSize {
		t.Errorf("Expected fallback size, got %dx%d", w, h)
	}
}

func TestListOrderAndFilters(t *testing.T) {
	lib := newLibrary(t)
	dir := lib.Layout().ImageDir
	base := time.Now().Add(-time.Hour)
	writeImage(t, dir, "old.png", 10, 10, base)
	writeImage(t, dir, "b.png", 10, 10, base.Add(time.Minute))
	writeImage(t, dir, "A.png", 10, 10, base.Add(time.Minute))
	writeImage(t, dir, "new.png", 10, 10, base.Add(2*time.Minute))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := lib.WriteAnnotation(models.Catalog, "b.png", []models.Box{{X2: 5, Y2: 5, Label: "dog"}}); err != nil {
		t.Fatal(err)
	}
	if err := lib.WriteAnnotation(models.Catalog, "old.png", []models.Box{models.NullBox()}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		class    string
		expected []string
	}{
		{models.FilterAll, []string{"new.png", "A.png", "b.png", "old.png"}},
		{"dog", []string{"b.png"}},
		{models.FilterNull, []string{"old.png"}},
		{models.FilterUnannotated, []string{"new.png", "A.png"}},
		{"cat", []string{}},
	}
	for _, tt := range tests {
		t.Run("class="+tt.class, func(t *testing.T) {
			got, err := lib.List(models.Catalog, tt.class)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}

	page, err := lib.Page(models.Catalog, 2, 3, models.FilterAll)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.Total != 4 || !reflect.DeepEqual(page.Images, []string{"old.png"}) {
		t.Errorf("Expected second page [old.png] of 4, got %+v", page)
	}
}

func TestClasses(t *testing.T) {
	lib := newLibrary(t)
	got, err := lib.Classes()
	if err != nil || len(got) != 0 {
		t.Fatalf("Expected empty list, got %v, %v", got, err)
	}
	if err := lib.SaveClasses([]string{"cat", "dog"}); err != nil {
		t.Fatalf("SaveClasses: %v", err)
	}
	got, _ = lib.Classes()
	if !reflect.DeepEqual(got, []string{"cat", "dog"}) {
		t.Errorf("Expected [cat dog], got %v", got)
	}
}

func TestDelete(t *testing.T) {
	lib := newLibrary(t)
	writeImage(t, lib.Layout().ImageDir, "a.png", 10, 10, time.Time{})
	if err := lib.WriteAnnotation(models.Catalog, "a.png", []models.Box{{X2: 5, Y2: 5, Label: "x"}}); err != nil {
		t.Fatal(err)
	}

	res := lib.Delete(models.Catalog, []string{"a.png", "../etc.png"})
	if !reflect.DeepEqual(res.Done, []string{"a.png"}) {
		t.Errorf("Expected [a.png] deleted, got %v", res.Done)
	}
	if !reflect.DeepEqual(res.FailedNames(), []string{"../etc.png"}) {
		t.Errorf("Expected traversal name to fail, got %v", res.Failed)
	}
	if _, err := os.Stat(filepath.Join(lib.Layout().AnnotationDir, "a.xml")); !os.IsNotExist(err) {
		t.Errorf("Expected annotation to be removed, got %v", err)
	}
}

func TestAccept(t *testing.T) {
	lib := newLibrary(t)
	layout := lib.Layout()
	writeImage(t, layout.RawDir, "r1.png", 40, 30, time.Time{})
	writeImage(t, layout.RawDir, "r2.png", 40, 30, time.Time{})
	writeImage(t, layout.RawDir, "dup.png", 40, 30, time.Time{})
	writeImage(t, layout.ImageDir, "dup.png", 40, 30, time.Time{})

	if err := lib.WriteAnnotation(models.Raw, "r1.png", []models.Box{{X1: 1, Y1: 1, X2: 20, Y2: 20}, {X1: 2, Y1: 2, X2: 9, Y2: 9, Label: "dog"}}); err != nil {
		t.Fatal(err)
	}

	res := lib.Accept([]string{"r1.png", "r2.png", "dup.png", "missing.png"}, "cat")
	if !reflect.DeepEqual(res.Done, []string{"r1.png", "r2.png"}) {
		t.Errorf("Expected r1 and r2 accepted, got %v", res.Done)
	}
	if !reflect.DeepEqual(res.FailedNames(), []string{"dup.png", "missing.png"}) {
		t.Errorf("Expected dup and missing to fail, got %v", res.Failed)
	}

	ann, err := lib.ReadAnnotation(models.Catalog, "r1.png")
	if err != nil {
		t.Fatalf("ReadAnnotation: %v", err)
	}
	labels := []string{ann.Boxes[0].Label, ann.Boxes[1].Label}
	if !reflect.DeepEqual(labels, []string{"cat", "dog"}) {
		t.Errorf("Expected unlabeled box relabeled to cat, got %v", labels)
	}
	if _, err := os.Stat(filepath.Join(layout.RawAnnotationDir, "r1.xml")); !os.IsNotExist(err) {
		t.Errorf("Expected raw annotation removed, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(layout.RawDir, "dup.png")); err != nil {
		t.Errorf("Expected conflicting raw image to stay, got %v", err)
	}
}

func zipOf(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImportVOC(t *testing.T) {
	lib := newLibrary(t)
	voc, err := NewVOC("JPEGImages", "a.png", 10, 10, []models.Box{{X2: 5, Y2: 5, Label: "cat"}}).Marshal()
	if err != nil {
		t.Fatal(err)
	}
	data := zipOf(t, map[string][]byte{
		"set/JPEGImages/a.png":     pngBytes(t, 10, 10),
		"set/Annotations/a.xml":    voc,
		"__MACOSX/set/._a.png":     []byte("junk"),
		"set/readme.txt":           []byte("hi"),
		"set/JPEGImages/b c?.jpeg": []byte("x"),
	})

	res, err := lib.ImportVOC(data)
	if err != nil {
		t.Fatalf("ImportVOC: %v", err)
	}
	if res.Images != 2 || res.Annotations != 1 || len(res.Failed) != 0 {
		t.Errorf("Expected 2 images and 1 annotation, got %+v", res)
	}
	ann, _ := lib.ReadAnnotation(models.Catalog, "a.png")
	if len(ann.Boxes) != 1 || ann.Boxes[0].Label != "cat" {
		t.Errorf("Expected imported cat box, got %v", ann.Boxes)
	}
}

func TestImportImagesRejectsCorruptZip(t *testing.T) {
	lib := newLibrary(t)
	if _, err := lib.ImportImages([]byte("nope")); err == nil {
		t.Error("Expected error for corrupt zip")
	}

	res, err := lib.ImportImages(zipOf(t, map[string][]byte{"x/r.png": pngBytes(t, 4, 4), "x/r.xml": []byte("<a/>")}))
	if err != nil {
		t.Fatalf("ImportImages: %v", err)
	}
	if res.Images != 1 || res.Annotations != 0 {
		t.Errorf("Expected one raw image and no annotations, got %+v", res)
	}
	if _, err := lib.ImagePath(models.Raw, "r.png"); err != nil {
		t.Errorf("Expected raw image to exist: %v", err)
	}
}

func TestProjects(t *testing.T) {
	root := t.TempDir()
	lib, err := Open(Options{DataRoot: root})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	projects, active, err := lib.Projects()
	if err != nil || active != DefaultProject || !reflect.DeepEqual(projects, []string{DefaultProject}) {
		t.Fatalf("Expected only default, got %v %q %v", projects, active, err)
	}

	if err := lib.CreateProject("bad name", ""); !errors.Is(err, ErrInvalidProject) {
		t.Errorf("Expected ErrInvalidProject, got %v", err)
	}
	if err := lib.CreateProject("birds", ""); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if got := lib.Layout().ImageDir; got != filepath.Join(root, "birds", "images") {
		t.Errorf("Expected birds layout, got %s", got)
	}
	if err := lib.CreateProject("birds", ""); !errors.Is(err, ErrExists) {
		t.Errorf("Expected ErrExists, got %v", err)
	}

	if err := lib.SwitchProject(DefaultProject); err != nil {
		t.Fatalf("SwitchProject: %v", err)
	}
	reopened, err := Open(Options{DataRoot: root})
	if err != nil {
		t.Fatal(err)
	}
	_, active, _ = reopened.Projects()
	if active != DefaultProject {
		t.Errorf("Expected active project to persist, got %q", active)
	}
	if err := lib.SwitchProject("nosuch"); err == nil {
		t.Error("Expected error switching to a missing project")
	}
}
