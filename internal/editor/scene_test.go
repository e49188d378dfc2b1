package editor

import (
	"testing"

	"github.com/lehigh-university-libraries/reviewbox/internal/geometry"
	"github.com/lehigh-university-libraries/reviewbox/internal/models"
)

func TestLabelColor(t *testing.T) {
	if LabelColor("") != DefaultColor {
		t.Errorf("Expected default color for empty label")
	}
	a, b := LabelColor("cat"), LabelColor("cat")
	if a != b {
		t.Errorf("Expected stable color, got %v and %v", a, b)
	}
	if a.H < 0 || a.H >= 360 {
		t.Errorf("Expected hue in [0,360), got %v", a.H)
	}
	// "a" hashes to 97.
	if got := LabelColor("a").H; got != 97 {
		t.Errorf("Expected hue 97, got %v", got)
	}
	if got := DefaultColor.CSS(); got != "hsl(25, 100%, 50%)" {
		t.Errorf("Expected hsl(25, 100%%, 50%%), got %s", got)
	}
}

func TestBuildSceneBoxes(t *testing.T) {
	m, _ := geometry.NewMapper(geometry.Letterbox, geometry.Size{W: 300, H: 300}, geometry.Size{W: 200, H: 100})
	boxes := []models.Box{
		{X1: 0, Y1: 0, X2: 100, Y2: 50, Label: "cat"},
		{X1: 150, Y1: 90, X2: 100, Y2: 60, Label: ""},
	}
	sc := BuildScene(m, boxes, 1)
	if sc.Null || len(sc.Shapes) != 2 {
		t.Fatalf("Expected two box shapes, got %+v", sc)
	}

	first := sc.Shapes[0]
	if first.Rect != (geometry.Rect{X: 0, Y: 75, W: 150, H: 75}) {
		t.Errorf("Unexpected first rect %+v", first.Rect)
	}
	if first.StrokeWidth != StrokeWidth || first.Active {
		t.Errorf("Expected inactive stroke, got %+v", first)
	}
	if first.Tag == nil || first.Tag.Y != 75-TagHeight {
		t.Errorf("Expected tag above the box, got %+v", first.Tag)
	}

	second := sc.Shapes[1]
	if !second.Active || second.StrokeWidth != ActiveStrokeWidth {
		t.Errorf("Expected active stroke, got %+v", second)
	}
	if second.Tag != nil {
		t.Errorf("Expected no tag for an unlabeled box, got %+v", second.Tag)
	}
	if second.Color != DefaultColor {
		t.Errorf("Expected default color, got %v", second.Color)
	}
}

func TestTagClampedToTop(t *testing.T) {
	m, _ := geometry.NewMapper(geometry.Stretch, geometry.Size{W: 100, H: 100}, geometry.Size{W: 100, H: 100})
	sc := BuildScene(m, []models.Box{{X1: 10, Y1: 0, X2: 50, Y2: 50, Label: "dog"}}, -1)
	if sc.Shapes[0].Tag.Y != 0 {
		t.Errorf("Expected tag clamped to 0, got %v", sc.Shapes[0].Tag.Y)
	}
}

func TestBuildSceneNull(t *testing.T) {
	m, _ := geometry.NewMapper(geometry.Letterbox, geometry.Size{W: 300, H: 200}, geometry.Size{W: 10, H: 10})
	sc := BuildScene(m, []models.Box{models.NullBox()}, -1)
	if !sc.Null || len(sc.Shapes) != 1 || sc.Shapes[0].Kind != ShapeNullCross {
		t.Fatalf("Expected a single null cross, got %+v", sc)
	}
	if sc.Shapes[0].Rect != (geometry.Rect{W: 300, H: 200}) {
		t.Errorf("Expected cross over the whole surface, got %+v", sc.Shapes[0].Rect)
	}
}

func TestEditorSceneShowsDrag(t *testing.T) {
	m, _ := geometry.NewMapper(geometry.Stretch, geometry.Size{W: 100, H: 100}, geometry.Size{W: 100, H: 100})
	e := New(Config{})
	e.Load(m, nil)
	e.SetLabel("cat")
	_ = e.BeginDrag(geometry.Point{X: 40, Y: 40})
	e.UpdateDrag(geometry.Point{X: 10, Y: 20})

	sc := e.Scene()
	if len(sc.Shapes) != 1 {
		t.Fatalf("Expected the in-progress shape, got %+v", sc.Shapes)
	}
	s := sc.Shapes[0]
	if !s.Dashed || s.Index != -1 || s.Color != LabelColor("cat") {
		t.Errorf("Unexpected in-progress shape %+v", s)
	}
	if s.Rect != (geometry.Rect{X: 10, Y: 20, W: 30, H: 20}) {
		t.Errorf("Unexpected in-progress rect %+v", s.Rect)
	}
}
